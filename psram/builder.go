package psram

import (
	"github.com/sarchlab/psramsim/mem"
	"github.com/sarchlab/psramsim/sim"
)

// A Builder can build PSRAM controller components.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	topBufSize int
	capacity   uint64
	storage    *mem.Storage
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:       100 * sim.MHz,
		topBufSize: 16,
		capacity:   16 * mem.MB,
	}
}

// WithEngine sets the event-driven simulation engine to use.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the controller runs at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithTopBufSize sets the buffer size of the top port.
func (b Builder) WithTopBufSize(size int) Builder {
	b.topBufSize = size
	return b
}

// WithCapacity sets the capacity of the backing storage in bytes.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets a storage to share with other components. When set, the
// capacity parameter is ignored.
func (b Builder) WithStorage(storage *mem.Storage) Builder {
	b.storage = storage
	return b
}

// Build creates a PSRAM controller component with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	storage := b.storage
	if storage == nil {
		storage = mem.NewStorage(b.capacity)
	}

	c.ctrl = NewController()
	c.device = NewDevice(storage)

	c.topPort = sim.NewPort(c, b.topBufSize, name+".TopPort")
	c.AddPort("Top", c.topPort)

	return c
}

// TopPort returns the port that accepts read and write requests.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// Controller exposes the timing controller for inspection.
func (c *Comp) Controller() *Controller {
	return c.ctrl
}

// Device exposes the behavioral device model for inspection.
func (c *Comp) Device() *Device {
	return c.device
}
