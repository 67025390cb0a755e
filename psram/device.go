package psram

import (
	"log"

	"github.com/sarchlab/psramsim/mem"
)

// Device read latencies, in cycles of continuous chip-enable assertion with
// a stable address. They are intentionally slightly under the controller's
// access lengths: the device must have valid data out before the controller
// samples it.
const (
	deviceRandomReadCycles = 5
	devicePageReadCycles   = 2
)

// floatingBus is what the device model drives while its outputs are not
// valid so that a controller sampling too early reads garbage.
const floatingBus uint16 = 0xffff

// A Device is a behavioral model of an asynchronous page-mode PSRAM part.
//
// It consumes the controller's pin levels once per cycle and emulates the
// datasheet-visible behavior: reads become valid after the random or
// page-mode access time, writes commit on the rising edge of the write
// strobe, and the configuration register is programmed through a CRE write.
// Contract violations (holding chip-enable low past tCEM, page-mode reads
// before page mode is programmed) are recorded so tests can assert on them.
type Device struct {
	storage *mem.Storage

	// pageMode is set once the configuration write has programmed page
	// mode.
	pageMode bool

	ceLowCycles      int
	addrStableCycles int
	oeLowCycles      int

	pageOpen bool
	openPage uint32

	outValid bool
	out      uint16

	prev Pins

	refreshViolations  int
	pageModeViolations int
}

// NewDevice creates a PSRAM device model backed by the given storage.
func NewDevice(storage *mem.Storage) *Device {
	d := new(Device)
	d.storage = storage
	d.prev = inactivePins()
	return d
}

// RefreshViolations returns how many times the chip-enable line was held
// low past the device's tCEM limit.
func (d *Device) RefreshViolations() int {
	return d.refreshViolations
}

// PageModeViolations returns how many page-timed reads were observed before
// page mode was programmed.
func (d *Device) PageModeViolations() int {
	return d.pageModeViolations
}

// PageModeProgrammed reports whether the configuration write has happened.
func (d *Device) PageModeProgrammed() bool {
	return d.pageMode
}

// CommitPending reports that the most recently sampled pins had the write
// strobe low, so the device still has to observe the rising edge and commit
// the write.
func (d *Device) CommitPending() bool {
	return !d.prev.WEn
}

// Tick advances the device by one cycle and returns the value it drives on
// the DQ bus. The returned value is only meaningful during a read; when the
// device's outputs are off or not yet valid, it is the floating-bus pattern.
func (d *Device) Tick(p Pins) uint16 {
	d.trackEnable(p)
	d.trackAddress(p)
	d.commitOnWriteEdge(p)

	out := d.serveRead(p)

	d.prev = p
	return out
}

func (d *Device) trackEnable(p Pins) {
	if p.CEn {
		d.ceLowCycles = 0
		d.pageOpen = false
		d.outValid = false
		return
	}

	d.ceLowCycles++
	if d.ceLowCycles == deviceTCEMCycles+1 {
		d.refreshViolations++
	}
}

func (d *Device) trackAddress(p Pins) {
	if p.Addr != d.prev.Addr || p.CEn {
		d.addrStableCycles = 1
		d.outValid = false
	} else {
		d.addrStableCycles++
	}

	if p.OEn {
		d.oeLowCycles = 0
	} else {
		d.oeLowCycles++
	}
}

// commitOnWriteEdge commits a write on the rising edge of the write strobe,
// using the address, data and byte lanes that were held while the strobe
// was low.
func (d *Device) commitOnWriteEdge(p Pins) {
	if d.prev.WEn || !p.WEn {
		return
	}

	if d.prev.CRE {
		// Configuration write: the address bus carries the register
		// value, the array is untouched.
		d.pageMode = d.prev.Addr == ConfigPageMode
		return
	}

	addr := uint64(d.prev.Addr) * 2
	data, err := d.storage.Read(addr, 2)
	if err != nil {
		log.Panic(err)
	}

	if !d.prev.LBn {
		data[0] = byte(d.prev.DataOut)
	}
	if !d.prev.UBn {
		data[1] = byte(d.prev.DataOut >> 8)
	}

	if err := d.storage.Write(addr, data); err != nil {
		log.Panic(err)
	}
}

func (d *Device) serveRead(p Pins) uint16 {
	if p.CEn || p.OEn || !p.WEn || p.CRE {
		d.outValid = false
		return floatingBus
	}

	samePage := d.pageOpen && PageTag(p.Addr) == d.openPage

	latency := deviceRandomReadCycles
	if samePage {
		if !d.pageMode {
			// The controller is using page timing on a device that was
			// never put in page mode.
			if d.addrStableCycles == devicePageReadCycles {
				d.pageModeViolations++
			}
		} else {
			latency = devicePageReadCycles
		}
	}

	ready := d.addrStableCycles >= latency &&
		d.ceLowCycles >= latency &&
		d.oeLowCycles >= 1

	if !ready {
		if !d.outValid {
			return floatingBus
		}
		return d.out
	}

	if !d.outValid {
		data, err := d.storage.Read(uint64(p.Addr&addrMask)*2, 2)
		if err != nil {
			log.Panic(err)
		}

		d.out = uint16(data[0]) | uint16(data[1])<<8
		d.outValid = true
	}

	d.pageOpen = true
	d.openPage = PageTag(p.Addr)

	return d.out
}
