package psram

// ctrlState is the phase of the access sequencer.
type ctrlState uint8

const (
	// stateInit runs the one-time page-mode programming write after reset.
	stateInit ctrlState = iota

	// stateIdle is the only state in which a new command is accepted.
	stateIdle

	// stateDelay holds the chip-enable line deasserted for one cycle so the
	// device recognizes the start of a fresh access.
	stateDelay

	// stateCounting waits out the fixed length of the access in flight.
	stateCounting
)

// A Command is one 16-bit access request presented to the controller.
type Command struct {
	// Address is the 23-bit word address.
	Address uint32

	// Data is the write data. Ignored for reads.
	Data uint16

	// ByteEnable selects the byte lanes: bit 0 enables the low byte, bit 1
	// the high byte.
	ByteEnable uint8

	// IsRead selects between a read and a write access.
	IsRead bool
}

// Input carries everything the controller samples on one clock edge.
type Input struct {
	// Cmd must be held stable by the caller from the cycle Go is asserted
	// until the controller reports idle again.
	Cmd Command

	// Go requests a new access. It is only sampled while the controller is
	// idle.
	Go bool

	// DataIn is the value the device drives on the DQ bus this cycle.
	DataIn uint16
}

// A Controller sequences accesses to an asynchronous page-mode PSRAM part.
//
// It is a synchronous state machine: Tick advances it by exactly one clock
// cycle, and all outputs reflect the register state after that edge. The
// controller transparently uses page mode for back-to-back reads within one
// page and guarantees the chip-enable line is released before the device's
// refresh deadline, whatever the command pattern.
type Controller struct {
	state ctrlState

	// requestAddress is the word address latched from the accepted command.
	requestAddress uint32

	// lastPageTag is the page of the most recently completed read. Only
	// meaningful while pageValid is set; pageValid is cleared whenever the
	// chip-enable line goes high for any reason.
	lastPageTag uint32
	pageValid   bool

	// ceLowCycleCount counts cycles of continuous chip-enable assertion.
	// It freezes at MaxEnableCycles, which sets refreshDeadlineHit.
	ceLowCycleCount    int
	refreshDeadlineHit bool

	// waitCount counts cycles since command acceptance. The access in
	// flight completes when it reaches cycleTarget.
	waitCount   int
	cycleTarget int

	currentIsRead bool
	readDataLatch uint16

	idle bool
	pins Pins
}

// NewController creates a controller in its post-reset state.
func NewController() *Controller {
	c := new(Controller)
	c.Reset()
	return c
}

// Reset synchronously returns the controller to its initial state. All
// control lines go to their inactive levels and the page-mode programming
// sequence reruns on the next tick.
func (c *Controller) Reset() {
	*c = Controller{}
	c.state = stateInit
	c.pins = inactivePins()
}

// Idle returns true exactly when a new command may be presented.
func (c *Controller) Idle() bool {
	return c.idle
}

// ReadData returns the result of the most recently completed read. It holds
// its value across write accesses.
func (c *Controller) ReadData() uint16 {
	return c.readDataLatch
}

// Pins returns the control-line levels the controller drives this cycle.
func (c *Controller) Pins() Pins {
	return c.pins
}

// EnableAsserted reports whether the chip-enable line is currently low.
func (c *Controller) EnableAsserted() bool {
	return !c.pins.CEn
}

// CycleTarget returns the length of the access in flight, or of the last
// completed access: 2 for a page hit, 6 for a write, 7 otherwise.
func (c *Controller) CycleTarget() int {
	return c.cycleTarget
}

// PageOpen reports whether a page is open and addressable for page-mode
// reads.
func (c *Controller) PageOpen() bool {
	return c.pageValid
}

// Tick advances the controller by one clock cycle.
func (c *Controller) Tick(in Input) {
	c.tickWatchdog()

	switch c.state {
	case stateInit:
		c.programPageMode()
	case stateIdle:
		c.acceptOrRest(in)
	case stateDelay:
		c.endRecycle()
	case stateCounting:
		c.count(in)
	}

	// The write data register follows the input every cycle; it only takes
	// effect while the write strobe is low.
	c.pins.DataOut = in.Cmd.Data
	c.pins.DataDrive = !c.pins.WEn
}

// tickWatchdog tracks how long the chip-enable line has been continuously
// asserted. It runs every cycle, independent of the access sequencer, so the
// refresh deadline is enforced even when no commands arrive.
func (c *Controller) tickWatchdog() {
	if c.pins.CEn {
		c.ceLowCycleCount = 0
		c.refreshDeadlineHit = false
		return
	}

	if c.ceLowCycleCount < MaxEnableCycles {
		c.ceLowCycleCount++
	}
	if c.ceLowCycleCount == MaxEnableCycles {
		c.refreshDeadlineHit = true
	}
}

// programPageMode issues the vendor-defined configuration write that puts
// the device in page mode.
func (c *Controller) programPageMode() {
	c.pins.Addr = ConfigPageMode
	c.pins.CRE = true
	c.pins.CEn = false
	c.pins.WEn = false
	c.pins.OEn = true
	c.pins.LBn = false
	c.pins.UBn = false

	c.currentIsRead = false
	c.cycleTarget = RandomAccessCycles
	c.waitCount = 0
	c.state = stateCounting
}

func (c *Controller) acceptOrRest(in Input) {
	if !in.Go {
		// No command. If the refresh deadline has been reached, release
		// the chip-enable line on our own so the device can refresh.
		if !c.pins.CEn && c.refreshDeadlineHit {
			c.pins.CEn = true
			c.pageValid = false
		}
		return
	}

	cmd := in.Cmd
	c.requestAddress = cmd.Address & addrMask
	c.currentIsRead = cmd.IsRead
	c.idle = false
	c.waitCount = 0

	c.pins.Addr = c.requestAddress
	c.pins.LBn = cmd.ByteEnable&0x1 == 0
	c.pins.UBn = cmd.ByteEnable&0x2 == 0
	c.pins.OEn = !cmd.IsRead
	c.pins.WEn = cmd.IsRead

	pageHit := cmd.IsRead &&
		c.pageValid &&
		PageTag(cmd.Address) == c.lastPageTag &&
		!c.refreshDeadlineHit

	switch {
	case pageHit:
		// The chip-enable line is already low and stays low; no recycle
		// is needed.
		c.cycleTarget = PageHitCycles
		c.state = stateCounting
	case cmd.IsRead:
		c.cycleTarget = RandomAccessCycles
		c.beginRecycle()
	default:
		c.cycleTarget = WriteCycles
		c.beginRecycle()
	}
}

// beginRecycle forces the chip-enable line high so the device sees a fresh
// access cycle when it is re-asserted.
func (c *Controller) beginRecycle() {
	c.pins.CEn = true
	c.pageValid = false
	c.state = stateDelay
}

// endRecycle re-asserts the chip-enable line after it has been held high for
// exactly one cycle.
func (c *Controller) endRecycle() {
	c.waitCount++
	c.pins.CEn = false
	c.state = stateCounting
}

func (c *Controller) count(in Input) {
	c.waitCount++

	// Page tracking follows the access in flight: a read opens its page, a
	// write (and the configuration cycle) closes page tracking.
	if c.currentIsRead {
		c.pageValid = true
		c.lastPageTag = PageTag(c.requestAddress)
	} else {
		c.pageValid = false
		c.lastPageTag = 0
	}

	if c.waitCount < c.cycleTarget {
		return
	}

	c.complete(in)
}

func (c *Controller) complete(in Input) {
	c.pins.OEn = true
	c.pins.WEn = true
	c.pins.LBn = true
	c.pins.UBn = true
	c.pins.CRE = false

	if c.currentIsRead {
		c.readDataLatch = in.DataIn

		// Reads leave the chip-enable line asserted so a following
		// same-page read can skip the recycle, unless the refresh
		// deadline has been reached.
		if c.refreshDeadlineHit {
			c.pins.CEn = true
			c.pageValid = false
		}
	} else {
		// Writes always recycle the chip-enable line.
		c.pins.CEn = true
		c.pageValid = false
	}

	c.waitCount = 0
	c.idle = true
	c.state = stateIdle
}
