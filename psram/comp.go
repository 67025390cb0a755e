package psram

import (
	"log"
	"reflect"

	"github.com/sarchlab/psramsim/mem"
	"github.com/sarchlab/psramsim/sim"
)

// HookPosAccessStart marks when a 16-bit device access is issued to the
// timing controller.
var HookPosAccessStart = &sim.HookPos{Name: "PSRAM Access Start"}

// HookPosAccessComplete marks when a 16-bit device access completes.
var HookPosAccessComplete = &sim.HookPos{Name: "PSRAM Access Complete"}

// AccessInfo describes one device access for hooks.
type AccessInfo struct {
	ReqID   string
	Address uint32
	IsRead  bool

	// Cycles and PageHit are only meaningful at HookPosAccessComplete.
	Cycles  int
	PageHit bool
}

// A Comp is the bus front end of the PSRAM controller.
//
// It accepts read and write requests of arbitrary byte size on its top port,
// splits them into 16-bit device accesses, and sequences those accesses
// through the timing controller one at a time. The controller only samples a
// new command while it reports idle, so reads and writes can never overlap
// at the device.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port

	ctrl   *Controller
	device *Device

	trans      *transaction
	pendingRsp sim.Msg
}

// A transaction is one bus request split into device accesses.
type transaction struct {
	req      mem.AccessReq
	accesses []Command

	// next indexes the access currently presented to the controller once
	// inFlight is set, or the next one to issue.
	next     int
	inFlight bool

	// For reads: the byte offset of each access's data in the result, and
	// the assembled result itself.
	offsets []int
	data    []byte
}

// Tick updates the front-end state and advances the controller and the
// device model by one cycle.
func (c *Comp) Tick() bool {
	madeProgress := c.sendRsp()
	madeProgress = c.parseTop() || madeProgress

	busy := c.tickHardware()

	return madeProgress || busy
}

// sendRsp retries the response that could not be delivered earlier.
func (c *Comp) sendRsp() bool {
	if c.pendingRsp == nil {
		return false
	}

	if err := c.topPort.Send(c.pendingRsp); err != nil {
		return false
	}

	c.pendingRsp = nil
	return true
}

// parseTop starts working on the next request. The front end handles one
// bus request at a time, and holds off while an earlier response still
// waits for the top port so that response is never overwritten.
func (c *Comp) parseTop() bool {
	if c.trans != nil || c.pendingRsp != nil {
		return false
	}

	msg := c.topPort.Peek()
	if msg == nil {
		return false
	}

	switch req := msg.(type) {
	case *mem.ReadReq:
		c.trans = splitReadReq(req)
	case *mem.WriteReq:
		c.trans = splitWriteReq(req)
	default:
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	c.topPort.Retrieve()
	return true
}

// tickHardware advances the controller and the device by one cycle, issuing
// and retiring device accesses as the controller becomes idle. It returns
// true while the hardware still needs to be ticked: an access is in flight,
// or the chip-enable line is still asserted and the refresh watchdog has to
// keep running until the controller releases it.
func (c *Comp) tickHardware() bool {
	in := Input{}

	issued := false
	if c.trans != nil && c.trans.next < len(c.trans.accesses) {
		in.Cmd = c.trans.accesses[c.trans.next]
		if !c.trans.inFlight && c.ctrl.Idle() {
			in.Go = true
			issued = true
		}
	}

	in.DataIn = c.device.Tick(c.ctrl.Pins())
	c.ctrl.Tick(in)

	if issued {
		c.trans.inFlight = true
		c.invokeAccessHook(HookPosAccessStart, in.Cmd, AccessInfo{
			ReqID:   c.trans.req.Meta().ID,
			Address: in.Cmd.Address,
			IsRead:  in.Cmd.IsRead,
		})
	}

	if c.trans != nil && c.trans.inFlight && c.ctrl.Idle() {
		c.retireAccess()
	}

	return c.trans != nil ||
		c.pendingRsp != nil ||
		!c.ctrl.Idle() ||
		c.ctrl.EnableAsserted() ||
		c.device.CommitPending()
}

func (c *Comp) retireAccess() {
	t := c.trans
	cmd := t.accesses[t.next]

	c.invokeAccessHook(HookPosAccessComplete, cmd, AccessInfo{
		ReqID:   t.req.Meta().ID,
		Address: cmd.Address,
		IsRead:  cmd.IsRead,
		Cycles:  c.ctrl.CycleTarget(),
		PageHit: c.ctrl.CycleTarget() == PageHitCycles,
	})

	if cmd.IsRead {
		t.collectReadData(t.next, c.ctrl.ReadData())
	}

	t.inFlight = false
	t.next++

	if t.next == len(t.accesses) {
		c.respond()
	}
}

func (c *Comp) respond() {
	t := c.trans

	switch req := t.req.(type) {
	case *mem.ReadReq:
		c.pendingRsp = mem.DataReadyRspBuilder{}.
			WithSrc(c.topPort).
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(t.data).
			Build()
	case *mem.WriteReq:
		c.pendingRsp = mem.WriteDoneRspBuilder{}.
			WithSrc(c.topPort).
			WithDst(req.Src).
			WithRspTo(req.ID).
			Build()
	}

	c.trans = nil
	c.sendRsp()
}

func (c *Comp) invokeAccessHook(
	pos *sim.HookPos,
	_ Command,
	info AccessInfo,
) {
	ctx := sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   info,
	}
	c.InvokeHook(ctx)
}

// splitReadReq cuts a byte-addressed read into 16-bit device accesses.
// Accesses that only need one byte of a word enable a single byte lane.
func splitReadReq(req *mem.ReadReq) *transaction {
	t := &transaction{
		req:  req,
		data: make([]byte, req.AccessByteSize),
	}

	start := req.Address
	end := req.Address + req.AccessByteSize

	for wordAddr := start / 2; wordAddr*2 < end; wordAddr++ {
		byteEnable, _ := laneSelect(wordAddr, start, end, nil, nil)

		t.accesses = append(t.accesses, Command{
			Address:    uint32(wordAddr),
			ByteEnable: byteEnable,
			IsRead:     true,
		})
		t.offsets = append(t.offsets, int(wordAddr*2)-int(start))
	}

	return t
}

// splitWriteReq cuts a byte-addressed write into 16-bit device accesses,
// folding the request's dirty mask into the byte-enable lanes.
func splitWriteReq(req *mem.WriteReq) *transaction {
	t := &transaction{req: req}

	start := req.Address
	end := req.Address + uint64(len(req.Data))

	for wordAddr := start / 2; wordAddr*2 < end; wordAddr++ {
		byteEnable, data := laneSelect(
			wordAddr, start, end, req.Data, req.DirtyMask)

		if byteEnable == 0 {
			// Both bytes of this word are masked off; skip the access
			// entirely.
			continue
		}

		t.accesses = append(t.accesses, Command{
			Address:    uint32(wordAddr),
			Data:       data,
			ByteEnable: byteEnable,
			IsRead:     false,
		})
	}

	return t
}

// laneSelect computes the byte-enable lanes of the given word for an access
// covering [start, end), and, when writeData is given, the 16-bit value to
// drive. A nil dirty mask writes every covered byte.
func laneSelect(
	wordAddr, start, end uint64,
	writeData []byte,
	dirtyMask []bool,
) (byteEnable uint8, data uint16) {
	for lane := uint64(0); lane < 2; lane++ {
		byteAddr := wordAddr*2 + lane
		if byteAddr < start || byteAddr >= end {
			continue
		}

		if dirtyMask != nil && !dirtyMask[byteAddr-start] {
			continue
		}

		byteEnable |= 1 << lane

		if writeData != nil {
			data |= uint16(writeData[byteAddr-start]) << (8 * lane)
		}
	}

	return byteEnable, data
}

// collectReadData places the lanes of one completed read access into the
// assembled result.
func (t *transaction) collectReadData(i int, word uint16) {
	cmd := t.accesses[i]
	offset := t.offsets[i]

	if cmd.ByteEnable&0x1 != 0 {
		t.data[offset] = byte(word)
	}
	if cmd.ByteEnable&0x2 != 0 {
		t.data[offset+1] = byte(word >> 8)
	}
}
