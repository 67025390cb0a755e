// Package acceptancetests provides traffic generators that stress memory
// components with random access patterns and verify the data they return.
package acceptancetests

import (
	"bytes"
	"log"
	"math/rand"

	"github.com/sarchlab/psramsim/mem"
	"github.com/sarchlab/psramsim/sim"
)

// maxOutstanding limits how many requests the agent keeps in flight.
const maxOutstanding = 4

// accessByteSize is the size of every access the agent generates.
const accessByteSize = 4

// A MemAccessAgent writes random data to random addresses and reads them
// back, panicking if the memory returns anything other than the most
// recently written value.
type MemAccessAgent struct {
	*sim.TickingComponent

	// MemPort is the port of the memory component under test.
	MemPort sim.Port

	// MaxAddress bounds the generated addresses.
	MaxAddress uint64

	WriteLeft int
	ReadLeft  int

	toMem sim.Port
	rand  *rand.Rand

	knownMemValue map[uint64][]byte
	pendingReads  map[string]*mem.ReadReq
	pendingWrites map[string]*mem.WriteReq
}

// NewMemAccessAgent creates a MemAccessAgent. Traffic generation is
// deterministic for a given seed.
func NewMemAccessAgent(
	engine sim.Engine,
	freq sim.Freq,
	name string,
	seed int64,
) *MemAccessAgent {
	a := &MemAccessAgent{
		rand:          rand.New(rand.NewSource(seed)),
		knownMemValue: make(map[uint64][]byte),
		pendingReads:  make(map[string]*mem.ReadReq),
		pendingWrites: make(map[string]*mem.WriteReq),
	}
	a.TickingComponent = sim.NewTickingComponent(name, engine, freq, a)

	a.toMem = sim.NewPort(a, 4, name+".ToMem")
	a.AddPort("Mem", a.toMem)

	return a
}

// ToMem returns the port the agent sends memory requests from.
func (a *MemAccessAgent) ToMem() sim.Port {
	return a.toMem
}

// Done returns true when all the requested accesses have completed.
func (a *MemAccessAgent) Done() bool {
	return a.WriteLeft == 0 && a.ReadLeft == 0 &&
		len(a.pendingReads) == 0 && len(a.pendingWrites) == 0
}

// Tick processes one response and issues one request per cycle.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := a.processRsp()
	madeProgress = a.issue() || madeProgress
	return madeProgress
}

func (a *MemAccessAgent) processRsp() bool {
	msg := a.toMem.Retrieve()
	if msg == nil {
		return false
	}

	switch rsp := msg.(type) {
	case *mem.DataReadyRsp:
		a.checkReadResult(rsp)
	case *mem.WriteDoneRsp:
		a.commitWrite(rsp)
	default:
		log.Panicf("agent cannot handle message %T", msg)
	}

	return true
}

func (a *MemAccessAgent) checkReadResult(rsp *mem.DataReadyRsp) {
	req, found := a.pendingReads[rsp.RespondTo]
	if !found {
		log.Panicf("response %s does not match any request", rsp.RespondTo)
	}
	delete(a.pendingReads, rsp.RespondTo)

	expected := a.knownMemValue[req.Address]
	if !bytes.Equal(rsp.Data, expected) {
		log.Panicf("read 0x%x: got %v, expected %v",
			req.Address, rsp.Data, expected)
	}
}

func (a *MemAccessAgent) commitWrite(rsp *mem.WriteDoneRsp) {
	req, found := a.pendingWrites[rsp.RespondTo]
	if !found {
		log.Panicf("response %s does not match any request", rsp.RespondTo)
	}
	delete(a.pendingWrites, rsp.RespondTo)

	a.knownMemValue[req.Address] = req.Data
}

func (a *MemAccessAgent) issue() bool {
	if len(a.pendingReads)+len(a.pendingWrites) >= maxOutstanding {
		return false
	}

	switch {
	case a.shouldRead():
		return a.doRead()
	case a.WriteLeft > 0:
		return a.doWrite()
	default:
		return false
	}
}

// shouldRead decides between reading and writing. Reads only target
// addresses that have been written before, so the expected value is known.
func (a *MemAccessAgent) shouldRead() bool {
	if a.ReadLeft == 0 || len(a.knownMemValue) == 0 {
		return false
	}
	if a.WriteLeft == 0 {
		return true
	}
	return a.rand.Int()%2 == 0
}

func (a *MemAccessAgent) doRead() bool {
	addr := a.randomKnownAddress()

	req := mem.ReadReqBuilder{}.
		WithSrc(a.toMem).
		WithDst(a.MemPort).
		WithAddress(addr).
		WithByteSize(accessByteSize).
		Build()

	if err := a.toMem.Send(req); err != nil {
		return false
	}

	a.pendingReads[req.ID] = req
	a.ReadLeft--
	return true
}

func (a *MemAccessAgent) doWrite() bool {
	addr := a.randomAddress()
	data := make([]byte, accessByteSize)
	a.rand.Read(data)

	req := mem.WriteReqBuilder{}.
		WithSrc(a.toMem).
		WithDst(a.MemPort).
		WithAddress(addr).
		WithData(data).
		Build()

	if err := a.toMem.Send(req); err != nil {
		return false
	}

	a.pendingWrites[req.ID] = req
	a.WriteLeft--
	return true
}

func (a *MemAccessAgent) randomAddress() uint64 {
	numSlots := a.MaxAddress / accessByteSize
	return uint64(a.rand.Int63n(int64(numSlots))) * accessByteSize
}

func (a *MemAccessAgent) randomKnownAddress() uint64 {
	n := a.rand.Intn(len(a.knownMemValue))
	for addr := range a.knownMemValue {
		if n == 0 {
			return addr
		}
		n--
	}
	panic("unreachable")
}
