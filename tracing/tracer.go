package tracing

import (
	"sync"

	"github.com/sarchlab/psramsim/psram"
	"github.com/sarchlab/psramsim/sim"
)

// accessTableName is the table the tracer writes into.
const accessTableName = "psram_accesses"

// An AccessEntry is one row of the access trace.
type AccessEntry struct {
	ReqID     string
	Where     string
	StartTime float64
	EndTime   float64
	Address   uint64
	Kind      string
	Cycles    int
	PageHit   bool
}

// An AccessTracer records every device access of a PSRAM controller and
// aggregates page-hit statistics. Attach it with CollectAccessTrace.
type AccessTracer struct {
	lock sync.Mutex

	timeTeller sim.TimeTeller
	recorder   DataRecorder

	// The controller serializes accesses, so one start per domain can be
	// in flight.
	inflight map[string]AccessEntry

	numRead    uint64
	numWrite   uint64
	numPageHit uint64
}

// NewAccessTracer creates an AccessTracer that writes the trace with the
// given recorder. A nil recorder only aggregates statistics.
func NewAccessTracer(
	timeTeller sim.TimeTeller,
	recorder DataRecorder,
) *AccessTracer {
	t := &AccessTracer{
		timeTeller: timeTeller,
		recorder:   recorder,
		inflight:   make(map[string]AccessEntry),
	}

	if recorder != nil {
		recorder.CreateTable(accessTableName, AccessEntry{})
	}

	return t
}

// CollectAccessTrace attaches the tracer to a PSRAM controller component.
func CollectAccessTrace(domain sim.Hookable, t *AccessTracer) {
	domain.AcceptHook(t)
}

// Func records access starts and completions.
func (t *AccessTracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case psram.HookPosAccessStart:
		t.startAccess(ctx)
	case psram.HookPosAccessComplete:
		t.endAccess(ctx)
	}
}

func (t *AccessTracer) startAccess(ctx sim.HookCtx) {
	info := ctx.Item.(psram.AccessInfo)
	where := ctx.Domain.(sim.Named).Name()

	entry := AccessEntry{
		ReqID:     info.ReqID,
		Where:     where,
		StartTime: float64(t.timeTeller.CurrentTime()),
		Address:   uint64(info.Address),
		Kind:      accessKind(info),
	}

	t.lock.Lock()
	t.inflight[where] = entry
	t.lock.Unlock()
}

func (t *AccessTracer) endAccess(ctx sim.HookCtx) {
	info := ctx.Item.(psram.AccessInfo)
	where := ctx.Domain.(sim.Named).Name()

	t.lock.Lock()
	defer t.lock.Unlock()

	entry, found := t.inflight[where]
	if !found {
		return
	}
	delete(t.inflight, where)

	entry.EndTime = float64(t.timeTeller.CurrentTime())
	entry.Cycles = info.Cycles
	entry.PageHit = info.PageHit

	if info.IsRead {
		t.numRead++
	} else {
		t.numWrite++
	}
	if info.PageHit {
		t.numPageHit++
	}

	if t.recorder != nil {
		t.recorder.InsertData(accessTableName, entry)
	}
}

// TotalAccesses returns the number of completed device accesses.
func (t *AccessTracer) TotalAccesses() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.numRead + t.numWrite
}

// ReadCount returns the number of completed read accesses.
func (t *AccessTracer) ReadCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.numRead
}

// WriteCount returns the number of completed write accesses.
func (t *AccessTracer) WriteCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.numWrite
}

// PageHitRate returns the fraction of reads that hit the open page.
func (t *AccessTracer) PageHitRate() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.numRead == 0 {
		return 0
	}
	return float64(t.numPageHit) / float64(t.numRead)
}

func accessKind(info psram.AccessInfo) string {
	if info.IsRead {
		return "read"
	}
	return "write"
}
