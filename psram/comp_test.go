package psram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/psramsim/mem"
	"github.com/sarchlab/psramsim/sim"
)

type accessCollector struct {
	items []AccessInfo
}

func (c *accessCollector) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosAccessStart && ctx.Pos != HookPosAccessComplete {
		return
	}
	c.items = append(c.items, ctx.Item.(AccessInfo))
}

var _ = Describe("Comp", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *MockEngine
		topPort  *MockPort
		srcPort  *MockPort
		storage  *mem.Storage
		comp     *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)
		topPort = NewMockPort(mockCtrl)
		srcPort = NewMockPort(mockCtrl)
		storage = mem.NewStorage(1 * mem.MB)

		comp = MakeBuilder().
			WithEngine(engine).
			WithFreq(100 * sim.MHz).
			WithStorage(storage).
			Build("PSRAM")
		comp.topPort = topPort
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	tickUntilQuiet := func() {
		for i := 0; i < 2000; i++ {
			comp.Tick()
		}
	}

	It("should serve a read request", func() {
		Expect(storage.Write(8, []byte{1, 2, 3, 4})).To(Succeed())

		req := mem.ReadReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(8).
			WithByteSize(4).
			Build()

		var rsp *mem.DataReadyRsp
		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				rsp = msg.(*mem.DataReadyRsp)
			}).
			Return(nil)

		tickUntilQuiet()

		Expect(rsp).NotTo(BeNil())
		Expect(rsp.RespondTo).To(Equal(req.ID))
		Expect(rsp.Data).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should serve an unaligned read request", func() {
		Expect(storage.Write(8, []byte{1, 2, 3, 4})).To(Succeed())

		req := mem.ReadReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(9).
			WithByteSize(3).
			Build()

		var rsp *mem.DataReadyRsp
		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				rsp = msg.(*mem.DataReadyRsp)
			}).
			Return(nil)

		tickUntilQuiet()

		Expect(rsp).NotTo(BeNil())
		Expect(rsp.Data).To(Equal([]byte{2, 3, 4}))
	})

	It("should serve a write request", func() {
		req := mem.WriteReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(16).
			WithData([]byte{5, 6}).
			Build()

		var rsp *mem.WriteDoneRsp
		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				rsp = msg.(*mem.WriteDoneRsp)
			}).
			Return(nil)

		tickUntilQuiet()

		Expect(rsp).NotTo(BeNil())
		Expect(rsp.RespondTo).To(Equal(req.ID))

		stored, err := storage.Read(16, 2)
		Expect(err).To(BeNil())
		Expect(stored).To(Equal([]byte{5, 6}))
	})

	It("should honor the dirty mask of a write request", func() {
		Expect(storage.Write(16, []byte{9, 9})).To(Succeed())

		req := mem.WriteReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(16).
			WithData([]byte{5, 6}).
			WithDirtyMask([]bool{false, true}).
			Build()

		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().Send(gomock.Any()).Return(nil)

		tickUntilQuiet()

		stored, err := storage.Read(16, 2)
		Expect(err).To(BeNil())
		Expect(stored).To(Equal([]byte{9, 6}))
	})

	It("should retry the response when the port is busy", func() {
		req := mem.WriteReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(16).
			WithData([]byte{5, 6}).
			Build()

		var rsp *mem.WriteDoneRsp
		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().Send(gomock.Any()).Return(&sim.SendError{})
		topPort.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				rsp = msg.(*mem.WriteDoneRsp)
			}).
			Return(nil)

		tickUntilQuiet()

		Expect(rsp).NotTo(BeNil())
	})

	It("should deliver every response when the port stays busy", func() {
		req1 := mem.WriteReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(16).
			WithData([]byte{5, 6}).
			Build()
		req2 := mem.WriteReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(32).
			WithData([]byte{7, 8}).
			Build()

		incoming := []sim.Msg{req1, req2}
		topPort.EXPECT().Peek().
			DoAndReturn(func() sim.Msg {
				if len(incoming) == 0 {
					return nil
				}
				return incoming[0]
			}).
			AnyTimes()
		topPort.EXPECT().Retrieve().
			DoAndReturn(func() sim.Msg {
				msg := incoming[0]
				incoming = incoming[1:]
				return msg
			}).
			AnyTimes()

		portBusy := true
		var delivered []sim.Msg
		topPort.EXPECT().Send(gomock.Any()).
			DoAndReturn(func(msg sim.Msg) *sim.SendError {
				if portBusy {
					return &sim.SendError{}
				}
				delivered = append(delivered, msg)
				return nil
			}).
			AnyTimes()

		for i := 0; i < 100; i++ {
			comp.Tick()
		}
		Expect(delivered).To(BeEmpty())

		portBusy = false
		tickUntilQuiet()

		Expect(delivered).To(HaveLen(2))
		Expect(delivered[0].(*mem.WriteDoneRsp).RespondTo).To(Equal(req1.ID))
		Expect(delivered[1].(*mem.WriteDoneRsp).RespondTo).To(Equal(req2.ID))
	})

	It("should report accesses through hooks", func() {
		collector := &accessCollector{}
		comp.AcceptHook(collector)

		req := mem.ReadReqBuilder{}.
			WithSrc(srcPort).
			WithDst(topPort).
			WithAddress(8).
			WithByteSize(4).
			Build()

		topPort.EXPECT().Peek().Return(req)
		topPort.EXPECT().Retrieve().Return(req)
		topPort.EXPECT().Peek().Return(nil).AnyTimes()
		topPort.EXPECT().Send(gomock.Any()).Return(nil)

		tickUntilQuiet()

		// Two device accesses, each with a start and a complete record.
		Expect(collector.items).To(HaveLen(4))
		Expect(collector.items[0].IsRead).To(BeTrue())
		Expect(collector.items[0].ReqID).To(Equal(req.ID))
		Expect(collector.items[1].Cycles).To(Equal(RandomAccessCycles))
		Expect(collector.items[1].PageHit).To(BeFalse())
		Expect(collector.items[3].Cycles).To(Equal(PageHitCycles))
		Expect(collector.items[3].PageHit).To(BeTrue())
	})
})
