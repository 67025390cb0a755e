package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type sampleMsg struct {
	MsgMeta
}

func (m *sampleMsg) Meta() *MsgMeta {
	return &m.MsgMeta
}

var _ = Describe("Port", func() {
	var (
		mockCtrl *gomock.Controller
		comp     *MockComponent
		conn     *MockConnection
		p        Port
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		comp = NewMockComponent(mockCtrl)
		conn = NewMockConnection(mockCtrl)
		p = NewPort(comp, 2, "Port")
		p.SetConnection(conn)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should send messages through the connection", func() {
		msg := &sampleMsg{}
		msg.Src = p
		msg.Dst = NewPort(nil, 1, "AnotherPort")

		conn.EXPECT().Send(msg).Return(nil)

		err := p.Send(msg)

		Expect(err).To(BeNil())
	})

	It("should propagate send errors from the connection", func() {
		msg := &sampleMsg{}
		msg.Src = p
		msg.Dst = NewPort(nil, 1, "AnotherPort")

		conn.EXPECT().Send(msg).Return(NewSendError())

		err := p.Send(msg)

		Expect(err).NotTo(BeNil())
	})

	It("should notify the component on the first delivered message", func() {
		msg := &sampleMsg{}

		comp.EXPECT().NotifyRecv(p)

		err := p.Deliver(msg)

		Expect(err).To(BeNil())
		Expect(p.Peek()).To(BeIdenticalTo(msg))
		Expect(p.Retrieve()).To(BeIdenticalTo(msg))
	})

	It("should reject deliveries when the incoming buffer is full", func() {
		comp.EXPECT().NotifyRecv(p)

		Expect(p.Deliver(&sampleMsg{})).To(BeNil())
		Expect(p.Deliver(&sampleMsg{})).To(BeNil())

		err := p.Deliver(&sampleMsg{})

		Expect(err).NotTo(BeNil())
	})

	It("should notify the connection when a full buffer frees up", func() {
		comp.EXPECT().NotifyRecv(p)

		Expect(p.Deliver(&sampleMsg{})).To(BeNil())
		Expect(p.Deliver(&sampleMsg{})).To(BeNil())

		conn.EXPECT().NotifyAvailable(p)

		p.Retrieve()
	})
})
