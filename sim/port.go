package sim

import "sync"

// HookPosPortMsgSend marks when a message is sent out from the port.
var HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecvd marks when an inbound message arrives at a port.
var HookPosPortMsgRecvd = &HookPos{Name: "Port Msg Recv"}

// HookPosPortMsgRetrieve marks when an inbound message is retrieved from the
// incoming buffer.
var HookPosPortMsgRetrieve = &HookPos{Name: "Port Msg Retrieve"}

// A Port is owned by a component and is used to plug in connections.
type Port interface {
	Named
	Hookable

	SetConnection(conn Connection)
	Component() Component

	// For connections.
	Deliver(msg Msg) *SendError
	NotifyAvailable()

	// For components.
	CanSend() bool
	Send(msg Msg) *SendError
	Retrieve() Msg
	Peek() Msg
}

// NewPort creates a new port with an incoming buffer of the given capacity.
func NewPort(comp Component, bufCapacity int, name string) Port {
	p := new(port)
	p.comp = comp
	p.name = name
	p.incomingBuf = NewBuffer(name+".IncomingBuf", bufCapacity)
	return p
}

type port struct {
	HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf Buffer
}

func (p *port) Name() string {
	return p.name
}

// SetConnection sets which connection is plugged into this port.
func (p *port) SetConnection(conn Connection) {
	if p.conn != nil {
		panic("connection already set on port " + p.name)
	}

	p.conn = conn
}

func (p *port) Component() Component {
	return p.comp
}

// CanSend checks if the connection can accept another message from this port.
func (p *port) CanSend() bool {
	return p.conn.CanSend(p)
}

// Send is used by the owning component to send a message out.
func (p *port) Send(msg Msg) *SendError {
	p.msgMustBeValid(msg)

	err := p.conn.Send(msg)
	if err != nil {
		return err
	}

	hookCtx := HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgSend,
		Item:   msg,
	}
	p.InvokeHook(hookCtx)

	return nil
}

// Deliver is used by the connection to deliver a message to the component.
func (p *port) Deliver(msg Msg) *SendError {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0
	p.incomingBuf.Push(msg)

	hookCtx := HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRecvd,
		Item:   msg,
	}
	p.InvokeHook(hookCtx)
	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// Retrieve is used by the component to take a message from the incoming
// buffer.
func (p *port) Retrieve() Msg {
	p.lock.Lock()

	msg := p.incomingBuf.Pop()
	if msg == nil {
		p.lock.Unlock()
		return nil
	}

	wasFull := p.incomingBuf.Size() == p.incomingBuf.Capacity()-1
	p.lock.Unlock()

	hookCtx := HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRetrieve,
		Item:   msg,
	}
	p.InvokeHook(hookCtx)

	if wasFull {
		p.conn.NotifyAvailable(p)
	}

	return msg
}

// Peek returns the first message in the incoming buffer without removing it.
func (p *port) Peek() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.incomingBuf.Peek()
}

// NotifyAvailable is called by the connection to notify the port that the
// connection can accept messages again.
func (p *port) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *port) msgMustBeValid(msg Msg) {
	if msg.Meta().Src != p {
		panic("sending port is not msg src")
	}

	if msg.Meta().Dst == nil {
		panic("dst is not given")
	}

	if msg.Meta().Src == msg.Meta().Dst {
		panic("sending back to src")
	}
}
