package sim

import "sync"

// SendError marks a failure of sending a message over a connection.
type SendError struct{}

// NewSendError creates a new SendError.
func NewSendError() *SendError {
	return &SendError{}
}

// A Connection is responsible for delivering messages to their destination
// ports.
type Connection interface {
	Named

	// PlugIn connects a port to the connection.
	PlugIn(port Port)

	// CanSend checks if the connection can accept another message from the
	// given port.
	CanSend(src Port) bool

	// Send delivers the message toward msg.Meta().Dst.
	Send(msg Msg) *SendError

	// NotifyAvailable is called by a port to notify that the port can accept
	// messages again.
	NotifyAvailable(port Port)
}

// A DirectConnection delivers messages to the destination port in the same
// cycle as they are sent.
type DirectConnection struct {
	sync.Mutex

	name  string
	ports []Port

	// Ports whose sends were rejected, waiting for the congested destination
	// to free up.
	blockedSrcs map[Port]bool
}

// NewDirectConnection creates a new DirectConnection.
func NewDirectConnection(name string) *DirectConnection {
	c := new(DirectConnection)
	c.name = name
	c.blockedSrcs = make(map[Port]bool)
	return c
}

// Name returns the name of the connection.
func (c *DirectConnection) Name() string {
	return c.name
}

// PlugIn marks the port as connected to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	port.SetConnection(c)
}

// CanSend always returns true. Back pressure is applied through SendError
// returns from Send.
func (c *DirectConnection) CanSend(_ Port) bool {
	return true
}

// Send delivers the message to the destination port immediately. If the
// destination cannot accept the message, the sender is notified once the
// destination frees up.
func (c *DirectConnection) Send(msg Msg) *SendError {
	dst := msg.Meta().Dst

	err := dst.Deliver(msg)
	if err != nil {
		c.Lock()
		c.blockedSrcs[msg.Meta().Src] = true
		c.Unlock()
		return err
	}

	return nil
}

// NotifyAvailable is called by a congested port once it has buffer space
// again. All senders that were previously rejected are notified.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.Lock()
	blocked := c.blockedSrcs
	c.blockedSrcs = make(map[Port]bool)
	c.Unlock()

	for src := range blocked {
		src.NotifyAvailable()
	}
}
