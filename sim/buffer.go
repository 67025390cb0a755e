package sim

import "log"

// A Buffer is a bounded fifo queue of messages. Ports use it to hold
// incoming messages until the owning component retrieves them.
type Buffer interface {
	Named

	CanPush() bool
	Push(msg Msg)
	Pop() Msg
	Peek() Msg
	Capacity() int
	Size() int
}

// NewBuffer creates a buffer that holds up to capacity messages.
func NewBuffer(name string, capacity int) Buffer {
	return &msgBuffer{
		name:     name,
		capacity: capacity,
	}
}

type msgBuffer struct {
	name     string
	capacity int
	msgs     []Msg
}

func (b *msgBuffer) Name() string {
	return b.name
}

func (b *msgBuffer) CanPush() bool {
	return len(b.msgs) < b.capacity
}

func (b *msgBuffer) Push(msg Msg) {
	if len(b.msgs) >= b.capacity {
		log.Panic("buffer overflow")
	}

	b.msgs = append(b.msgs, msg)
}

func (b *msgBuffer) Pop() Msg {
	if len(b.msgs) == 0 {
		return nil
	}

	msg := b.msgs[0]
	b.msgs = b.msgs[1:]

	return msg
}

func (b *msgBuffer) Peek() Msg {
	if len(b.msgs) == 0 {
		return nil
	}

	return b.msgs[0]
}

func (b *msgBuffer) Capacity() int {
	return b.capacity
}

func (b *msgBuffer) Size() int {
	return len(b.msgs)
}
