package mixer

import (
	"sync"

	"github.com/eapache/queue"

	"mixer/protocol"
)

// PacketQueue buffers inbound messages from one sender until the next tick
// drains them. Enqueue runs on the connection's read goroutine and DrainAll
// on a tick worker, so both take the lock.
type PacketQueue struct {
	mu    sync.Mutex
	q     *queue.Queue
	owner Peer
}

func NewPacketQueue() *PacketQueue {
	return &PacketQueue{q: queue.New()}
}

// Enqueue appends msg. owner is remembered only when the queue was empty.
func (p *PacketQueue) Enqueue(msg protocol.Message, owner Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.q.Length() == 0 {
		p.owner = owner
	}
	p.q.Add(msg)
}

// DrainAll empties the queue in FIFO order and forgets the owner.
func (p *PacketQueue) DrainAll() ([]protocol.Message, Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := p.owner
	p.owner = nil

	n := p.q.Length()
	if n == 0 {
		return nil, nil
	}
	messages := make([]protocol.Message, 0, n)
	for p.q.Length() > 0 {
		messages = append(messages, p.q.Remove().(protocol.Message))
	}
	return messages, owner
}

func (p *PacketQueue) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.q.Length()
}
