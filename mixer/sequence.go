package mixer

import (
	"sync/atomic"

	"mixer/protocol"
)

// SequenceTracker counts avatar data messages whose sequence number went
// backwards. It compares only against the previous value and does not
// compute modular distance: a drop right after the wrap from
// MaxSequenceNumber is exempt, but a large reordering that crosses the wrap
// some other way goes unnoticed.
type SequenceTracker struct {
	last       protocol.SequenceNumber
	outOfOrder atomic.Uint64
}

// Observe records seq and reports whether it was counted as out of order.
func (s *SequenceTracker) Observe(seq protocol.SequenceNumber) bool {
	outOfOrder := seq < s.last && s.last != protocol.MaxSequenceNumber
	if outOfOrder {
		s.outOfOrder.Add(1)
	}
	s.last = seq
	return outOfOrder
}

func (s *SequenceTracker) Last() protocol.SequenceNumber {
	return s.last
}

// OutOfOrder is safe to call from any goroutine.
func (s *SequenceTracker) OutOfOrder() uint64 {
	return s.outOfOrder.Load()
}
