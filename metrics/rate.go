// Package metrics holds sliding-window rate meters and the Prometheus
// collectors shared by the mixer.
package metrics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const window = 10

// RateMeter averages a quantity per second over the last ten one-second buckets.
type RateMeter struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets [window]float64
	idx     int
	last    time.Time
	start   time.Time
	total   float64
}

func NewRateMeter(c clock.Clock) *RateMeter {
	now := c.Now()
	return &RateMeter{
		clock: c,
		last:  now,
		start: now,
	}
}

func (r *RateMeter) advance(now time.Time) {
	elapsed := now.Sub(r.last)
	if elapsed < time.Second {
		return
	}
	seconds := int(elapsed / time.Second)
	if seconds >= window {
		r.buckets = [window]float64{}
		r.idx = 0
	} else {
		for i := 0; i < seconds; i++ {
			r.idx = (r.idx + 1) % window
			r.buckets[r.idx] = 0
		}
	}
	r.last = r.last.Add(time.Duration(seconds) * time.Second)
}

func (r *RateMeter) Add(n float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance(r.clock.Now())
	r.buckets[r.idx] += n
	r.total += n
}

// Rate returns the per-second average. Before a full window has elapsed the
// average is taken over the time seen so far, never less than one second.
func (r *RateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.advance(now)

	var sum float64
	for _, v := range r.buckets {
		sum += v
	}
	span := now.Sub(r.start).Seconds()
	if span > window {
		span = window
	}
	if span < 1 {
		span = 1
	}
	return sum / span
}

// Total is everything ever added.
func (r *RateMeter) Total() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
