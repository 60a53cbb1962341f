package layout

import (
	"sync/atomic"
)

// SampleQueue is the single-producer/single-consumer FIFO that carries
// diagnostics samples from the stepping goroutine to an observer, built on
// a buffered channel. The producer never blocks: when the buffer is full
// the new sample is dropped and counted, so a slow or absent observer can
// never stall the simulation. Delivered samples preserve capture order.
type SampleQueue struct {
	ch      chan Sample
	dropped atomic.Uint64
}

func newSampleQueue(capacity int) *SampleQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &SampleQueue{ch: make(chan Sample, capacity)}
}

// push enqueues a sample without blocking and reports whether it was
// accepted.
func (q *SampleQueue) push(s Sample) bool {
	select {
	case q.ch <- s:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// TryNext pops the oldest buffered sample, if any.
func (q *SampleQueue) TryNext() (Sample, bool) {
	select {
	case s := <-q.ch:
		return s, true
	default:
		return Sample{}, false
	}
}

// Drain pops samples until the queue is empty and returns them in capture
// order. A nil slice means nothing was buffered.
func (q *SampleQueue) Drain() []Sample {
	var out []Sample
	for {
		s, ok := q.TryNext()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

// Len returns the number of currently buffered samples.
func (q *SampleQueue) Len() int { return len(q.ch) }

// Dropped returns how many samples were discarded because the buffer was
// full.
func (q *SampleQueue) Dropped() uint64 { return q.dropped.Load() }

// reset discards buffered samples at the start of a fresh run.
func (q *SampleQueue) reset() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}
