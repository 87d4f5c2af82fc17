// Package admission implements the bounded single-producer/single-consumer
// queue of fixed-size sample batches that sits between the external
// submitter and the per-device scheduler.
package admission

import (
	"sync/atomic"

	"github.com/onyxsilicon/qdispatch/internal/sample"
)

// Queue is a fixed-capacity circular buffer of sample.Batch with two
// monotonically increasing counters. front and back are atomic; the single
// producer only ever advances back, the single consumer only ever advances
// front, and the counter updates establish visibility on the backing array
// without a mutex.
type Queue struct {
	depth int64
	slots []sample.Batch
	front atomic.Int64
	back  atomic.Int64
}

// New creates a Queue with the given capacity. depth must be positive.
func New(depth int) *Queue {
	if depth <= 0 {
		panic("admission: depth must be positive")
	}
	return &Queue{
		depth: int64(depth),
		slots: make([]sample.Batch, depth),
	}
}

// TrySubmit stores batch if there is room, returning the remaining slack
// (depth - occupancy after the submission) and true. If the queue is full
// it returns (0, false): the caller must retry or back off. Non-blocking.
//
// TrySubmit is not safe for concurrent callers: it is a single-producer
// operation, matching the load-then-store on back with no CAS. Callers
// with multiple external producer goroutines (internal/device.Device is
// one) must serialize their own calls into TrySubmit with a mutex rather
// than relying on this type for mutual exclusion.
func (q *Queue) TrySubmit(batch sample.Batch) (int, bool) {
	back := q.back.Load()
	front := q.front.Load()
	if back-front >= q.depth {
		return 0, false
	}
	q.slots[back%q.depth] = batch
	q.back.Store(back + 1)
	return int(q.depth - (back + 1 - front)), true
}

// TryPop removes and returns the oldest batch, or (nil, false) if the queue
// is empty. Non-blocking.
func (q *Queue) TryPop() (sample.Batch, bool) {
	front := q.front.Load()
	back := q.back.Load()
	if front == back {
		return nil, false
	}
	b := q.slots[front%q.depth]
	q.slots[front%q.depth] = nil
	q.front.Store(front + 1)
	return b, true
}

// Depth reports the queue's fixed capacity.
func (q *Queue) Depth() int {
	return int(q.depth)
}

// Occupancy reports the current number of queued batches. Intended for
// metrics and tests; the value may be stale by the time the caller reads it
// if the other side is concurrently active.
func (q *Queue) Occupancy() int {
	return int(q.back.Load() - q.front.Load())
}
