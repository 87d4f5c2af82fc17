// Package ring implements the bounded pool of pre-allocated Payload slots
// that sits in front of one activation's hardware sets. It is the leaf
// component of the dispatch core: a fixed-capacity FIFO of free slots,
// checked out at submission time and returned on completion.
package ring

import (
	"fmt"
	"sync"

	"github.com/onyxsilicon/qdispatch/internal/sample"
)

// Payload pairs a submitted batch with the activation/set it will run on,
// plus a non-owning back-reference to the device that owns it. Owner is
// left untyped (any) so this package has no dependency on internal/device,
// which in turn depends on ring; the device package sets it when it
// acquires a slot, and nothing in the core reads it back.
// This is the arena-handle pattern the spec calls for in place of a
// shared-ownership cycle between Payload and Device.
type Payload struct {
	DeviceID   int
	Activation int
	Set        int
	Owner      any

	// Batch holds the samples assigned to this slot for the in-flight
	// workload. Cleared on release.
	Batch sample.Batch

	// CorrelationID is a per-dispatch identifier used only for log
	// correlation across the scheduler -> shim -> completion hop.
	CorrelationID string
}

// Buffer is a fixed-capacity FIFO of free *Payload slots for one activation.
// Capacity is static after construction; there is no growth policy.
type Buffer struct {
	mu       sync.Mutex
	free     []*Payload
	capacity int
}

// New pre-allocates capacity Payload records for the given device/activation
// pair and populates the buffer with all of them free.
func New(deviceID, activation, capacity int) *Buffer {
	b := &Buffer{
		free:     make([]*Payload, 0, capacity),
		capacity: capacity,
	}
	for s := 0; s < capacity; s++ {
		b.free = append(b.free, &Payload{
			DeviceID:   deviceID,
			Activation: activation,
			Set:        s,
		})
	}
	return b
}

// Acquire returns a free slot, or (nil, false) if the buffer is empty.
// Non-blocking.
func (b *Buffer) Acquire() (*Payload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.free)
	if n == 0 {
		return nil, false
	}
	p := b.free[0]
	copy(b.free, b.free[1:])
	b.free[n-1] = nil
	b.free = b.free[:n-1]
	return p, true
}

// Release returns a slot to the pool. It panics on a nil slot or on a
// release that would push the buffer past its original capacity: both
// indicate a double-release or a slot that was never acquired from this
// buffer, which is a programming error in the caller, not a recoverable
// runtime condition.
func (b *Buffer) Release(p *Payload) {
	if p == nil {
		panic("ring: release of nil payload")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.free) >= b.capacity {
		panic(fmt.Sprintf("ring: double-release on activation %d set %d (capacity %d)", p.Activation, p.Set, b.capacity))
	}
	p.Batch = nil
	b.free = append(b.free, p)
}

// Len reports the number of currently free slots.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.free)
}

// Capacity reports the buffer's fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}
