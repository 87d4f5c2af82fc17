// Package metrics exposes a small set of atomic counters per device. It is
// an observability surface, not a control path: nothing in internal/device
// ever branches on a metrics value.
package metrics

import "sync/atomic"

// Counters tracks the lifecycle of batches and callbacks for one device.
type Counters struct {
	Admitted    atomic.Int64
	Rejected    atomic.Int64
	Dispatched  atomic.Int64
	Callbacks   atomic.Int64
	RunFailures atomic.Int64
}

// Snapshot returns a point-in-time copy suitable for JSON marshaling.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"admitted":     c.Admitted.Load(),
		"rejected":     c.Rejected.Load(),
		"dispatched":   c.Dispatched.Load(),
		"callbacks":    c.Callbacks.Load(),
		"run_failures": c.RunFailures.Load(),
	}
}
