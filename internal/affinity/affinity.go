// Package affinity models the CPU affinity list the device orchestrator
// consumes leaf-first: last element to the scheduler, then one per shim
// thread, then the remainder to driver/initialization context, with an
// optional reserved "ringfence" core carved out for the vendor driver
// first.
package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// List is an ordered, mutable sequence of CPU ids. Resolve pops from the end,
// documented leaf-first order: ringfence reservation first (from the front,
// since the original driver carve-out takes CPUs before the scheduler/shim
// pool is assigned), then scheduler, then shims, with everything left over
// returned as driver/initialization context.
type List struct {
	cpus []int
}

// New copies ids into a new List.
func New(ids []int) *List {
	cpus := make([]int, len(ids))
	copy(cpus, ids)
	return &List{cpus: cpus}
}

// Plan is the result of consuming a List for one device: a scheduler CPU, a
// shim CPU per shim thread, and whatever is left for driver/init context.
type Plan struct {
	Ringfenced []int
	Scheduler  int
	HasSched   bool
	Shims      []int
	Remainder  []int
}

// Resolve consumes the list leaf-first for a device with the given shim
// count. When ringfenceDriver is true, one CPU is reserved for the vendor
// driver before the scheduler/shim pool is assigned, taken from the front
// of the list so it never collides with the leaf-first pool.
func Resolve(l *List, shimCount int, ringfenceDriver bool) (Plan, error) {
	cpus := append([]int(nil), l.cpus...)
	var plan Plan

	if ringfenceDriver {
		if len(cpus) == 0 {
			return plan, fmt.Errorf("affinity: ringfence requested but affinity list is empty")
		}
		plan.Ringfenced = append(plan.Ringfenced, cpus[0])
		cpus = cpus[1:]
	}

	if len(cpus) == 0 {
		return plan, fmt.Errorf("affinity: no CPUs left for scheduler after ringfence")
	}
	plan.Scheduler = cpus[len(cpus)-1]
	plan.HasSched = true
	cpus = cpus[:len(cpus)-1]

	for i := 0; i < shimCount; i++ {
		if len(cpus) == 0 {
			return plan, fmt.Errorf("affinity: affinity list exhausted after %d of %d shim threads", i, shimCount)
		}
		plan.Shims = append(plan.Shims, cpus[len(cpus)-1])
		cpus = cpus[:len(cpus)-1]
	}

	plan.Remainder = cpus
	return plan, nil
}

// PinCurrentThread locks the calling goroutine to its current OS thread and
// restricts that thread to cpu. Goroutines are not OS threads until locked;
// callers must invoke this from the goroutine that should stay pinned for
// its lifetime, typically as the first statement in a scheduler or shim
// loop, and must never call runtime.UnlockOSThread before the loop exits.
func PinCurrentThread(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
