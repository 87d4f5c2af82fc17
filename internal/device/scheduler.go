package device

import (
	"github.com/google/uuid"

	"github.com/onyxsilicon/qdispatch/internal/affinity"
	"github.com/onyxsilicon/qdispatch/internal/ring"
	"github.com/onyxsilicon/qdispatch/internal/sample"
)

// runScheduler is the dedicated, CPU-pinned per-device loop: pop a batch,
// round-robin across activations to find a free payload slot, hand the
// slot to the Enqueue Shim. The round-robin index is local to this
// goroutine and persists across iterations, per the spec's resolution of
// Open Question 1.
func (d *Device) runScheduler(plan affinity.Plan) {
	defer d.wg.Done()

	if plan.HasSched {
		if err := affinity.PinCurrentThread(plan.Scheduler); err != nil {
			d.log.Warn("failed to pin scheduler thread", "cpu", plan.Scheduler, "error", err)
		}
	}

	activation := -1

	for {
		if d.ctx.Err() != nil {
			return
		}

		batch, ok := d.admissionQ.TryPop()
		if !ok {
			defaultYield(d.cfg.SchedulerYieldTime)
			continue
		}

		p := d.acquireSlotRoundRobin(&activation, batch)
		if p == nil {
			// Shutdown fired while no slot was available: the spec
			// documents this batch as dropped rather than retried forever.
			d.log.Warn("dropping batch on shutdown: no free slot", "batch_size", len(batch))
			return
		}

		p.CorrelationID = uuid.NewString()
		d.metrics.Dispatched.Add(1)
		d.shim.submit(p)
	}
}

// acquireSlotRoundRobin sweeps activations starting from the index after
// the last one used, advancing and persisting *activation across calls. It
// returns nil only when the context is cancelled and shutdown wins the
// race before a slot becomes free.
func (d *Device) acquireSlotRoundRobin(activation *int, batch sample.Batch) *ring.Payload {
	n := len(d.rings)
	for {
		for i := 0; i < n; i++ {
			*activation = (*activation + 1) % n
			p, ok := d.rings[*activation].Acquire()
			if !ok {
				continue
			}
			p.Batch = batch
			p.Owner = d
			return p
		}
		if d.ctx.Err() != nil {
			return nil
		}
		defaultYield(d.cfg.SchedulerYieldTime)
	}
}
