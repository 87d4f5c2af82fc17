package device

import "github.com/onyxsilicon/qdispatch/internal/ring"

// dispatchCompletion is the completion dispatcher: only device-complete
// events reach here (onBackendCompletion filters everything else). It is
// safe to call concurrently across different (activation, set) pairs since
// at most one in-flight workload exists per slot at a time; that exclusivity
// is enforced by the slot never living in two places (ring buffer, shim
// cell, or in flight) simultaneously.
func (d *Device) dispatchCompletion(p *ring.Payload) {
	defer d.releaseSlot(p)

	out, err := d.gatherBuffers(p.Activation, p.Set, d.portsOut, d.portsIn)
	if err != nil {
		d.fail(wrapErr(ErrBackendRunFailed, err.Error()))
		return
	}

	if err := d.adapter.PostprocessResults(p.Batch, out); err != nil {
		d.log.Error("postprocess failed", "activation", p.Activation, "set", p.Set, "error", err)
		d.fail(wrapErr(ErrBackendRunFailed, err.Error()))
		return
	}

	d.metrics.Callbacks.Add(int64(len(p.Batch)))
}

func (d *Device) releaseSlot(p *ring.Payload) {
	d.rings[p.Activation].Release(p)
}
