package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/onyxsilicon/qdispatch/internal/affinity"
	"github.com/onyxsilicon/qdispatch/internal/backend"
	"github.com/onyxsilicon/qdispatch/internal/model"
	"github.com/onyxsilicon/qdispatch/internal/ring"
)

// enqueuer is the Enqueue Shim abstraction: the spec's compile-time inline
// vs threaded switch becomes a runtime strategy selected by ShimCount,
// behind one interface.
type enqueuer interface {
	start(d *Device, plan affinity.Plan) error
	submit(p *ring.Payload)
	stop()
}

// inlineShim runs the shim body directly on the scheduler goroutine: the
// ShimCount == 0 configuration. Minimum latency; the scheduler pays the
// configure cost itself.
type inlineShim struct {
	d *Device
}

func newInlineShim() *inlineShim { return &inlineShim{} }

func (s *inlineShim) start(d *Device, _ affinity.Plan) error {
	s.d = d
	return nil
}

func (s *inlineShim) submit(p *ring.Payload) {
	s.d.runShimBody(p)
}

func (s *inlineShim) stop() {}

// threadedShim runs N pinned worker threads, each owning a single-slot
// hand-off cell. The scheduler fills a free cell round-robin across cells;
// each shim goroutine spins on its own cell and resets it to nil once
// processed. Cell ownership for reads belongs exclusively to the owning
// shim goroutine; only the scheduler writes, and only into a nil cell.
type threadedShim struct {
	cells  []atomic.Pointer[ring.Payload]
	next   int // scheduler-owned; never touched by shim goroutines
	d      *Device
	wg     sync.WaitGroup
	stopCh chan struct{}
}

func newThreadedShim(n int) *threadedShim {
	return &threadedShim{cells: make([]atomic.Pointer[ring.Payload], n)}
}

func (s *threadedShim) start(d *Device, plan affinity.Plan) error {
	s.d = d
	s.stopCh = make(chan struct{})
	for i := range s.cells {
		cpu := -1
		if i < len(plan.Shims) {
			cpu = plan.Shims[i]
		}
		s.wg.Add(1)
		go s.run(i, cpu)
	}
	return nil
}

func (s *threadedShim) run(id int, cpu int) {
	defer s.wg.Done()
	if cpu >= 0 {
		if err := affinity.PinCurrentThread(cpu); err != nil {
			s.d.log.Warn("failed to pin shim thread", "shim", id, "cpu", cpu, "error", err)
		}
	}
	for {
		p := s.cells[id].Load()
		if p == nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			defaultYield(s.d.cfg.EnqueueYieldTime)
			continue
		}
		s.d.runShimBody(p)
		s.cells[id].Store(nil)
	}
}

func (s *threadedShim) submit(p *ring.Payload) {
	i := s.next
	n := len(s.cells)
	for {
		if s.cells[i].CompareAndSwap(nil, p) {
			s.next = (i + 1) % n
			return
		}
		i = (i + 1) % n
		if i == s.next {
			time.Sleep(time.Microsecond)
		}
	}
}

func (s *threadedShim) stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// runShimBody is the per-payload work the spec calls the Enqueue Shim: fill
// input buffers per InputSelect, then either synthesize completion
// (Loopback) or issue the asynchronous backend Run call. Any backend error
// is fatal to the device.
func (d *Device) runShimBody(p *ring.Payload) {
	log := d.log.With("activation", p.Activation, "set", p.Set, "correlation_id", p.CorrelationID)

	switch d.cfg.InputSelect {
	case InputSelectNormal:
		in, err := d.gatherBuffers(p.Activation, p.Set, d.portsIn, 0)
		if err != nil {
			d.fail(wrapErr(ErrBackendRunFailed, err.Error()))
			d.rings[p.Activation].Release(p)
			return
		}
		if err := d.adapter.ConfigureWorkload(d.source, p.Batch, in); err != nil {
			log.Error("configure workload failed", "error", err)
			d.fail(wrapErr(ErrBackendRunFailed, err.Error()))
			d.rings[p.Activation].Release(p)
			return
		}
	case InputSelectReserved:
		// Construct already rejects this mode; guard defensively in case a
		// Device is ever built by a path that skips that check.
		d.fail(ErrInputSelectReserved)
		d.rings[p.Activation].Release(p)
		return
	case InputSelectRandom:
		// Do nothing - use whatever bytes the buffer already holds.
	}

	if d.cfg.Loopback {
		d.onBackendCompletion(backend.EventDeviceComplete, p)
		return
	}

	if err := d.backend.Run(p.Activation, p.Set, p); err != nil {
		d.fail(wrapErr(ErrBackendRunFailed, err.Error()))
		d.rings[p.Activation].Release(p)
		return
	}
}

func (d *Device) gatherBuffers(activation, set, count, offset int) (model.Buffers, error) {
	bufs := make(model.Buffers, count)
	for port := 0; port < count; port++ {
		b, err := d.backend.BufferPtr(activation, set, offset+port)
		if err != nil {
			return nil, err
		}
		bufs[port] = b
	}
	return bufs, nil
}

