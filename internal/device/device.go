// Package device implements the per-device scheduler: the bounded
// producer/consumer pipeline with pinned worker threads, a ring-buffered
// pool of payload slots, strict back-pressure to the producer, and a
// completion path that feeds model-specific post-processing while
// recycling slots. One Device instance drives one accelerator.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onyxsilicon/qdispatch/internal/affinity"
	"github.com/onyxsilicon/qdispatch/internal/admission"
	"github.com/onyxsilicon/qdispatch/internal/backend"
	"github.com/onyxsilicon/qdispatch/internal/logger"
	"github.com/onyxsilicon/qdispatch/internal/metrics"
	"github.com/onyxsilicon/qdispatch/internal/model"
	"github.com/onyxsilicon/qdispatch/internal/ring"
	"github.com/onyxsilicon/qdispatch/internal/sample"
)

// State is the device lifecycle state machine: Uninitialized -> Running ->
// Draining -> Destroyed. Only Running accepts Inference submissions.
type State int32

const (
	StateUninitialized State = iota
	StateRunning
	StateDraining
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Device is one accelerator's scheduler, ring buffers, enqueue shim(s), and
// completion dispatcher, plus the orchestration that builds and tears them
// down.
type Device struct {
	id int

	cfg     Config
	backend backend.Backend
	adapter model.Adapter
	source  model.DataSource

	// admissionMu folds any number of concurrent external caller goroutines
	// into the single logical producer admissionQ assumes: TrySubmit's
	// front/back accounting is only atomic against a single writer.
	admissionMu sync.Mutex
	admissionQ  *admission.Queue
	rings       []*ring.Buffer

	shim enqueuer

	log     logger.Logger
	metrics metrics.Counters

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once

	mu      sync.Mutex
	lastErr error

	portsIn  int
	portsOut int
}

// Options carries everything Construct needs beyond the config table:
// the chosen backend (nil to resolve one from cfg.BackendName), the caller's
// model adapter, its data source, and the CPU affinity list to consume
// leaf-first.
type Options struct {
	Backend    backend.Backend
	Adapter    model.Adapter
	DataSource model.DataSource
	Affinity   []int
	Logger     logger.Logger
	PortsIn    int
	PortsOut   int
}

// Construct builds and starts a Device for hwID. A backend init failure, or
// an invalid configuration, is fatal: Construct returns a nil Device and an
// error rather than a partially built one.
func Construct(hwID int, cfg Config, opts Options) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Adapter == nil {
		return nil, wrapErr(ErrBackendInitFailed, "model adapter is required")
	}
	if cfg.InputSelect == InputSelectReserved {
		return nil, ErrInputSelectReserved
	}

	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	log = logger.ForDevice(log, hwID)

	be := opts.Backend
	if be == nil {
		resolved, err := backend.Resolve(cfg.BackendName)
		if err != nil {
			return nil, wrapErr(ErrBackendInitFailed, err.Error())
		}
		be = resolved
	}

	d := &Device{
		id:       hwID,
		cfg:      cfg,
		backend:  be,
		adapter:  opts.Adapter,
		source:   opts.DataSource,
		log:      log,
		portsIn:  opts.PortsIn,
		portsOut: opts.PortsOut,
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	if err := be.Init(hwID, backend.Config{
		ModelRoot:       cfg.ModelRoot,
		ActivationCount: cfg.ActivationCount,
		SetSize:         cfg.SetSize,
		ThreadsPerQueue: cfg.ThreadsPerQueue,
		SkipStage:       cfg.SkipStage,
	}, d.onBackendCompletion); err != nil {
		return nil, wrapErr(ErrBackendInitFailed, err.Error())
	}

	d.admissionQ = admission.New(cfg.SamplesQueueDepth)
	d.rings = make([]*ring.Buffer, cfg.ActivationCount)
	for a := 0; a < cfg.ActivationCount; a++ {
		d.rings[a] = ring.New(hwID, a, cfg.SetSize)
	}

	plan, err := affinity.Resolve(affinity.New(opts.Affinity), cfg.ShimCount, cfg.RingfenceDriver)
	if err != nil {
		log.Warn("affinity plan degraded, continuing unpinned", "error", err)
		plan = affinity.Plan{}
	}

	if cfg.ShimCount > 0 {
		d.shim = newThreadedShim(cfg.ShimCount)
	} else {
		d.shim = newInlineShim()
	}
	if err := d.shim.start(d, plan); err != nil {
		return nil, wrapErr(ErrBackendInitFailed, err.Error())
	}

	d.state.Store(int32(StateRunning))

	d.wg.Add(1)
	go d.runScheduler(plan)

	log.Info("device started",
		"activations", cfg.ActivationCount,
		"set_size", cfg.SetSize,
		"shim_count", cfg.ShimCount,
		"loopback", cfg.Loopback,
		"backend", be.Name(),
	)

	return d, nil
}

// Inference submits a batch of exactly cfg.ModelBatchSize samples.
// Non-blocking. Returns the remaining admission slack (>= 0) on success, or
// -1 when the admission queue is full. Safe for concurrent callers: they are
// serialized here into the single producer admissionQ requires.
func (d *Device) Inference(batch sample.Batch) int {
	if State(d.state.Load()) != StateRunning {
		return -1
	}
	if len(batch) != d.cfg.ModelBatchSize {
		d.log.Error("rejecting batch with wrong size", "got", len(batch), "want", d.cfg.ModelBatchSize)
		return -1
	}
	d.admissionMu.Lock()
	slack, ok := d.admissionQ.TrySubmit(batch)
	d.admissionMu.Unlock()
	if !ok {
		d.metrics.Rejected.Add(1)
		return -1
	}
	d.metrics.Admitted.Add(1)
	return slack
}

// Submit is Inference's idiomatic-Go counterpart: the same non-blocking
// admission attempt, reported as a sentinel error instead of a magic -1.
func (d *Device) Submit(batch sample.Batch) error {
	if State(d.state.Load()) != StateRunning {
		return ErrNotRunning
	}
	if d.Inference(batch) < 0 {
		return ErrAdmissionRejected
	}
	return nil
}

// State reports the device's current lifecycle state.
func (d *Device) State() State {
	return State(d.state.Load())
}

// Err returns the error that made the device fail, if any. Populated only
// after a fatal backend-run failure (see §7).
func (d *Device) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Metrics returns a snapshot of the device's runtime counters.
func (d *Device) Metrics() map[string]int64 {
	return d.metrics.Snapshot()
}

// fail records a fatal error, moves the device out of Running, and signals
// the scheduler and shim goroutines to stop pulling new work. It does not
// join them; callers still call Close to fully tear the device down.
func (d *Device) fail(err error) {
	d.mu.Lock()
	if d.lastErr == nil {
		d.lastErr = err
	}
	d.mu.Unlock()
	if errors.Is(err, ErrBackendRunFailed) {
		d.metrics.RunFailures.Add(1)
	}
	d.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	d.cancel()
	d.log.Error("device failed", "error", err)
}

// Close triggers graceful shutdown: the scheduler stops pulling new
// batches, in-hand shim work is allowed to finish, and Close blocks until
// the scheduler and shim goroutines have joined or ctx is done, whichever
// comes first. Close is idempotent.
func (d *Device) Close(ctx context.Context) error {
	var closeErr error
	d.closeOnce.Do(func() {
		d.state.Store(int32(StateDraining))
		d.cancel()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			d.shim.stop()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			closeErr = fmt.Errorf("device: close timed out: %w", ctx.Err())
		}

		if err := d.backend.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		d.state.Store(int32(StateDestroyed))
	})
	return closeErr
}

// onBackendCompletion is installed as the backend's completion callback. It
// re-enters the device through the Payload's own userCtx pointer, as the
// spec's "completion callback from a foreign thread" guidance describes: a
// trampoline keyed off the user-context pointer rather than any shared
// mutable dispatch table.
func (d *Device) onBackendCompletion(kind backend.EventKind, userCtx any) {
	if kind != backend.EventDeviceComplete {
		return
	}
	p, ok := userCtx.(*ring.Payload)
	if !ok || p == nil {
		d.log.Error("completion callback with unexpected user context", "value", userCtx)
		return
	}
	d.dispatchCompletion(p)
}

func defaultYield(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
