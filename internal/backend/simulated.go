package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SimulatedBackend models a real accelerator closely enough to exercise
// genuinely asynchronous completion: Run returns immediately and the
// completion callback fires later from a different goroutine, after Latency
// has elapsed. It also supports injecting a Run failure on a specific call
// index, used by the backend-run-failure scenario in the test suite.
type SimulatedBackend struct {
	mu         sync.Mutex
	cfg        Config
	completion CompletionFunc
	buffers    [][][]byte
	portsIn    int
	portsOut   int
	portCount  int
	closed     bool

	// Latency is the simulated device turnaround time for one Run call.
	Latency time.Duration

	// FailOnCall, if non-zero, makes the FailOnCall-th Run invocation
	// (1-indexed) return an error instead of scheduling completion.
	FailOnCall int64

	calls atomic.Int64
}

// NewSimulated constructs a SimulatedBackend with a small default latency.
func NewSimulated() *SimulatedBackend {
	return &SimulatedBackend{Latency: 200 * time.Microsecond}
}

func (b *SimulatedBackend) Name() string { return Simulated }

func (b *SimulatedBackend) Init(hwID int, cfg Config, completion CompletionFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.ActivationCount <= 0 || cfg.SetSize <= 0 {
		return fmt.Errorf("backend: activation count and set size must be positive")
	}
	b.cfg = cfg
	b.completion = completion
	if b.portsIn == 0 {
		b.portsIn = 1
	}
	if b.portsOut == 0 {
		b.portsOut = 1
	}
	b.portCount = b.portsIn + b.portsOut
	b.buffers = make([][][]byte, cfg.ActivationCount)
	for a := range b.buffers {
		b.buffers[a] = make([][]byte, cfg.SetSize*b.portCount)
		for i := range b.buffers[a] {
			b.buffers[a][i] = make([]byte, 4096)
		}
	}
	return nil
}

// SetPortCounts overrides the default 1-input/1-output port geometry.
// Must be called before Init.
func (b *SimulatedBackend) SetPortCounts(in, out int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.portsIn = in
	b.portsOut = out
}

func (b *SimulatedBackend) BufferPtr(activation, set, port int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if activation < 0 || activation >= len(b.buffers) {
		return nil, fmt.Errorf("backend: activation %d out of range", activation)
	}
	row := b.buffers[activation]
	idx := set*b.portCount + port
	if idx < 0 || idx >= len(row) {
		return nil, fmt.Errorf("backend: (set %d, port %d) out of range", set, port)
	}
	return row[idx], nil
}

func (b *SimulatedBackend) Run(activation, set int, userCtx any) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("backend: run on closed backend")
	}
	completion := b.completion
	latency := b.Latency
	failOn := b.FailOnCall
	b.mu.Unlock()

	n := b.calls.Add(1)
	if failOn > 0 && n == failOn {
		return fmt.Errorf("backend: simulated run failure on call %d", n)
	}

	go func() {
		if latency > 0 {
			time.Sleep(latency)
		}
		if completion != nil {
			completion(EventDeviceComplete, userCtx)
		}
	}()
	return nil
}

func (b *SimulatedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
