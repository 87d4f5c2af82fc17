package backend

import (
	"fmt"
	"sync"
)

// LoopbackBackend synthesizes completion without calling any real hardware.
// It still hands out real, independently addressable byte buffers per
// (activation, set, port) so a model adapter can exercise its normal
// configure/postprocess path against it in tests.
type LoopbackBackend struct {
	mu         sync.Mutex
	cfg        Config
	completion CompletionFunc
	buffers    [][][]byte // [activation][set*portsPerSet+port]
	portsIn    int
	portsOut   int
	portCount  int
	closed     bool
}

// NewLoopback constructs a LoopbackBackend. Buffer sizing is deferred to
// Init, where the activation/set geometry becomes known.
func NewLoopback() *LoopbackBackend {
	return &LoopbackBackend{}
}

func (b *LoopbackBackend) Name() string { return Loopback }

// Init allocates one small scratch buffer per (activation, set, input
// port). The port count defaults to a single input and a single output
// port, which is enough for tests exercising the scheduler/shim/completion
// path; callers needing more ports construct the backend directly and call
// SetPortCounts.
//
// Loopback has no hardware to move bytes from input to output, so each
// output port aliases the backing memory of the input port at the same
// index (when one exists): whatever the model adapter wrote into an input
// buffer is exactly what it reads back from the corresponding output
// buffer, matching the loopback round-trip law.
func (b *LoopbackBackend) Init(hwID int, cfg Config, completion CompletionFunc) error {
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
		for s := 0; s < cfg.SetSize; s++ {
			base := s * b.portCount
			inBufs := make([][]byte, b.portsIn)
			for i := 0; i < b.portsIn; i++ {
				inBufs[i] = make([]byte, 4096)
				b.buffers[a][base+i] = inBufs[i]
			}
			for o := 0; o < b.portsOut; o++ {
				if o < b.portsIn {
					b.buffers[a][base+b.portsIn+o] = inBufs[o]
				} else {
					b.buffers[a][base+b.portsIn+o] = make([]byte, 4096)
				}
			}
		}
	}
	return nil
}

// SetPortCounts overrides the default 1-input/1-output port geometry.
// Must be called before Init.
func (b *LoopbackBackend) SetPortCounts(in, out int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.portsIn = in
	b.portsOut = out
}

func (b *LoopbackBackend) BufferPtr(activation, set, port int) ([]byte, error) {
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

// Run synthesizes completion immediately, on the calling goroutine, as the
// spec's loopback mode requires: no real hardware is touched and the
// completion callback fires before Run returns.
func (b *LoopbackBackend) Run(activation, set int, userCtx any) error {
	b.mu.Lock()
	completion := b.completion
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("backend: run on closed backend")
	}
	if completion != nil {
		completion(EventDeviceComplete, userCtx)
	}
	return nil
}

func (b *LoopbackBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
