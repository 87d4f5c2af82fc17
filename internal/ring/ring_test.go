package ring

import (
	"testing"

	"github.com/onyxsilicon/qdispatch/internal/sample"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	t.Parallel()

	b := New(0, 0, 2)
	if b.Len() != 2 {
		t.Fatalf("expected 2 free slots, got %d", b.Len())
	}

	p1, ok := b.Acquire()
	if !ok {
		t.Fatal("expected a free slot")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 free slot after acquire, got %d", b.Len())
	}

	p2, ok := b.Acquire()
	if !ok {
		t.Fatal("expected a second free slot")
	}

	if _, ok := b.Acquire(); ok {
		t.Fatal("expected acquire to fail once the buffer is exhausted")
	}

	b.Release(p1)
	if b.Len() != 1 {
		t.Fatalf("expected 1 free slot after release, got %d", b.Len())
	}
	b.Release(p2)
	if b.Len() != 2 {
		t.Fatalf("expected 2 free slots after both released, got %d", b.Len())
	}
}

func TestReleaseClearsBatch(t *testing.T) {
	t.Parallel()

	b := New(0, 0, 1)
	p, _ := b.Acquire()
	p.Batch = sample.Batch{{Index: 0}}

	b.Release(p)
	p2, _ := b.Acquire()
	if p2.Batch != nil {
		t.Fatalf("expected Batch cleared on release, got %v", p2.Batch)
	}
}

func TestReleaseNilPanics(t *testing.T) {
	t.Parallel()

	b := New(0, 0, 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on release of nil payload")
		}
	}()
	b.Release(nil)
}

func TestDoubleReleasePanics(t *testing.T) {
	t.Parallel()

	b := New(0, 0, 1)
	p, _ := b.Acquire()
	b.Release(p)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double release")
		}
	}()
	b.Release(p)
}

func TestCapacity(t *testing.T) {
	t.Parallel()

	b := New(1, 2, 5)
	if b.Capacity() != 5 {
		t.Fatalf("expected capacity 5, got %d", b.Capacity())
	}
	for i := 0; i < 5; i++ {
		if _, ok := b.Acquire(); !ok {
			t.Fatalf("expected slot %d to be acquirable", i)
		}
	}
	if _, ok := b.Acquire(); ok {
		t.Fatal("expected buffer to be exhausted after capacity acquisitions")
	}
}
