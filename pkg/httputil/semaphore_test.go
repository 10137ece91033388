package httputil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSemaphore_AcquireBlocksAtCapacity(t *testing.T) {
	sem := NewSemaphore(1)

	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Acquire err = %v, want deadline exceeded", err)
	}

	sem.Release()
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

func TestSemaphore_BoundsConcurrency(t *testing.T) {
	const capacity = 4
	sem := NewSemaphore(capacity)

	var inUse, peak atomic.Int32
	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer sem.Release()

			n := inUse.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inUse.Add(-1)
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > capacity {
		t.Errorf("peak concurrency = %d, want at most %d", p, capacity)
	}
}

func TestNewSemaphore_DefaultCapacity(t *testing.T) {
	for _, capacity := range []int{0, -5} {
		sem := NewSemaphore(capacity)
		if got := cap(sem.slots); got != defaultCapacity {
			t.Errorf("NewSemaphore(%d) capacity = %d, want %d", capacity, got, defaultCapacity)
		}
	}
}
