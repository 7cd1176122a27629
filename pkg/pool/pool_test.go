package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWorkerPool(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Size: 0}, zap.NewNop())
	if pool == nil {
		t.Fatal("Expected non-nil pool")
	}

	stats := pool.Stats()
	if stats["size"].(int) != 1 {
		t.Errorf("Expected size clamped to 1, got %d", stats["size"].(int))
	}
}

func TestWorkerPool_ReturnsTaskError(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig(), nil)
	want := errors.New("task failed")

	if err := pool.Do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	if pool.Stats()["completed"].(int64) != 1 {
		t.Error("Expected one completed task")
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	const size = 2
	pool := NewWorkerPool(PoolConfig{Size: size}, nil)

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for tasks")
	}

	if peak.Load() > size {
		t.Errorf("Expected at most %d concurrent tasks, saw %d", size, peak.Load())
	}
}

func TestWorkerPool_ContextCancelledWhileWaiting(t *testing.T) {
	pool := NewWorkerPool(PoolConfig{Size: 1}, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Do(ctx, func() error {
		t.Error("task must not run")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	close(release)

	if pool.Stats()["cancelled"].(int64) != 1 {
		t.Error("Expected one cancelled task")
	}
}

func TestWorkerPool_Close(t *testing.T) {
	pool := NewWorkerPool(DefaultPoolConfig(), nil)
	pool.Close()
	pool.Close()

	if err := pool.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}
