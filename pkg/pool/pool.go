package pool

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrPoolClosed = errors.New("pool: closed")

// PoolConfig defines the worker pool limits
type PoolConfig struct {
	Size int `json:"size"`
	// SlowThreshold marks tasks worth a warning log. Zero disables it.
	SlowThreshold time.Duration `json:"slow_threshold"`
}

// DefaultPoolConfig sizes the pool to the machine
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:          runtime.NumCPU(),
		SlowThreshold: time.Second,
	}
}

// WorkerPool bounds how many CPU heavy tasks run at once. Callers block in
// Do until a slot frees up or their context ends, so request goroutines
// never pile work onto the scheduler beyond Size.
type WorkerPool struct {
	slots  chan struct{}
	closed chan struct{}
	config PoolConfig
	logger *zap.Logger

	active    atomic.Int64
	completed atomic.Int64
	cancelled atomic.Int64
	waitNanos atomic.Int64
}

// NewWorkerPool creates a pool with config.Size slots
func NewWorkerPool(config PoolConfig, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Size < 1 {
		config.Size = 1
	}

	return &WorkerPool{
		slots:  make(chan struct{}, config.Size),
		closed: make(chan struct{}),
		config: config,
		logger: logger,
	}
}

// Do runs fn on the calling goroutine once a slot is available
func (p *WorkerPool) Do(ctx context.Context, fn func() error) error {
	start := time.Now()

	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		p.cancelled.Add(1)
		return ctx.Err()
	case <-p.closed:
		return ErrPoolClosed
	}
	defer func() { <-p.slots }()

	p.waitNanos.Add(int64(time.Since(start)))
	p.active.Add(1)
	defer p.active.Add(-1)

	runStart := time.Now()
	err := fn()
	elapsed := time.Since(runStart)
	p.completed.Add(1)

	if p.config.SlowThreshold > 0 && elapsed > p.config.SlowThreshold {
		p.logger.Warn("Slow pooled task",
			zap.Duration("duration", elapsed),
			zap.Int("pool_size", p.config.Size),
		)
	}
	return err
}

// Close rejects new work. Tasks already holding a slot finish normally.
func (p *WorkerPool) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
		p.logger.Info("Worker pool closed", zap.Int64("completed", p.completed.Load()))
	}
}

// Stats returns pool statistics
func (p *WorkerPool) Stats() map[string]interface{} {
	completed := p.completed.Load()
	var avgWait time.Duration
	if completed > 0 {
		avgWait = time.Duration(p.waitNanos.Load() / completed)
	}

	return map[string]interface{}{
		"size":      p.config.Size,
		"active":    int(p.active.Load()),
		"completed": completed,
		"cancelled": p.cancelled.Load(),
		"avg_wait":  avgWait.String(),
	}
}
