package detections

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultPoolSize Pool configuration
	DefaultPoolSize   = 2
	AcquireTimeout    = 5 * time.Second
	HealthCheckPeriod = 60 * time.Second
)

// BackendFactory creates a fresh backend instance for the pool.
type BackendFactory func() (Backend, error)

// BackendPool holds a fixed number of backends. Each backend owns fixed
// input/output tensors, so a backend serves one request at a time.
type BackendPool struct {
	backends chan Backend
	size     int
	factory  BackendFactory
	mu       sync.Mutex
	closed   bool
	metrics  *poolMetrics
}

type poolMetrics struct {
	mu              sync.RWMutex
	inUse           int
	totalAcquired   int64
	totalReleased   int64
	acquireFailures int64
	waitTime        time.Duration
}

// PoolMetrics is a snapshot of pool counters.
type PoolMetrics struct {
	PoolSize        int   `json:"pool_size"`
	InUse           int   `json:"sessions_in_use"`
	TotalAcquired   int64 `json:"total_acquired"`
	TotalReleased   int64 `json:"total_released"`
	AcquireFailures int64 `json:"acquire_failures"`
}

func NewBackendPool(factory BackendFactory, size int) (*BackendPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &BackendPool{
		backends: make(chan Backend, size),
		size:     size,
		factory:  factory,
		metrics:  &poolMetrics{},
	}

	for i := 0; i < size; i++ {
		backend, err := factory()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize backend %d: %w", i, err)
		}
		pool.backends <- backend
	}

	go pool.healthCheck()

	return pool, nil
}

func (p *BackendPool) Acquire(ctx context.Context) (Backend, error) {
	if p.closed {
		return nil, fmt.Errorf("pool is closed")
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.waitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	select {
	case backend := <-p.backends:
		p.metrics.mu.Lock()
		p.metrics.inUse++
		p.metrics.totalAcquired++
		p.metrics.mu.Unlock()
		return backend, nil
	case <-time.After(AcquireTimeout):
		p.metrics.mu.Lock()
		p.metrics.acquireFailures++
		p.metrics.mu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available backend")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *BackendPool) Release(backend Backend) {
	if p.closed {
		backend.Close()
		return
	}

	p.metrics.mu.Lock()
	p.metrics.inUse--
	p.metrics.totalReleased++
	p.metrics.mu.Unlock()

	p.backends <- backend
}

func (p *BackendPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.backends)

	for backend := range p.backends {
		backend.Close()
	}
}

func (p *BackendPool) healthCheck() {
	ticker := time.NewTicker(HealthCheckPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if p.closed {
			return
		}

		p.mu.Lock()
		currentSize := len(p.backends)
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return
		}

		p.metrics.mu.RLock()
		inUse := p.metrics.inUse
		p.metrics.mu.RUnlock()

		// Recreate backends lost to failed releases.
		if missing := p.size - currentSize - inUse; missing > 0 {
			p.replenish(missing)
		}
	}
}

func (p *BackendPool) replenish(count int) {
	for i := 0; i < count; i++ {
		backend, err := p.factory()
		if err != nil {
			continue
		}
		p.backends <- backend
	}
}

func (p *BackendPool) GetMetrics() PoolMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()
	return PoolMetrics{
		PoolSize:        p.size,
		InUse:           p.metrics.inUse,
		TotalAcquired:   p.metrics.totalAcquired,
		TotalReleased:   p.metrics.totalReleased,
		AcquireFailures: p.metrics.acquireFailures,
	}
}
