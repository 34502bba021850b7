package detections

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionPool hands out ONNX sessions to one request at a time. A session
// owns fixed input/output tensors, so it cannot serve two runs concurrently.
type SessionPool struct {
	sessions chan *ModelSession
	size     int
	mu       sync.Mutex
	closed   bool

	metricsMu sync.RWMutex
	metrics   PoolMetrics
}

type PoolMetrics struct {
	Size            int           `json:"pool_size"`
	InUse           int           `json:"sessions_in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time_ns"`
}

// NewSessionPool creates size sessions up front using newSession.
func NewSessionPool(size int, newSession func() (*ModelSession, error)) (*SessionPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &SessionPool{
		sessions: make(chan *ModelSession, size),
		size:     size,
		metrics:  PoolMetrics{Size: size},
	}

	for i := 0; i < size; i++ {
		session, err := newSession()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		pool.sessions <- session
	}

	return pool, nil
}

func (p *SessionPool) Acquire(ctx context.Context) (*ModelSession, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metricsMu.Lock()
		p.metrics.WaitTime += time.Since(start)
		p.metricsMu.Unlock()
	}()

	timer := time.NewTimer(AcquireTimeout)
	defer timer.Stop()

	select {
	case session, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.metricsMu.Lock()
		p.metrics.InUse++
		p.metrics.TotalAcquired++
		p.metricsMu.Unlock()
		return session, nil
	case <-timer.C:
		p.metricsMu.Lock()
		p.metrics.AcquireFailures++
		p.metricsMu.Unlock()
		return nil, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool, or destroys it once the pool is closed.
func (p *SessionPool) Release(session *ModelSession) {
	p.metricsMu.Lock()
	p.metrics.InUse--
	p.metrics.TotalReleased++
	p.metricsMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		session.Destroy()
		return
	}
	p.sessions <- session
}

func (p *SessionPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.sessions)

	for session := range p.sessions {
		session.Destroy()
	}
}

func (p *SessionPool) GetMetrics() PoolMetrics {
	p.metricsMu.RLock()
	defer p.metricsMu.RUnlock()
	return p.metrics
}
