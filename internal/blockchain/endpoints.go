package blockchain

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RotationPolicy selects how the pool advances between endpoints.
type RotationPolicy string

const (
	// PolicyRoundRobin advances to the next endpoint on every call.
	PolicyRoundRobin RotationPolicy = "round_robin"
	// PolicyWindowed keeps returning the same endpoint for a time window,
	// then advances.
	PolicyWindowed RotationPolicy = "windowed"
)

var ErrNoEndpoints = errors.New("endpoint pool is empty")

// Pool hands out read endpoints for confirmation checks, rotating through
// the configured list so no single endpoint is starved or over-used.
// The reader list is read-only after construction; only the rotation
// cursor mutates, under the mutex.
type Pool struct {
	mu          sync.Mutex
	readers     []ChainReader
	idx         int
	policy      RotationPolicy
	window      time.Duration
	windowStart time.Time
	logger      *zap.Logger
}

// NewPool builds a rotating pool over a non-empty list of readers.
func NewPool(readers []ChainReader, policy RotationPolicy, window time.Duration, logger *zap.Logger) (*Pool, error) {
	if len(readers) == 0 {
		return nil, ErrNoEndpoints
	}
	if policy == "" {
		policy = PolicyRoundRobin
	}
	return &Pool{
		readers:     readers,
		policy:      policy,
		window:      window,
		windowStart: time.Now(),
		logger:      logger.Named("endpoint-pool"),
	}, nil
}

// Next returns the endpoint to use for the next read. Safe for
// concurrent use.
func (p *Pool) Next() ChainReader {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.policy {
	case PolicyWindowed:
		if time.Since(p.windowStart) >= p.window {
			p.idx = (p.idx + 1) % len(p.readers)
			p.windowStart = time.Now()
			p.logger.Debug("Rotated read endpoint", zap.Int("index", p.idx))
		}
		return p.readers[p.idx]
	default:
		r := p.readers[p.idx]
		p.idx = (p.idx + 1) % len(p.readers)
		return r
	}
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	return len(p.readers)
}
