package circuit

import (
	"sync"
	"time"

	"clawrelay/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker is a minimal failure-counting circuit breaker. After threshold
// consecutive failures it opens for cooloff, then allows a single probe.
type Breaker struct {
	mu          sync.Mutex
	name        string
	state       State
	failures    int
	threshold   int
	cooloff     time.Duration
	lastFailure time.Time
	nowFn       func() time.Time
}

func New(name string, threshold int, cooloff time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooloff <= 0 {
		cooloff = time.Minute
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooloff:   cooloff,
		state:     StateClosed,
		nowFn:     time.Now,
	}
}

// Allow reports whether the guarded call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if b.nowFn().Sub(b.lastFailure) > b.cooloff {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = b.nowFn()
	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	logger.Warnf("breaker %s: %s -> %s (failures=%d/%d cooloff=%s)",
		b.name, from, to, b.failures, b.threshold, b.cooloff)
}
