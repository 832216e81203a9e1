package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"hedgefund-systemv1/internal/errs"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // requests pass through
	BreakerOpen                         // requests rejected immediately
	BreakerHalfOpen                     // one probe allowed through
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrUpstreamUnavailable is returned while the breaker is open.
var ErrUpstreamUnavailable = errs.Service("market data upstream unavailable")

// BreakerSource wraps a Source with a circuit breaker. After maxFailures
// consecutive fetch failures the breaker opens and fetches fail fast for
// resetTimeout, then a single probe is let through. A successful probe
// closes the breaker, a failed one reopens it.
type BreakerSource struct {
	source Source

	mu           sync.Mutex
	state        BreakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time
}

// NewBreakerSource wraps source. maxFailures and resetTimeout fall back to
// 5 and 30s when zero.
func NewBreakerSource(source Source, maxFailures int, resetTimeout time.Duration) *BreakerSource {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &BreakerSource{
		source:       source,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
}

// FetchTickerData applies the breaker around the wrapped source. Context
// cancellation does not count as an upstream failure.
func (b *BreakerSource) FetchTickerData(ctx context.Context, ticker, startDate, endDate string) (TickerData, error) {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.transition(BreakerHalfOpen)
		} else {
			b.mu.Unlock()
			return TickerData{}, ErrUpstreamUnavailable
		}
	}
	b.mu.Unlock()

	data, err := b.source.FetchTickerData(ctx, ticker, startDate, endDate)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return TickerData{}, err
		}
		b.failures++
		b.lastFailure = time.Now()
		if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
			b.transition(BreakerOpen)
		}
		return TickerData{}, err
	}

	if b.state == BreakerHalfOpen {
		b.transition(BreakerClosed)
	}
	b.failures = 0
	return data, nil
}

// State returns the current breaker state.
func (b *BreakerSource) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerSource) transition(to BreakerState) {
	from := b.state
	b.state = to
	if to == BreakerClosed {
		b.failures = 0
	}
	log.Printf("[marketdata] breaker %s -> %s", from, to)
}
