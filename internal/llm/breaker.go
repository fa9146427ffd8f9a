package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a Provider in a circuit breaker. When the service fails
// repeatedly, the breaker opens and calls fail immediately, so a dead
// service degrades to instant local fallback instead of one HTTP
// timeout per document.
type Breaker struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker open. Default: 3.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before allowing a
	// probe request. Default: 60s.
	OpenTimeout time.Duration
}

// NewBreaker wraps inner with default settings.
func NewBreaker(inner Provider) *Breaker {
	return NewBreakerWithSettings(inner, BreakerSettings{})
}

// NewBreakerWithSettings wraps inner with explicit settings.
func NewBreakerWithSettings(inner Provider, s BreakerSettings) *Breaker {
	failures := s.ConsecutiveFailures
	if failures == 0 {
		failures = 3
	}
	timeout := s.OpenTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) Name() string {
	return b.inner.Name()
}

func (b *Breaker) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
