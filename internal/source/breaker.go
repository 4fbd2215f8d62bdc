package source

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/logger"
)

// BreakerSettings tunes when a source is considered down
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

// DefaultBreakerSettings trips after 3 consecutive failures and probes again after a minute
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 3,
		OpenTimeout:         60 * time.Second,
		Interval:            60 * time.Second,
	}
}

// Breaker stops calling a failing source for a while so a batch fails fast
type Breaker struct {
	inner contracts.DataSource
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner in a circuit breaker.
// Only transport errors, 5xx and 429 count as failures; a missing symbol never trips it.
func NewBreaker(inner contracts.DataSource, settings BreakerSettings, log *logger.Logger) *Breaker {
	st := gobreaker.Settings{
		Name:     inner.Name(),
		Interval: settings.Interval,
		Timeout:  settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return !isUpstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Source circuit breaker state changed")
		},
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

// Name implements contracts.DataSource
func (b *Breaker) Name() string { return b.inner.Name() }

// State exposes the breaker state for health output
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Fetch implements contracts.DataSource
func (b *Breaker) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Fetch(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}

	obs, _ := out.(*contracts.RawObservation)
	return obs, nil
}
