package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "geocode",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// Breaker stops calling a failing provider for a while. Lookups that find
// nothing, or that fail for lack of credentials, are not provider failures.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Gateway, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNoMatch) ||
				errors.Is(err, ErrNotConfigured) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Geocode(ctx context.Context, address string) (Result, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Geocode(ctx, address)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
