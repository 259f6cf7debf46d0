package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"colorizer/internal/domain"
	"colorizer/internal/infra"
)

// BreakerOptions configures the circuit breaker placed in front of an adapter.
type BreakerOptions struct {
	// Failures is the number of consecutive provider failures that opens the
	// circuit. Zero disables the breaker.
	Failures    uint32
	OpenTimeout time.Duration
	// OnStateChange is called with the provider name and the new state.
	OnStateChange func(provider, to string)
	Logger        *infra.Logger
}

// BreakerAdapter fails fast while the wrapped provider keeps failing.
type BreakerAdapter struct {
	next Adapter
	cb   *gobreaker.CircuitBreaker[*Output]
}

// WithBreaker wraps next. It returns next unchanged when the breaker is disabled.
func WithBreaker(next Adapter, opts BreakerOptions) Adapter {
	if opts.Failures == 0 {
		return next
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	provider := next.Profile().Provider
	threshold := opts.Failures

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider breaker state changed")
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, to.String())
			}
		},
	}
	return &BreakerAdapter{next: next, cb: gobreaker.NewCircuitBreaker[*Output](settings)}
}

func (b *BreakerAdapter) Profile() Profile {
	return b.next.Profile()
}

func (b *BreakerAdapter) Generate(ctx context.Context, req GenerateRequest) (*Output, error) {
	out, err := b.cb.Execute(func() (*Output, error) {
		return b.next.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: provider temporarily unavailable", b.next.Profile().Provider, domain.ErrAdapter)
	}
	return out, err
}

// State exposes the current breaker state for diagnostics.
func (b *BreakerAdapter) State() string {
	return b.cb.State().String()
}

// countsAsHealthy keeps caller mistakes and client aborts from tripping the
// circuit; only provider-side failures count.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrInvalidInput) {
		return true
	}
	return false
}

var _ Adapter = (*BreakerAdapter)(nil)
