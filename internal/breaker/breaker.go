// Package breaker guards calls to external services with a per-attempt
// timeout, a bounded retry budget and a circuit breaker.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config holds configuration for a guarded service
type Config struct {
	Name     string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration

	// circuit settings
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig returns a 30s timeout, three attempts and a breaker that
// opens once most of at least five recent calls failed.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		Timeout:          30 * time.Second,
		Attempts:         3,
		Backoff:          500 * time.Millisecond,
		MaxRequests:      1,
		Interval:         time.Minute,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Recorder receives one observation per finished call.
type Recorder interface {
	ObserveExternal(service, result string)
}

// Guard runs calls to one external service.
type Guard struct {
	cfg    Config
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
	rec    Recorder
}

// New creates a Guard. rec may be nil.
func New(cfg Config, logger *zap.Logger, rec Recorder) *Guard {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{cfg: cfg, logger: logger, rec: rec}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// permanent errors do not count against the circuit
			return err == nil || IsPermanent(err)
		},
	})
	return g
}

// State returns the breaker state as text.
func (g *Guard) State() string {
	return g.cb.State().String()
}

// Do runs fn until it succeeds, returns a permanent error, the attempt budget
// is spent or ctx is done. Each attempt gets its own timeout.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= g.cfg.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, g.cfg.Backoff*time.Duration(attempt-1)); err != nil {
				break
			}
		}

		out, err := g.cb.Execute(func() (interface{}, error) {
			actx, cancel := g.attemptContext(ctx)
			defer cancel()
			return fn(actx)
		})
		if err == nil {
			g.observe("success")
			v, _ := out.(T)
			return v, nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		g.logger.Debug("external call failed",
			zap.String("service", g.cfg.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	switch {
	case errors.Is(lastErr, gobreaker.ErrOpenState), errors.Is(lastErr, gobreaker.ErrTooManyRequests):
		g.observe("rejected")
	case errors.Is(lastErr, context.DeadlineExceeded):
		g.observe("timeout")
	default:
		g.observe("failure")
	}
	return zero, lastErr
}

func (g *Guard) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func (g *Guard) observe(result string) {
	if g.rec != nil {
		g.rec.ObserveExternal(g.cfg.Name, result)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
