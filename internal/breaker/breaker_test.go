package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu      sync.Mutex
	results []string
}

func (r *recorder) ObserveExternal(service, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, service+":"+result)
}

func testConfig() Config {
	cfg := DefaultConfig("llm")
	cfg.Backoff = time.Millisecond
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func TestRetriesUntilSuccess(t *testing.T) {
	rec := &recorder{}
	g := New(testConfig(), zaptest.NewLogger(t), rec)

	calls := 0
	out, err := Call(context.Background(), g, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"llm:success"}, rec.results)
}

func TestStopsAfterAttemptBudget(t *testing.T) {
	rec := &recorder{}
	g := New(testConfig(), zaptest.NewLogger(t), rec)

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("503")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"llm:failure"}, rec.results)
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	g := New(testConfig(), zaptest.NewLogger(t), nil)

	calls := 0
	cause := errors.New("400 bad request")
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestEachAttemptHasATimeout(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.Attempts = 2
	g := New(cfg, zaptest.NewLogger(t), rec)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"llm:timeout"}, rec.results)
}

func TestOpenCircuitRejects(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.Attempts = 1
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.OpenTimeout = time.Hour
	g := New(cfg, zaptest.NewLogger(t), rec)

	fail := func(ctx context.Context) error { return errors.New("down") }
	require.Error(t, g.Do(context.Background(), fail))
	require.Error(t, g.Do(context.Background(), fail))
	assert.Equal(t, "open", g.State())

	calls := 0
	err := g.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Zero(t, calls)
	assert.Equal(t, "llm:rejected", rec.results[len(rec.results)-1])
}
