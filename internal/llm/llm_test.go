package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flaky fails its first `fail` calls with err.
type flaky struct {
	calls atomic.Int32
	fail  int32
	err   error
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Generate(ctx context.Context, req Request) (string, error) {
	n := f.calls.Add(1)
	if n <= f.fail {
		return "", f.err
	}
	return "answer: " + req.Question, nil
}

func noDelay(int) time.Duration { return 0 }

func retryWithoutDelay(t *testing.T, g Generator, retries int) (Generator, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	r := WithRetry(g, retries, log).(*retrying)
	r.delay = noDelay
	return r, hook
}

func TestWithRetryRecovers(t *testing.T) {
	f := &flaky{fail: 2, err: errors.New("503 service unavailable")}
	g, hook := retryWithoutDelay(t, f, 3)

	out, err := g.Generate(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer: q", out)
	assert.Equal(t, int32(3), f.calls.Load())
	assert.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "flaky", g.Name())
}

func TestWithRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	f := &flaky{fail: 100, err: boom}
	g, _ := retryWithoutDelay(t, f, 2)

	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	bad := errors.New("401 unauthorized")
	f := &flaky{fail: 100, err: Permanent(bad)}
	g, _ := retryWithoutDelay(t, f, 5)

	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, "401 unauthorized", err.Error())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	f := &flaky{fail: 100, err: errors.New("boom")}
	log, _ := test.NewNullLogger()
	g := WithRetry(f, 5, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestWithRetryZeroIsPassthrough(t *testing.T) {
	f := &flaky{}
	assert.Same(t, Generator(f), WithRetry(f, 0, nil))
	assert.Same(t, Generator(f), WithRateLimit(f, 0))
	assert.Same(t, Generator(f), WithTimeout(f, 0))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, RetryDelay(0))
	assert.Equal(t, 800*time.Millisecond, RetryDelay(2))
	assert.Equal(t, 5*time.Second, RetryDelay(5))
	assert.Equal(t, 5*time.Second, RetryDelay(60))
}

func TestWithRateLimitWaitsForContext(t *testing.T) {
	f := &flaky{}
	g := WithRateLimit(f, 0.001)

	_, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) Generate(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWithTimeoutBoundsAttempts(t *testing.T) {
	g := WithTimeout(slow{}, 10*time.Millisecond)
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWrapRetriesTimedOutAttempts(t *testing.T) {
	log, _ := test.NewNullLogger()
	g := Wrap(slow{}, Options{MaxRetries: 1, Timeout: 5 * time.Millisecond}, log)
	r := g.(*retrying)
	r.delay = noDelay

	start := time.Now()
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
