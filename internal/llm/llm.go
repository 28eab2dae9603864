// Package llm is the language-model backend port used by answer engines,
// plus retry and rate-limit middleware shared by every backend.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RefusalToken is what a backend replies when the context does not answer
// the question. Engines map it to the insufficient-context sentinel.
const RefusalToken = "INSUFFICIENT_CONTEXT"

// Request is one grounded generation call.
type Request struct {
	// System carries the engine's instructions.
	System string
	// Prompt is the rendered user turn: context followed by the question.
	Prompt string
	// Question and Context are the raw inputs, for backends that rank text
	// themselves instead of prompting a model.
	Question    string
	Context     string
	Language    string
	Temperature float32
}

// Generator produces an answer for a request.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent generator failure")

type permanentError struct{ err error }

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent wraps err so WithRetry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type retrying struct {
	next       Generator
	maxRetries int
	delay      func(attempt int) time.Duration
	log        logrus.FieldLogger
}

// WithRetry retries failed generations up to maxRetries times with
// exponential backoff. Permanent errors and context errors are returned as is.
func WithRetry(next Generator, maxRetries int, log logrus.FieldLogger) Generator {
	if maxRetries <= 0 {
		return next
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &retrying{next: next, maxRetries: maxRetries, delay: RetryDelay, log: log}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.delay(attempt - 1)):
			}
		}
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, ErrPermanent) {
			return "", err
		}
		lastErr = err
		r.log.WithFields(logrus.Fields{
			"generator": r.next.Name(),
			"attempt":   attempt + 1,
		}).WithError(err).Warn("generation failed")
	}
	return "", lastErr
}

// RetryDelay is exponential backoff from 200ms capped at 5s.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 8 {
		return 5 * time.Second
	}
	return min(200*time.Millisecond<<attempt, 5*time.Second)
}

type limited struct {
	next    Generator
	limiter *rate.Limiter
}

// WithRateLimit spaces calls to at most rps per second. A non-positive rps
// disables limiting.
func WithRateLimit(next Generator, rps float64) Generator {
	if rps <= 0 {
		return next
	}
	burst := max(1, int(rps))
	return &limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Generate(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, req)
}

type timed struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to timeout.
func WithTimeout(next Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return next
	}
	return &timed{next: next, timeout: timeout}
}

func (t *timed) Name() string { return t.next.Name() }

func (t *timed) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, req)
}

// Options configures the middleware stack applied by Wrap.
type Options struct {
	MaxRetries        int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Wrap applies, from the outside in, retry, rate limiting and a per-attempt
// timeout to g.
func Wrap(g Generator, opts Options, log logrus.FieldLogger) Generator {
	return WithRetry(WithRateLimit(WithTimeout(g, opts.Timeout), opts.RequestsPerSecond), opts.MaxRetries, log)
}
