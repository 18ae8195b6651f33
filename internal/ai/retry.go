package ai

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxRetries  = 1
	DefaultBackoffStep = 600 * time.Millisecond
)

// RetryPolicy bounds how often a failed attempt is repeated. Sleep is
// injectable so tests do not wait on the wall clock.
type RetryPolicy struct {
	MaxRetries int
	// Backoff receives the number of the attempt that just failed (1-based).
	Backoff   func(attempt int) time.Duration
	Retryable func(err error) bool
	Sleep     func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    LinearBackoff(DefaultBackoffStep),
		Retryable:  IsTransient,
		Sleep:      SleepContext,
	}
}

// LinearBackoff waits step, 2*step, 3*step...
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return step * time.Duration(attempt)
	}
}

func IsTransient(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Transient()
	}
	return false
}

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff == nil {
		p.Backoff = LinearBackoff(DefaultBackoffStep)
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// budget of 1+MaxRetries attempts is spent. It returns the attempts made.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	p = p.withDefaults()
	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt > p.MaxRetries || !p.Retryable(err) || ctx.Err() != nil {
			return attempt, err
		}
		if sleepErr := p.Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return attempt, err
		}
	}
}
