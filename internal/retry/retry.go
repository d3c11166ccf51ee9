package retry

import (
	"context"
	"errors"
	"time"
)

// Policy configures Do. Multiplier 1 gives a fixed delay; values below 1
// are treated as 1.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Multiplier float64
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(maxRetries int, delay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Delay: delay, Multiplier: 1}
}

// Exponential returns a policy doubling the delay after each attempt.
func Exponential(maxRetries int, baseDelay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Delay: baseDelay, Multiplier: 2}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Do runs fn until it succeeds, returns a permanent error, or the retries
// are spent. The last error is returned unwrapped.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	delay := p.Delay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
	}
}
