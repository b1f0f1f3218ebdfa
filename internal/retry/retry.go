package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and how quickly an operation is retried.
// Attempts counts the first call, so Attempts == 1 disables retries.
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the randomization factor in [0,1). Zero yields deterministic delays.
	Jitter float64
	// Retriable classifies errors; nil retries every error.
	Retriable func(error) bool
}

// Constant returns a policy with a fixed delay between attempts.
func Constant(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Initial: delay, Max: delay, Multiplier: 1}
}

// Exponential returns a policy whose delay grows by 2x up to max.
func Exponential(attempts int, initial, max time.Duration) Policy {
	return Policy{Attempts: attempts, Initial: initial, Max: max, Multiplier: 2}
}

// Once returns a policy that never retries.
func Once() Policy {
	return Policy{Attempts: 1}
}

// Delay returns the wait before the given retry (1-based) ignoring jitter.
func (p Policy) Delay(retry int) time.Duration {
	if retry <= 0 || p.Initial <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.Initial)
	for i := 1; i < retry; i++ {
		d *= mult
		if p.Max > 0 && time.Duration(d) >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Allows reports whether another attempt may follow the given number of
// completed attempts.
func (p Policy) Allows(completed int) bool {
	return completed < p.attempts()
}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p Policy) backOff() backoff.BackOff {
	if p.Initial <= 0 {
		return &backoff.ZeroBackOff{}
	}
	if p.Multiplier <= 1 && p.Jitter == 0 {
		return backoff.NewConstantBackOff(p.Initial)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.RandomizationFactor = p.Jitter
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	return b
}

// Notify observes a failed attempt before the policy waits for next.
type Notify func(attempt int, err error, next time.Duration)

// Do runs op until it succeeds, returns a non-retriable error, exhausts the
// policy, or ctx ends. The last operation error is returned on exhaustion.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), notify Notify) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if p.Retriable != nil && !p.Retriable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}
	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(p.attempts())),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, next time.Duration) {
			notify(attempt, err, next)
		}))
	}
	return backoff.Retry(ctx, operation, opts...)
}

// Permanent marks err as not worth retrying regardless of policy.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (rate limits, timeouts, connection errors).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "429") || strings.Contains(message, "rate limit") {
		return true
	}
	for _, code := range []string{"502", "503", "504"} {
		if strings.Contains(message, code) {
			return true
		}
	}
	for _, token := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	} {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// IsRetriableStatus reports whether an HTTP status code is worth retrying.
func IsRetriableStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
