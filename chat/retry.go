package chat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultMultiplier  = time.Second
	DefaultMinWait     = 4 * time.Second
	DefaultMaxWait     = 60 * time.Second
)

// RetryPolicy retries an operation with exponential backoff. Every error is
// retryable; classification only picks the notice shown between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration

	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Multiplier:  DefaultMultiplier,
		MinWait:     DefaultMinWait,
		MaxWait:     DefaultMaxWait,
	}
}

// Attempt is the transient state of one request under the policy.
type Attempt struct {
	N      int
	Waited time.Duration
}

// RetryError is returned once the attempt ceiling is reached, or when the
// context ends during a wait. It unwraps to the last failure and, when
// interrupted, to the context error as well.
type RetryError struct {
	Attempts int
	Waited   time.Duration
	Err      error
}

func (e *RetryError) Error() string {
	if e.Interrupted() {
		return fmt.Sprintf("interrupted after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

// Interrupted reports whether the context ended before the attempt ceiling.
func (e *RetryError) Interrupted() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

func (e *RetryError) Unwrap() error { return e.Err }

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	if p.MinWait < 0 {
		p.MinWait = 0
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultMaxWait
	}
	if p.MinWait > p.MaxWait {
		p.MinWait = p.MaxWait
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Wait is the pause after the given failed attempt (1-based):
// Multiplier * 2^(attempt-1), clamped to [MinWait, MaxWait].
func (p RetryPolicy) Wait(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	w := float64(p.Multiplier) * math.Pow(2, float64(attempt-1))
	if w > float64(p.MaxWait) {
		return p.MaxWait
	}
	d := time.Duration(w)
	if d < p.MinWait {
		return p.MinWait
	}
	return d
}

// Do runs op until it succeeds or MaxAttempts is reached. After each failure
// the status surface gets a rate-limit warning or a generic error notice,
// then the upcoming wait unless the ceiling is hit.
func (p RetryPolicy) Do(ctx context.Context, status Status, op func(ctx context.Context) error) error {
	p = p.withDefaults()
	if status == nil {
		status = nopStatus{}
	}
	var state Attempt
	for {
		state.N++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if KindOf(err) == FailureRateLimit {
			status.RateLimited(err)
		} else {
			status.Failed(err)
		}
		if state.N >= p.MaxAttempts {
			return &RetryError{Attempts: state.N, Waited: state.Waited, Err: err}
		}
		wait := p.Wait(state.N)
		status.RetryWait(state.N, wait)
		if serr := p.Sleep(ctx, wait); serr != nil {
			return &RetryError{Attempts: state.N, Waited: state.Waited, Err: errors.Join(err, serr)}
		}
		state.Waited += wait
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
