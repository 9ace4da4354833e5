package retry

import (
	"context"
	"time"

	"golang.org/x/xerrors"
)

func Do(minDelay, maxDelay time.Duration, fn func() error) error {
	return DoAttempts(minDelay, maxDelay, 0, fn)
}

func DoAttempts(minDelay, maxDelay time.Duration, attempts int, fn func() error) error {
	r := New(minDelay, maxDelay, attempts)
	return r.Do(fn)
}

// Retry calls a function until it succeeds, backing off linearly between attempts.
// Zero MaxAttempts means no limit.
type Retry struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func New(minDelay, maxDelay time.Duration, attempts int) *Retry {
	return &Retry{
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		MaxAttempts: attempts,
	}
}

func (r *Retry) Do(fn func() error) error {
	return r.DoContext(context.Background(), fn)
}

// DoContext is like Do but stops waiting for the next attempt once ctx is done,
// returning the context's error.
func (r *Retry) DoContext(ctx context.Context, fn func() error) (err error) {
	retryable, err := r.Check(fn())
	if !retryable {
		return err
	}

	for attempt := 1; r.MaxAttempts == 0 || attempt < r.MaxAttempts; attempt++ {
		t := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		retryable, err = r.Check(fn())
		if !retryable {
			return err
		}
	}
	return err
}

// Check reports whether err is worth another attempt. Canceled errors are unwrapped.
func (r *Retry) Check(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var cErr *cancelRetryError
	if xerrors.As(err, &cErr) {
		return false, cErr.Err
	}
	return true, err
}

func (r *Retry) backoff(attempt int) time.Duration {
	delay := time.Duration(attempt) * r.MinDelay
	if delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}

type cancelRetryError struct {
	Err error
}

// Cancel marks err as final, so no more attempts are made.
func Cancel(err error) error {
	return &cancelRetryError{err}
}

func (e *cancelRetryError) Unwrap() error {
	return e.Err
}

func (e *cancelRetryError) Error() string {
	return e.Err.Error()
}
