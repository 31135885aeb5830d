package apiclient

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff for reads that failed in transport.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Do runs fn until it succeeds, fails with anything but ErrTransport, or retries run out.
// Answers from the server, including 429, are never repeated.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	err := fn()
	for attempt := 1; attempt <= r.MaxRetries && errors.Is(err, ErrTransport); attempt++ {
		if ctx.Err() != nil {
			return err
		}
		t := time.NewTimer(r.NextDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
		err = fn()
	}
	return err
}
