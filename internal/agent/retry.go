// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// DefaultMaxRetries is the number of extra attempts made after a
// rate-limited completion call.
const DefaultMaxRetries = 3

// DefaultRetryDelays returns the waits used between attempts.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
}

// Sleeper suspends the calling goroutine for d or until ctx is done.
type Sleeper interface {
	SleepContext(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) SleepContext(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) SleepContext(ctx context.Context, d time.Duration) error {
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

// TimerSleeper is the wall-clock Sleeper.
var TimerSleeper Sleeper = timerSleeper{}

// RetryPolicy retries transient (rate-limited) failures with a fixed,
// non-decreasing delay schedule. When there are fewer delays than retries
// the last delay repeats.
type RetryPolicy struct {
	MaxRetries int
	Delays     []time.Duration
	// Sleeper defaults to TimerSleeper.
	Sleeper Sleeper
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, Delays: DefaultRetryDelays()}
}

// Validate checks the retry budget and the delay schedule.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return solerr.Errorf(solerr.CodeConfigValidateInvalidValue,
			"retry: max_retries must be >= 0, got %d", p.MaxRetries)
	}
	for i, d := range p.Delays {
		if d < 0 {
			return solerr.Errorf(solerr.CodeConfigValidateInvalidValue,
				"retry: delay %d is negative (%s)", i, d)
		}
		if i > 0 && d < p.Delays[i-1] {
			return solerr.Errorf(solerr.CodeConfigValidateInvalidValue,
				"retry: delays must be non-decreasing, %s follows %s", d, p.Delays[i-1])
		}
	}
	return nil
}

// Delay returns the wait before the given retry, counted from 1.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if len(p.Delays) == 0 || retry < 1 {
		return 0
	}
	if retry > len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[retry-1]
}

func (p RetryPolicy) sleeper() Sleeper {
	if p.Sleeper == nil {
		return TimerSleeper
	}
	return p.Sleeper
}

// RetryFunc is notified before each retry sleep.
type RetryFunc func(retry int, delay time.Duration, err error)

// Execute calls fn until it succeeds, fails permanently, or the retry budget
// is spent. It returns fn's value and the number of retries performed.
// Only errors classified as transient are retried; anything else is
// returned unchanged. Exhausting the budget yields
// CodeProviderRateLimitExhausted.
func Execute[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error), onRetry RetryFunc) (T, int, error) {
	var zero T
	for retry := 0; ; retry++ {
		v, err := fn(ctx)
		if err == nil {
			return v, retry, nil
		}
		if !solerr.IsTransient(err) {
			return zero, retry, err
		}
		if retry >= p.MaxRetries {
			slog.Warn("retry budget exhausted",
				"attempts", retry+1,
				"error", err)
			return zero, retry, solerr.New(solerr.CodeProviderRateLimitExhausted,
				fmt.Sprintf("rate limit persisted after %d retries; wait 30-60 seconds and try again", retry),
				solerr.FieldAttempts(retry+1))
		}

		delay := p.Delay(retry + 1)
		slog.Info("transient provider failure, backing off",
			"attempt", retry+1,
			"delay", delay,
			"error", err)
		if onRetry != nil {
			onRetry(retry+1, delay, err)
		}
		if serr := p.sleeper().SleepContext(ctx, delay); serr != nil {
			return zero, retry, serr
		}
	}
}
