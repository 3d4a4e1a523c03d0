// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) SleepContext(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func rateLimited() error {
	return solerr.New(solerr.CodeProviderRateLimited, "slow down")
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	sl := &recordingSleeper{}
	p := agent.RetryPolicy{MaxRetries: 3, Delays: []time.Duration{time.Second}, Sleeper: sl}

	v, retries, err := agent.Execute(context.Background(), p, func(context.Context) (string, error) {
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 0, retries)
	assert.Empty(t, sl.delays)
}

func TestExecute_RecoversAfterTransientFailures(t *testing.T) {
	sl := &recordingSleeper{}
	p := agent.RetryPolicy{MaxRetries: 3, Delays: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, Sleeper: sl}

	calls := 0
	var notified []int
	v, retries, err := agent.Execute(context.Background(), p, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, rateLimited()
		}
		return 42, nil
	}, func(retry int, _ time.Duration, _ error) {
		notified = append(notified, retry)
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, retries)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestExecute_Exhausted(t *testing.T) {
	sl := &recordingSleeper{}
	p := agent.RetryPolicy{MaxRetries: 3, Delays: []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}, Sleeper: sl}

	calls := 0
	_, retries, err := agent.Execute(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", rateLimited()
	}, nil)

	require.Error(t, err)
	assert.True(t, solerr.IsRateLimitExhausted(err))
	assert.Equal(t, 3, retries)
	assert.Equal(t, 4, calls, "one attempt plus MaxRetries retries")
	assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}, sl.delays)
}

func TestExecute_LastDelayRepeats(t *testing.T) {
	sl := &recordingSleeper{}
	p := agent.RetryPolicy{MaxRetries: 4, Delays: []time.Duration{time.Second, 3 * time.Second}, Sleeper: sl}

	_, _, err := agent.Execute(context.Background(), p, func(context.Context) (string, error) {
		return "", rateLimited()
	}, nil)

	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}, sl.delays)
	for i := 1; i < len(sl.delays); i++ {
		assert.GreaterOrEqual(t, sl.delays[i], sl.delays[i-1])
	}
}

func TestExecute_PermanentFailureNotRetried(t *testing.T) {
	sl := &recordingSleeper{}
	p := agent.RetryPolicy{MaxRetries: 3, Sleeper: sl}
	perm := solerr.New(solerr.CodeProviderAuthFailure, "bad token")

	calls := 0
	_, retries, err := agent.Execute(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", perm
	}, nil)

	require.Error(t, err)
	assert.Equal(t, solerr.CodeProviderAuthFailure, solerr.CodeOf(err))
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sl.delays)
}

func TestExecute_ZeroRetries(t *testing.T) {
	p := agent.RetryPolicy{MaxRetries: 0, Sleeper: &recordingSleeper{}}
	_, retries, err := agent.Execute(context.Background(), p, func(context.Context) (string, error) {
		return "", rateLimited()
	}, nil)

	assert.True(t, solerr.IsRateLimitExhausted(err))
	assert.Equal(t, 0, retries)
}

func TestExecute_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := agent.RetryPolicy{MaxRetries: 3, Delays: []time.Duration{time.Hour}, Sleeper: agent.TimerSleeper}

	_, _, err := agent.Execute(ctx, p, func(context.Context) (string, error) {
		return "", rateLimited()
	}, nil)

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryPolicy_Validate(t *testing.T) {
	assert.NoError(t, agent.DefaultRetryPolicy().Validate())
	assert.NoError(t, agent.RetryPolicy{}.Validate())
	assert.NoError(t, agent.RetryPolicy{MaxRetries: 2, Delays: []time.Duration{time.Second, time.Second}}.Validate())

	err := agent.RetryPolicy{MaxRetries: 2, Delays: []time.Duration{2 * time.Second, time.Second}}.Validate()
	require.Error(t, err)
	assert.True(t, solerr.IsInvalidInput(err))

	assert.Error(t, agent.RetryPolicy{MaxRetries: -1}.Validate())
	assert.Error(t, agent.RetryPolicy{Delays: []time.Duration{-time.Second}}.Validate())
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := agent.DefaultRetryPolicy()
	assert.Equal(t, 5*time.Second, p.Delay(1))
	assert.Equal(t, 15*time.Second, p.Delay(2))
	assert.Equal(t, 30*time.Second, p.Delay(3))
	assert.Equal(t, 30*time.Second, p.Delay(7))
	assert.Zero(t, agent.RetryPolicy{}.Delay(1))
}

func TestTimerSleeper(t *testing.T) {
	start := time.Now()
	require.NoError(t, agent.TimerSleeper.SleepContext(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, agent.TimerSleeper.SleepContext(ctx, time.Hour), context.Canceled)
}
