package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryer_SucceedsFirstTime(t *testing.T) {
	r := New(fastPolicy(3), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls, "应该只调用一次")
}

func TestRetryer_RetriesUntilSuccess(t *testing.T) {
	var retried []int
	policy := fastPolicy(3)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}
	r := New(policy, nil)

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{2, 3}, retried)
}

func TestRetryer_BoundedAttempts(t *testing.T) {
	r := New(fastPolicy(2), zap.NewNop())
	boom := errors.New("persistent")

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestRetryer_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	policy := fastPolicy(5)
	policy.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
	r := New(policy, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetryer_ContextCancelledDuringBackoff(t *testing.T) {
	policy := fastPolicy(5)
	policy.InitialDelay = time.Hour
	policy.MaxDelay = time.Hour
	r := New(policy, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryer_DelayGrowsAndCaps(t *testing.T) {
	r := New(Policy{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}, zap.NewNop())

	assert.Equal(t, 10*time.Millisecond, r.Delay(1))
	assert.Equal(t, 20*time.Millisecond, r.Delay(2))
	assert.Equal(t, 40*time.Millisecond, r.Delay(3))
	assert.Equal(t, 50*time.Millisecond, r.Delay(4))
}

func TestNew_NormalizesPolicy(t *testing.T) {
	r := New(Policy{MaxAttempts: 0, Multiplier: 0.5}, nil)
	assert.Equal(t, 1, r.policy.MaxAttempts)
	assert.Equal(t, DefaultPolicy().InitialDelay, r.policy.InitialDelay)
	assert.Equal(t, 2.0, r.policy.Multiplier)
	assert.GreaterOrEqual(t, r.policy.MaxDelay, r.policy.InitialDelay)
}
