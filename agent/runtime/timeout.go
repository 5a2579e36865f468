package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/roundtable/types"
	"golang.org/x/time/rate"
)

// Timeouts bounds each kind of runtime call. Zero disables the bound.
type Timeouts struct {
	Turn       time.Duration
	Assessment time.Duration
	Broadcast  time.Duration
}

type timeoutRuntime struct {
	next     Runtime
	timeouts Timeouts
}

// WithTimeout wraps rt so every call returns within its configured timeout,
// even when the underlying adapter ignores context cancellation.
func WithTimeout(rt Runtime, timeouts Timeouts) Runtime {
	return &timeoutRuntime{next: rt, timeouts: timeouts}
}

func (r *timeoutRuntime) GenerateTurn(ctx context.Context, participant, prompt string) (*Output, error) {
	return callWithTimeout(ctx, r.timeouts.Turn, participant, func(ctx context.Context) (*Output, error) {
		return r.next.GenerateTurn(ctx, participant, prompt)
	})
}

func (r *timeoutRuntime) GenerateAssessment(ctx context.Context, participant, prompt string) (string, error) {
	return callWithTimeout(ctx, r.timeouts.Assessment, participant, func(ctx context.Context) (string, error) {
		return r.next.GenerateAssessment(ctx, participant, prompt)
	})
}

func (r *timeoutRuntime) BroadcastMemoryUpdate(ctx context.Context, participant, text string) error {
	_, err := callWithTimeout(ctx, r.timeouts.Broadcast, participant, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.BroadcastMemoryUpdate(ctx, participant, text)
	})
	return err
}

type callResult[T any] struct {
	val T
	err error
}

func callWithTimeout[T any](ctx context.Context, d time.Duration, participant string, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- callResult[T]{val: v, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, types.NewError(types.ErrTimeout, fmt.Sprintf("runtime call exceeded %s", d)).
				WithParticipant(participant).
				WithCause(ctx.Err()).
				WithRetryable(true)
		}
		return zero, ctx.Err()
	}
}

type rateLimitedRuntime struct {
	next    Runtime
	limiter *rate.Limiter
}

// WithRateLimit makes every call wait for a token from limiter first.
func WithRateLimit(rt Runtime, limiter *rate.Limiter) Runtime {
	if limiter == nil {
		return rt
	}
	return &rateLimitedRuntime{next: rt, limiter: limiter}
}

func (r *rateLimitedRuntime) GenerateTurn(ctx context.Context, participant, prompt string) (*Output, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.GenerateTurn(ctx, participant, prompt)
}

func (r *rateLimitedRuntime) GenerateAssessment(ctx context.Context, participant, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.GenerateAssessment(ctx, participant, prompt)
}

func (r *rateLimitedRuntime) BroadcastMemoryUpdate(ctx context.Context, participant, text string) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.BroadcastMemoryUpdate(ctx, participant, text)
}
