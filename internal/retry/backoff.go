// Package retry provides bounded exponential backoff for best-effort runtime calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy 定义重试策略配置
type Policy struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`   // 最大尝试次数（含首次），最少 1
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"` // 初始延迟
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`         // 最大延迟
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`       // 指数退避倍数
	Jitter       bool          `yaml:"jitter" json:"jitter"`               // 是否添加 ±25% 抖动

	// Retryable 为空时所有错误都重试
	Retryable func(err error) bool `yaml:"-" json:"-"`
	// OnRetry 每次重试前回调
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-" json:"-"`
}

// DefaultPolicy 返回广播记忆更新使用的默认策略
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer 顺序重试器：两次尝试之间只 sleep，不持有任何锁
type Retryer struct {
	policy Policy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New 创建重试器，非法参数回退为默认值
func New(policy Policy, logger *zap.Logger) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = def.InitialDelay
	}
	if policy.MaxDelay < policy.InitialDelay {
		policy.MaxDelay = policy.InitialDelay
	}
	if policy.Multiplier < 1.0 {
		policy.Multiplier = def.Multiplier
	}
	return &Retryer{
		policy: policy,
		logger: logger.With(zap.String("component", "retry")),
		sleep:  sleepContext,
	}
}

// Do 执行 fn，失败时按策略重试，返回最后一次错误
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.Delay(attempt - 1)
			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}
			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", r.policy.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := r.sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry cancelled: %w", errors.Join(err, lastErr))
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if r.policy.Retryable != nil && !r.policy.Retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", r.policy.MaxAttempts, lastErr)
}

// Delay 计算第 n 次重试前的等待时间：initial * multiplier^(n-1)，上限 MaxDelay
func (r *Retryer) Delay(n int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(n-1))
	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}
	if r.policy.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
	}
	if delay < float64(r.policy.InitialDelay) {
		delay = float64(r.policy.InitialDelay)
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
