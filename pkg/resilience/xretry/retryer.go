package xretry

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

var _ Executor = (*Retryer)(nil)

// Retryer 重试执行器，并发安全
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, err error)
}

// RetryerOption 执行器选项
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略，nil 被忽略
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略，nil 被忽略
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoffPolicy = p
		}
	}
}

// WithOnRetry 每次失败且即将重试时回调，attempt 从 1 开始
func WithOnRetry(f func(attempt int, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 默认 FixedRetry(3) + ExponentialBackoff
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		retryPolicy:   NewFixedRetry(3),
		backoffPolicy: NewExponentialBackoff(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Do 执行 fn，失败时按策略重试，返回最后一次的错误
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil {
		return ErrNilRetryer
	}
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.buildOptions(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

// DoWithResult 带返回值的 Do
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRetryer
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	return retry.NewWithData[T](r.buildOptions(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	policy, backoff := r.retryPolicy, r.backoffPolicy
	opts := make([]retry.Option, 0, 6)
	opts = append(opts, retry.Context(ctx), retry.LastErrorOnly(true))

	if n := policy.MaxAttempts(); n <= 0 {
		opts = append(opts, retry.UntilSucceeded())
	} else {
		opts = append(opts, retry.Attempts(uint(n)))
	}

	// 每次 Do 独立计数
	var attempts atomic.Int64
	opts = append(opts,
		retry.RetryIf(func(err error) bool {
			n := int(attempts.Add(1))
			if !retry.IsRecoverable(err) {
				return false
			}
			return policy.ShouldRetry(ctx, n, err)
		}),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return backoff.NextDelay(int(min(n, math.MaxInt32)))
		}),
	)

	if r.onRetry != nil {
		// retry-go 的 n 从 0 开始
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			r.onRetry(int(min(n, math.MaxInt32))+1, err)
		}))
	}
	return opts
}

// RetryPolicy 当前重试策略
func (r *Retryer) RetryPolicy() RetryPolicy {
	return r.retryPolicy
}

// BackoffPolicy 当前退避策略
func (r *Retryer) BackoffPolicy() BackoffPolicy {
	return r.backoffPolicy
}
