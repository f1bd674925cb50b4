package xretry

import "context"

var (
	_ RetryPolicy = (*FixedRetryPolicy)(nil)
	_ RetryPolicy = (*AlwaysRetryPolicy)(nil)
	_ RetryPolicy = (*NeverRetryPolicy)(nil)
)

// FixedRetryPolicy 固定次数重试
type FixedRetryPolicy struct {
	maxAttempts int
}

// NewFixedRetry maxAttempts 包含首次尝试，最小为 1
func NewFixedRetry(maxAttempts int) *FixedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FixedRetryPolicy{maxAttempts: maxAttempts}
}

func (p *FixedRetryPolicy) MaxAttempts() int { return p.maxAttempts }

func (p *FixedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil || attempt >= p.maxAttempts {
		return false
	}
	return IsRetryable(err)
}

// AlwaysRetryPolicy 无限重试，直到 ctx 取消或遇到永久性错误
type AlwaysRetryPolicy struct{}

// NewAlwaysRetry 创建无限重试策略
func NewAlwaysRetry() *AlwaysRetryPolicy { return &AlwaysRetryPolicy{} }

func (p *AlwaysRetryPolicy) MaxAttempts() int { return 0 }

func (p *AlwaysRetryPolicy) ShouldRetry(ctx context.Context, _ int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return IsRetryable(err)
}

// NeverRetryPolicy 不重试
type NeverRetryPolicy struct{}

// NewNeverRetry 创建不重试策略
func NewNeverRetry() *NeverRetryPolicy { return &NeverRetryPolicy{} }

func (p *NeverRetryPolicy) MaxAttempts() int { return 1 }

func (p *NeverRetryPolicy) ShouldRetry(context.Context, int, error) bool { return false }
