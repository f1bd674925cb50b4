package xretry

import (
	"context"
	"time"
)

// RetryPolicy 重试策略
type RetryPolicy interface {
	// MaxAttempts 最大尝试次数（包含首次），0 表示无限
	MaxAttempts() int

	// ShouldRetry 第 attempt 次（从 1 开始）失败后是否继续
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 退避策略
type BackoffPolicy interface {
	// NextDelay 第 attempt 次（从 1 开始）失败后的等待时间
	NextDelay(attempt int) time.Duration
}

// Executor 重试执行器接口，调用方需要 mock 时以它作为参数类型
type Executor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
