package xbreaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下请求数超限
	ErrTooManyRequests = gobreaker.ErrTooManyRequests

	// ErrNilContext context 为 nil
	ErrNilContext = errors.New("xbreaker: context cannot be nil")

	// ErrNilFunc 操作函数为 nil
	ErrNilFunc = errors.New("xbreaker: function cannot be nil")
)

// BreakerError 熔断拒绝错误，不可重试
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error { return e.Err }

// Retryable 熔断打开时重试没有意义
func (e *BreakerError) Retryable() bool { return false }

// IsBreakerOpen 错误是否来自熔断拒绝
func IsBreakerOpen(err error) bool {
	return errors.Is(err, ErrOpenState) || errors.Is(err, ErrTooManyRequests)
}
