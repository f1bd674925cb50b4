package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 收到系统信号，可用 errors.Is 判断
	ErrSignal = errors.New("received signal")

	// ErrInvalidInterval Ticker 间隔必须为正
	ErrInvalidInterval = errors.New("xrun: interval must be positive")

	// ErrInvalidDelay Timer 延迟不能为负
	ErrInvalidDelay = errors.New("xrun: delay must not be negative")

	// ErrNilFunc 服务函数为 nil
	ErrNilFunc = errors.New("xrun: nil func")
)

// SignalError 携带触发退出的信号
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	if e.Signal == nil {
		return "received signal <nil>"
	}
	return fmt.Sprintf("received signal %s", e.Signal)
}

func (e *SignalError) Unwrap() error { return ErrSignal }
