package xretry

import "errors"

var (
	// ErrNilRetryer 接收者为 nil
	ErrNilRetryer = errors.New("xretry: nil retryer")

	// ErrNilContext context 为 nil
	ErrNilContext = errors.New("xretry: nil context")

	// ErrNilFunc 被执行的函数为 nil
	ErrNilFunc = errors.New("xretry: nil func")
)

// RetryableError 自带重试分类的错误
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误，不重试
type PermanentError struct {
	Err error
}

// NewPermanentError 包装为永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 临时性错误，重试
type TemporaryError struct {
	Err error
}

// NewTemporaryError 包装为临时性错误
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error { return e.Err }

func (e *TemporaryError) Retryable() bool { return true }

// IsRetryable nil 不重试；实现 RetryableError 的按其判断；其余默认重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

// IsPermanent 是否为永久性错误
func IsPermanent(err error) bool {
	return err != nil && !IsRetryable(err)
}
