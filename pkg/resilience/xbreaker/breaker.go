package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker 熔断执行器，并发安全
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]
}

// BreakerOption 熔断器选项
type BreakerOption func(*Breaker)

// WithTripPolicy 设置熔断判定，默认连续失败 5 次
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(b *Breaker) { b.successPolicy = p }
}

// WithTimeout Open 到 HalfOpen 的等待时间，默认 60s
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval Closed 状态下清零计数的周期，0 表示持续累积
func WithInterval(d time.Duration) BreakerOption {
	return func(b *Breaker) { b.interval = d }
}

// WithMaxRequests HalfOpen 状态下放行的请求数，默认 1
func WithMaxRequests(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 状态变化回调
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) { b.onStateChange = f }
}

// NewBreaker 创建熔断器
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: b.tripPolicy.ReadyToTrip,
	}
	if b.successPolicy != nil {
		st.IsSuccessful = b.successPolicy.IsSuccessful
	}
	if b.onStateChange != nil {
		st.OnStateChange = b.onStateChange
	}
	b.cb = gobreaker.NewCircuitBreaker[any](st)
	return b
}

// Name 熔断器名称
func (b *Breaker) Name() string { return b.name }

// State 当前状态
func (b *Breaker) State() State { return b.cb.State() }

// Counts 当前统计
func (b *Breaker) Counts() Counts { return b.cb.Counts() }

// Do 在熔断保护下执行 fn
//
// 熔断拒绝时返回 [BreakerError]；fn 的错误原样返回。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	_, err := DoWithResult(ctx, b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult 带返回值的 Do
func DoWithResult[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var out T
	_, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		out = v
		return nil, err
	})
	if err != nil {
		if IsBreakerOpen(err) {
			return zero, &BreakerError{Err: err, Name: b.name, State: b.cb.State()}
		}
		return out, err
	}
	return out, nil
}
