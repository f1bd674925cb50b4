package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 统计窗口内的请求计数
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// TripPolicy 熔断判定
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定，默认 err == nil 即成功
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// ConsecutiveFailures 连续失败达到阈值即熔断
type ConsecutiveFailures struct {
	threshold uint32
}

// NewConsecutiveFailures threshold 为 0 时按 1 处理
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailures {
	return &ConsecutiveFailures{threshold: max(threshold, 1)}
}

func (p *ConsecutiveFailures) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// SuccessFunc 函数式 SuccessPolicy
type SuccessFunc func(err error) bool

func (f SuccessFunc) IsSuccessful(err error) bool { return f(err) }
