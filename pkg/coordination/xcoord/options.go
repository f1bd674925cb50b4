package xcoord

import (
	"time"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/resilience/xbreaker"
	"github.com/omeyang/xcoord/pkg/resilience/xretry"
)

const (
	// DefaultSessionTTL 默认会话超时
	DefaultSessionTTL = 10 * time.Second

	// DefaultRetryAttempts 默认最大尝试次数（首次 + 3 次重试）
	DefaultRetryAttempts = 4

	// DefaultRetryBaseDelay 默认退避起始延迟
	DefaultRetryBaseDelay = time.Second

	// DefaultRetryMaxDelay 默认退避上限
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultBreakerFailures 默认连续失败熔断阈值
	DefaultBreakerFailures = 5

	// DefaultBreakerTimeout 默认熔断打开持续时间
	DefaultBreakerTimeout = 30 * time.Second

	// DefaultKeyPrefix redis 后端默认 key 前缀
	DefaultKeyPrefix = "xcoord:"

	// DefaultPollInterval redis 后端 Watch 默认轮询间隔
	DefaultPollInterval = 100 * time.Millisecond
)

type options struct {
	logger       xlog.Logger
	sessionTTL   time.Duration
	retryer      *xretry.Retryer
	breaker      *xbreaker.Breaker
	keyPrefix    string
	pollInterval time.Duration
}

// Option 客户端选项
type Option func(*options)

func defaultOptions() *options {
	return &options{
		sessionTTL:   DefaultSessionTTL,
		keyPrefix:    DefaultKeyPrefix,
		pollInterval: DefaultPollInterval,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.retryer == nil {
		o.retryer = NewDefaultRetryer()
	}
	return o
}

// WithLogger 设置日志器，nil 被忽略
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionTTL 设置会话超时，d <= 0 时忽略
func WithSessionTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sessionTTL = d
		}
	}
}

// WithRetryer 设置后端调用的重试执行器，nil 被忽略
func WithRetryer(r *xretry.Retryer) Option {
	return func(o *options) {
		if r != nil {
			o.retryer = r
		}
	}
}

// WithBreaker 为后端调用启用熔断，只有 ErrCoordination 计为失败
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}

// WithKeyPrefix 设置 redis key 前缀，空串被忽略
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

// WithPollInterval 设置 redis 后端 Watch 轮询间隔，d <= 0 时忽略
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// NewDefaultRetryer 默认重试执行器：指数退避 1s 起步，最多重试 3 次
func NewDefaultRetryer() *xretry.Retryer {
	return xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewFixedRetry(DefaultRetryAttempts)),
		xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
			xretry.WithInitialDelay(DefaultRetryBaseDelay),
			xretry.WithMaxDelay(DefaultRetryMaxDelay),
		)),
	)
}

// NewDefaultBreaker 连续 DefaultBreakerFailures 次协调服务故障后熔断
func NewDefaultBreaker(name string) *xbreaker.Breaker {
	return newBreaker(name, DefaultBreakerFailures, DefaultBreakerTimeout)
}

func newBreaker(name string, failures uint32, timeout time.Duration) *xbreaker.Breaker {
	return xbreaker.NewBreaker(name,
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(max(failures, 1))),
		xbreaker.WithTimeout(timeout),
		xbreaker.WithSuccessPolicy(breakerSuccess),
	)
}

// breakerSuccess 会话丢失、节点不存在等业务结果不计为故障
var breakerSuccess = xbreaker.SuccessFunc(func(err error) bool {
	return err == nil || !IsTransient(err)
})
