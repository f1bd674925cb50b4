package xetcd

import (
	"crypto/tls"
	"time"
)

type options struct {
	healthCheck   bool
	healthTimeout time.Duration
	tlsConfig     *tls.Config
}

// Option 客户端选项
type Option func(*options)

// WithHealthCheck 创建后发起一次 Get 探测，失败则关闭并返回错误
func WithHealthCheck(enabled bool, timeout time.Duration) Option {
	return func(o *options) {
		o.healthCheck = enabled
		if timeout > 0 {
			o.healthTimeout = timeout
		}
	}
}

// WithTLS 设置 TLS
func WithTLS(config *tls.Config) Option {
	return func(o *options) { o.tlsConfig = config }
}
