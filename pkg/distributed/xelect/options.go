package xelect

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

type options struct {
	id            string
	logger        xlog.Logger
	meterProvider metric.MeterProvider
	requeueDelay  time.Duration
}

// Option 选举选项
type Option func(*options)

// WithID 参与者标识，默认随机 UUID；空串被忽略
func WithID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.id = id
		}
	}
}

// WithLogger 设置日志器，nil 被忽略
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider 启用指标，nil 表示不收集
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithRequeueDelay 放弃领导权后重新参选前的等待，默认 0；d < 0 时忽略
func WithRequeueDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.requeueDelay = d
		}
	}
}
