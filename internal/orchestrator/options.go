package orchestrator

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

type options struct {
	logger        xlog.Logger
	meterProvider metric.MeterProvider
}

// Option 场景选项
type Option func(*options)

// WithLogger 设置日志器，nil 被忽略
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeterProvider 透传给锁、选举与任务的指标
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	return o
}
