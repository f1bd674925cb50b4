package xdlock

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

type options struct {
	capacity       int
	logger         xlog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option 锁选项
type Option func(*options)

func defaultOptions() *options {
	return &options{capacity: 1}
}

// WithCapacity 同时持有者数量，n > 1 即信号量；n < 1 时忽略
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.capacity = n
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

// WithTracerProvider 设置追踪，nil 使用全局 TracerProvider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
