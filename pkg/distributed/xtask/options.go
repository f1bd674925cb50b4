package xtask

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// DefaultInterval 默认执行间隔
const DefaultInterval = 5 * time.Second

type options struct {
	interval      time.Duration
	schedule      string
	logger        xlog.Logger
	meterProvider metric.MeterProvider
}

// Option 任务选项
type Option func(*options)

// WithInterval 固定执行间隔，默认 5s；d <= 0 时忽略
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithSchedule 按 cron 表达式执行，优先于 WithInterval
//
// 支持可选的秒字段和 @every、@hourly 等描述符。
func WithSchedule(spec string) Option {
	return func(o *options) { o.schedule = spec }
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
	return func(o *options) { o.meterProvider = mp }
}
