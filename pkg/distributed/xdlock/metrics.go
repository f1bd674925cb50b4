package xdlock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationVersion = "0.1.0"

const (
	metricNameAcquireTotal    = "xdlock.acquire.total"
	metricNameAcquireDuration = "xdlock.acquire.duration"
	metricNameReleaseTotal    = "xdlock.release.total"
	metricNameHeld            = "xdlock.held"
)

// 获取结果
const (
	outcomeAcquired = "acquired"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
)

// waitBuckets 等待耗时直方图桶边界，锁等待以秒计
var waitBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30}

type metrics struct {
	acquireTotal    metric.Int64Counter
	acquireDuration metric.Float64Histogram
	releaseTotal    metric.Int64Counter
	held            metric.Int64UpDownCounter
}

// newMetrics meterProvider 为 nil 时返回 nil，记录方法对 nil 安全
func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter("xdlock", metric.WithInstrumentationVersion(instrumentationVersion))

	m := &metrics{}
	var err error
	if m.acquireTotal, err = meter.Int64Counter(metricNameAcquireTotal,
		metric.WithDescription("锁获取次数"), metric.WithUnit("{acquire}")); err != nil {
		return nil, err
	}
	if m.acquireDuration, err = meter.Float64Histogram(metricNameAcquireDuration,
		metric.WithDescription("锁获取等待耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(waitBuckets...)); err != nil {
		return nil, err
	}
	if m.releaseTotal, err = meter.Int64Counter(metricNameReleaseTotal,
		metric.WithDescription("锁释放次数"), metric.WithUnit("{release}")); err != nil {
		return nil, err
	}
	if m.held, err = meter.Int64UpDownCounter(metricNameHeld,
		metric.WithDescription("当前持有的锁数量"), metric.WithUnit("{lock}")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) recordAcquire(ctx context.Context, path, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	// ctx 可能已取消，指标仍需记录
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String(attrPath, path),
		attribute.String(attrOutcome, outcome),
	)
	m.acquireTotal.Add(ctx, 1, attrs)
	m.acquireDuration.Record(ctx, d.Seconds(), attrs)
	if outcome == outcomeAcquired {
		m.held.Add(ctx, 1, metric.WithAttributes(attribute.String(attrPath, path)))
	}
}

// recordRelease lost 表示因会话丢失而失去持有
func (m *metrics) recordRelease(ctx context.Context, path string, lost bool) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	m.releaseTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrPath, path),
		attribute.Bool(attrLost, lost),
	))
	m.held.Add(ctx, -1, metric.WithAttributes(attribute.String(attrPath, path)))
}
