package xelect

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationVersion = "0.1.0"

const (
	metricNameTermsTotal   = "xelect.terms.total"
	metricNameTermDuration = "xelect.term.duration"
	metricNameLeading      = "xelect.leading"

	attrPath = "xelect.path"
)

type metrics struct {
	terms    metric.Int64Counter
	duration metric.Float64Histogram
	leading  metric.Int64UpDownCounter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter("xelect", metric.WithInstrumentationVersion(instrumentationVersion))

	m := &metrics{}
	var err error
	if m.terms, err = meter.Int64Counter(metricNameTermsTotal,
		metric.WithDescription("成为 leader 的次数"), metric.WithUnit("{term}")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram(metricNameTermDuration,
		metric.WithDescription("单次领导任期时长"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.leading, err = meter.Int64UpDownCounter(metricNameLeading,
		metric.WithDescription("当前是否为 leader"), metric.WithUnit("{leader}")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) termStarted(ctx context.Context, path string) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(attribute.String(attrPath, path))
	m.terms.Add(ctx, 1, attrs)
	m.leading.Add(ctx, 1, attrs)
}

func (m *metrics) termEnded(ctx context.Context, path string, d time.Duration) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(attribute.String(attrPath, path))
	m.leading.Add(ctx, -1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
