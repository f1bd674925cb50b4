package xtask

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationVersion = "0.1.0"

const (
	metricNameTicksTotal   = "xtask.ticks.total"
	metricNameTickDuration = "xtask.tick.duration"

	attrTask   = "xtask.id"
	attrResult = "xtask.result"
)

type metrics struct {
	ticks    metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter("xtask", metric.WithInstrumentationVersion(instrumentationVersion))

	m := &metrics{}
	var err error
	if m.ticks, err = meter.Int64Counter(metricNameTicksTotal,
		metric.WithDescription("任务执行次数"), metric.WithUnit("{tick}")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram(metricNameTickDuration,
		metric.WithDescription("单次执行耗时"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) recordTick(ctx context.Context, id string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(attribute.String(attrTask, id), attribute.String(attrResult, result))
	m.ticks.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
