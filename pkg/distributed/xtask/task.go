package xtask

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xcoord/pkg/lifecycle/xrun"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// TickFunc 每次执行调用，tick 为本次运行内从 1 开始的序号
//
// 返回的错误只记录日志，不中断任务。
type TickFunc func(ctx context.Context, tick int64) error

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Task 周期任务，并发安全
type Task struct {
	id       string
	fn       TickFunc
	interval time.Duration
	schedule cron.Schedule
	logger   xlog.Logger
	metrics  *metrics

	ticks atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New 创建任务；fn 为 nil 时只计数并记录日志
func New(id string, fn TickFunc, opts ...Option) (*Task, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	o := &options{interval: DefaultInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	t := &Task{id: id, fn: fn, interval: o.interval}
	if o.schedule != "" {
		s, err := scheduleParser.Parse(o.schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, o.schedule, err)
		}
		t.schedule = s
	}
	met, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xtask: init metrics: %w", err)
	}
	t.metrics = met

	logger := o.logger
	if logger == nil {
		logger = xlog.Default()
	}
	t.logger = logger.With(xlog.Component("xtask"), xlog.Owner(id))
	return t, nil
}

// ID 任务标识
func (t *Task) ID() string { return t.id }

// Ticks 本次运行的执行次数，Start 时清零
func (t *Task) Ticks() int64 { return t.ticks.Load() }

// Running 执行 goroutine 是否存活
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aliveLocked()
}

func (t *Task) aliveLocked() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Start 启动任务，立即返回
//
// 按间隔运行时启动即执行第一次，此后每个间隔执行一次；按 cron 运行时
// 等到第一个触发时间。ctx 取消同样结束任务。任务运行中返回 ErrState。
func (t *Task) Start(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.aliveLocked() {
		return fmt.Errorf("xtask: start %s: %w", t.id, ErrState)
	}
	if t.cancel != nil {
		t.cancel()
	}

	t.ticks.Store(0)
	rctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	run := xrun.Ticker(t.interval, true, t.tick)
	if t.schedule != nil {
		run = t.runSchedule
	}
	go func() {
		defer close(done)
		_ = run(rctx)
	}()
	t.logger.Info(ctx, "task-started")
	return nil
}

// Stop 停止任务并等待执行 goroutine 退出
//
// 正在进行的一次执行会收到 ctx 取消并被等待完成。任务未运行时返回 ErrState。
func (t *Task) Stop() error {
	t.mu.Lock()
	if !t.aliveLocked() {
		if t.cancel != nil {
			t.cancel()
		}
		t.cancel, t.done = nil, nil
		t.mu.Unlock()
		return fmt.Errorf("xtask: stop %s: %w", t.id, ErrState)
	}
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	cancel()
	<-done
	t.logger.Info(context.Background(), "task-stopped", xlog.Count(t.ticks.Load()))
	return nil
}

// Lead 启动任务，ctx 取消后停止；签名与 xelect.LeadershipFunc 一致
func (t *Task) Lead(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	// 任务可能已被单独停止
	_ = t.Stop()
	return nil
}

func (t *Task) tick(ctx context.Context) error {
	n := t.ticks.Add(1)
	t.logger.Info(ctx, "task-tick", xlog.Count(n))
	if t.fn == nil {
		t.metrics.recordTick(ctx, t.id, 0, nil)
		return nil
	}
	start := time.Now()
	err := t.fn(ctx, n)
	t.metrics.recordTick(ctx, t.id, time.Since(start), err)
	if err != nil && ctx.Err() == nil {
		t.logger.Warn(ctx, "task tick failed", xlog.Count(n), xlog.Err(err))
	}
	return nil
}

func (t *Task) runSchedule(ctx context.Context) error {
	for {
		timer := time.NewTimer(time.Until(t.schedule.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.tick(ctx); err != nil {
			return err
		}
	}
}
