package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/distributed/xdlock"
	"github.com/omeyang/xcoord/pkg/lifecycle/xrun"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// DefaultLockPath 锁场景共用的路径
const DefaultLockPath = "/locks/shared"

// Worker 一次加锁尝试
type Worker struct {
	ID      int           `json:"id" yaml:"id" koanf:"id"`
	Work    time.Duration `json:"work" yaml:"work" koanf:"work"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" koanf:"timeout"`
}

// Scenario 并发运行的一组 worker
type Scenario struct {
	Name    string   `json:"name" yaml:"name" koanf:"name"`
	Workers []Worker `json:"workers" yaml:"workers" koanf:"workers"`
}

// LockConfig 锁场景配置
type LockConfig struct {
	// Path 锁路径，默认 /locks/shared
	Path string `json:"path" yaml:"path" koanf:"path"`

	// Stagger 同一场景内相邻 worker 的启动间隔，保证先后顺序，默认 100ms
	Stagger time.Duration `json:"stagger" yaml:"stagger" koanf:"stagger"`

	// Pause 场景之间的间隔
	Pause time.Duration `json:"pause" yaml:"pause" koanf:"pause"`

	// Scenarios 为空时使用 DefaultLockScenarios
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios" koanf:"scenarios"`
}

// Result 单个 worker 的结果
type Result struct {
	Worker   int
	Acquired bool
	Waited   time.Duration
	Err      error
}

// DefaultLockScenarios 三个经典场景：
// 前者工作时间超过后者等待时间两次，以及前者在后者超时前完成
func DefaultLockScenarios() []Scenario {
	return []Scenario{
		{
			Name:    "first client starts long work, second times out",
			Workers: []Worker{{1, 3 * time.Second, time.Second}, {2, 3 * time.Second, time.Second}},
		},
		{
			Name:    "first client works on the same lock again, second times out",
			Workers: []Worker{{3, 3 * time.Second, time.Second}, {4, 3 * time.Second, time.Second}},
		},
		{
			Name:    "first client finishes before second times out, second proceeds",
			Workers: []Worker{{5, time.Second, time.Second}, {6, 2 * time.Second, 5 * time.Second}},
		},
	}
}

const defaultStagger = 100 * time.Millisecond

// RunLockScenarios 依次运行场景，同一场景内的 worker 共享 client 并发争锁
//
// 返回按场景、worker 顺序排列的结果；ctx 取消时返回已完成部分和 ctx 错误。
func RunLockScenarios(ctx context.Context, client xcoord.Client, cfg LockConfig, opts ...Option) ([]Result, error) {
	if client == nil {
		return nil, xdlock.ErrNilClient
	}
	o := applyOptions(opts)
	path := cfg.Path
	if path == "" {
		path = DefaultLockPath
	}
	stagger := cfg.Stagger
	if stagger <= 0 {
		stagger = defaultStagger
	}
	scenarios := cfg.Scenarios
	if len(scenarios) == 0 {
		scenarios = DefaultLockScenarios()
	}

	var results []Result
	for i, sc := range scenarios {
		if i > 0 && cfg.Pause > 0 {
			if err := sleep(ctx, cfg.Pause); err != nil {
				return results, err
			}
		}
		o.logger.Info(ctx, sc.Name, slog.Int("scenario", i+1))
		rs, err := runScenario(ctx, client, path, stagger, sc, o)
		results = append(results, rs...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func runScenario(ctx context.Context, client xcoord.Client, path string, stagger time.Duration, sc Scenario, o *options) ([]Result, error) {
	results := make([]Result, len(sc.Workers))
	var mu sync.Mutex

	g, gctx := xrun.NewGroup(ctx, xrun.WithLogger(o.logger), xrun.WithName("lock-scenario"))
	for i, w := range sc.Workers {
		if i > 0 {
			if err := sleep(gctx, stagger); err != nil {
				break
			}
		}
		g.GoWithName(fmt.Sprintf("worker-%d", w.ID), func(ctx context.Context) error {
			r := runWorker(ctx, client, path, w, o)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

// runWorker 有限等待加锁，持有期间模拟工作，最后释放
func runWorker(ctx context.Context, client xcoord.Client, path string, w Worker, o *options) Result {
	logger := o.logger.With(slog.Int("worker", w.ID))
	res := Result{Worker: w.ID}
	logger.Info(ctx, "starting worker", slog.Duration("timeout", w.Timeout), slog.Duration("work", w.Work))

	m, err := xdlock.New(client, path, xdlock.WithLogger(o.logger), xdlock.WithMeterProvider(o.meterProvider))
	if err != nil {
		res.Err = err
		logger.Error(ctx, "failed to create lock", xlog.Err(err))
		return res
	}

	start := time.Now()
	ok, err := m.Acquire(ctx, w.Timeout)
	res.Waited = time.Since(start)
	switch {
	case err != nil:
		res.Err = err
		logger.Error(ctx, "failed to acquire lock", xlog.Err(err))
	case !ok:
		logger.Warn(ctx, "timed out while waiting for lock", xlog.Duration(res.Waited))
	default:
		res.Acquired = true
		logger.Info(ctx, "lock acquired, doing some work", xlog.Duration(res.Waited), slog.Duration("work", w.Work))
		if err := sleep(ctx, w.Work); err == nil {
			logger.Info(ctx, "work done, releasing lock")
		}
	}

	if m.IsHeld() {
		if err := m.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "release failed, ignoring", xlog.Err(err))
		}
	}
	logger.Info(ctx, "all done")
	return res
}

// sleep 等待 d，ctx 取消时提前返回
func sleep(ctx context.Context, d time.Duration) error {
	return xrun.Timer(d, func(context.Context) error { return nil })(ctx)
}
