package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// Group 共享 context 的 goroutine 组
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建 Group，返回的 context 在任一服务出错或 Cancel 时取消
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	if options.logger == nil {
		options.logger = xlog.Default()
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: options}, egCtx
}

// Go 启动服务
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 启动具名服务，启停记录日志
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.opts.logger.Debug(g.ctx, "service starting", attrs...)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Wait 等待所有服务退出
//
// 因 Cancel(cause) 或信号退出时返回 cause；单纯的 context.Canceled 视为正常退出。
func (g *Group) Wait() error {
	defer g.cancel(nil)
	err := g.eg.Wait()

	cause := context.Cause(g.causeCtx)
	if cause != nil && !errors.Is(cause, context.Canceled) {
		if err == nil || errors.Is(err, context.Canceled) {
			return cause
		}
	}
	if errors.Is(err, context.Canceled) && g.causeCtx.Err() != nil {
		return nil
	}
	return err
}

// Cancel 以 cause 取消 Group
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context Group 的 context
func (g *Group) Context() context.Context {
	return g.ctx
}

// Run 运行服务直到全部退出或收到信号
func Run(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, signals...)
			defer signal.Stop(sigCh)

			var sig os.Signal
			select {
			case sig = <-testSigChan(ctx):
			case sig = <-sigCh:
			case <-ctx.Done():
				return ctx.Err()
			}
			g.opts.logger.Info(ctx, "received signal",
				slog.String("group", g.opts.name), slog.String("signal", sig.String()))
			g.cancel(&SignalError{Signal: sig})
			return nil
		})
	}
	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}
