package xrun

import (
	"context"
	"os"
	"syscall"
	"time"
)

// DefaultSignals 默认监听的退出信号
//
// 包含 SIGHUP、SIGINT、SIGTERM、SIGQUIT。终端断开（如 SSH 断连）会触发
// SIGHUP；不希望因此退出时用 [WithSignals] 传入自定义列表。
//
// 每次调用返回新切片，调用方可以随意修改。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

type testSigChanKey struct{}

// testSigChan 测试通过 context 注入信号，生产环境返回 nil（永不就绪）
func testSigChan(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Ticker 返回周期执行 fn 的服务函数
//
// interval 必须为正，否则服务函数返回 [ErrInvalidInterval]。
// immediate 为 true 时启动即执行一次，不必等待第一个周期。
// 每次执行前检查 ctx，取消后不会再开始新的一轮；fn 返回错误即退出。
//
// 示例：
//
//	g.Go(xrun.Ticker(5*time.Second, true, func(ctx context.Context) error {
//	    return renew(ctx)
//	}))
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}
		if immediate {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// ticker 与取消同时就绪时 select 随机选择
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Timer 返回延迟 delay 后执行一次 fn 的服务函数
//
// delay 为负时服务函数返回 [ErrInvalidDelay]；为 0 时立即执行。
// 等待期间 ctx 取消则不执行 fn，返回 ctx.Err()。
//
// 示例：
//
//	err := xrun.Timer(time.Second, func(context.Context) error { return nil })(ctx)
func Timer(delay time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if delay < 0 {
			return ErrInvalidDelay
		}
		if fn == nil {
			return ErrNilFunc
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if delay == 0 {
			return fn(ctx)
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitForDone 阻塞直到 ctx 取消
func WaitForDone() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}
