package xrun

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestGroup_ErrorCancelsOthers 测试一个服务出错取消其他服务
func TestGroup_ErrorCancelsOthers(t *testing.T) {
	g, _ := NewGroup(context.Background(), WithName("test"), WithLogger(xlog.Discard()))
	boom := errors.New("boom")

	g.GoWithName("waiter", WaitForDone())
	g.GoWithName("failer", func(context.Context) error { return boom })
	assert.ErrorIs(t, g.Wait(), boom)
}

// TestGroup_CancelCause 测试 Cancel 的原因被返回
func TestGroup_CancelCause(t *testing.T) {
	g, ctx := NewGroup(context.Background(), WithLogger(xlog.Discard()))
	cause := errors.New("leadership lost")
	g.Go(WaitForDone())
	g.Cancel(cause)
	assert.ErrorIs(t, g.Wait(), cause)
	assert.Error(t, ctx.Err())
	assert.Equal(t, ctx, g.Context())
}

// TestGroup_NilFunc 测试 nil 服务
func TestGroup_NilFunc(t *testing.T) {
	g, _ := NewGroup(nil) //nolint:staticcheck // 测试 nil ctx
	g.Go(nil)
	assert.ErrorIs(t, g.Wait(), ErrNilFunc)
}

// TestRun_Signal 测试信号触发退出
func TestRun_Signal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigCh)
	sigCh <- syscall.SIGTERM

	err := Run(ctx, []Option{WithLogger(xlog.Discard()), WithSignals([]os.Signal{syscall.SIGUSR1})}, WaitForDone())
	assert.ErrorIs(t, err, ErrSignal)
	var se *SignalError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, syscall.SIGTERM, se.Signal)
	assert.Contains(t, se.Error(), "terminated")
}

// TestRun_WithoutSignalHandler 测试服务正常结束
func TestRun_WithoutSignalHandler(t *testing.T) {
	err := Run(context.Background(), []Option{WithoutSignalHandler()}, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

// TestTicker 测试周期执行与取消
func TestTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Ticker(5*time.Millisecond, true, func(context.Context) error {
			if n.Add(1) == 3 {
				cancel()
			}
			return nil
		})(ctx)
	}()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(3), n.Load())

	assert.ErrorIs(t, Ticker(0, false, func(context.Context) error { return nil })(ctx), ErrInvalidInterval)
	assert.ErrorIs(t, Ticker(time.Second, false, nil)(ctx), ErrNilFunc)
	assert.ErrorIs(t, Ticker(time.Second, true, func(context.Context) error { return nil })(ctx), context.Canceled)
}

// TestTimer 测试延迟执行、零延迟与取消
func TestTimer(t *testing.T) {
	ctx := context.Background()
	var n atomic.Int32
	inc := func(context.Context) error { n.Add(1); return nil }

	start := time.Now()
	require.NoError(t, Timer(20*time.Millisecond, inc)(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.NoError(t, Timer(0, inc)(ctx))
	assert.Equal(t, int32(2), n.Load())

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Timer(time.Minute, inc)(cctx), context.DeadlineExceeded)
	assert.Equal(t, int32(2), n.Load(), "取消后不执行")

	assert.ErrorIs(t, Timer(-time.Second, inc)(ctx), ErrInvalidDelay)
	assert.ErrorIs(t, Timer(time.Second, nil)(ctx), ErrNilFunc)
}

// TestDefaultSignals 测试返回独立切片
func TestDefaultSignals(t *testing.T) {
	a := DefaultSignals()
	a[0] = nil
	assert.NotNil(t, DefaultSignals()[0])
	assert.Equal(t, "received signal <nil>", (&SignalError{}).Error())
}
