package xcoord

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/resilience/xbreaker"
	"github.com/omeyang/xcoord/pkg/resilience/xretry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastRetryer(attempts int) *xretry.Retryer {
	return xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewFixedRetry(attempts)),
		xretry.WithBackoffPolicy(xretry.NewFixedBackoff(time.Millisecond)),
	)
}

func newMemClient(t *testing.T, srv *MemoryServer, opts ...Option) Client {
	t.Helper()
	base := []Option{WithLogger(xlog.Discard()), WithRetryer(fastRetryer(4))}
	c := NewMemoryClient(srv, append(base, opts...)...)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "通道意外关闭")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("等待事件超时")
		return Event{}
	}
}

// TestClient_CreateChildren 测试节点创建顺序与归属
func TestClient_CreateChildren(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryServer()
	a, b := newMemClient(t, srv), newMemClient(t, srv)

	n1, err := a.CreateEphemeralSequential(ctx, "/locks/x")
	require.NoError(t, err)
	n2, err := b.CreateEphemeralSequential(ctx, "/locks/x/")
	require.NoError(t, err)
	n3, err := a.CreateEphemeralSequential(ctx, "/locks/x")
	require.NoError(t, err)

	assert.Equal(t, "/locks/x/n-0000000001", n1.ID)
	assert.Equal(t, "/locks/x", n2.Path)
	assert.Less(t, n1.Seq, n2.Seq)
	assert.Less(t, n2.Seq, n3.Seq)
	assert.Equal(t, n1.Session, n3.Session)
	assert.NotEqual(t, n1.Session, n2.Session)

	nodes, err := b.Children(ctx, "/locks/x")
	require.NoError(t, err)
	assert.Equal(t, []Node{n1, n2, n3}, nodes)

	// 其他路径互不影响
	other, err := a.Children(ctx, "/locks/y")
	require.NoError(t, err)
	assert.Empty(t, other)
}

// TestClient_InvalidPath 测试路径校验
func TestClient_InvalidPath(t *testing.T) {
	ctx := context.Background()
	c := newMemClient(t, NewMemoryServer())

	for _, p := range []string{"", "locks", "/", "//"} {
		_, err := c.CreateEphemeralSequential(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
		_, err = c.Children(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
	assert.ErrorIs(t, c.Delete(ctx, "n-1"), ErrInvalidPath)
	_, err := c.Watch(ctx, "n-1")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

// TestClient_Delete 测试删除及重复删除
func TestClient_Delete(t *testing.T) {
	ctx := context.Background()
	c := newMemClient(t, NewMemoryServer())

	n, err := c.CreateEphemeralSequential(ctx, "/d")
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, n.ID))
	assert.ErrorIs(t, c.Delete(ctx, n.ID), ErrNodeNotFound)

	nodes, err := c.Children(ctx, "/d")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

// TestClient_Watch 测试 Watch 的各类触发
func TestClient_Watch(t *testing.T) {
	ctx := context.Background()

	t.Run("节点删除", func(t *testing.T) {
		srv := NewMemoryServer()
		a, b := newMemClient(t, srv), newMemClient(t, srv)
		n, err := a.CreateEphemeralSequential(ctx, "/w")
		require.NoError(t, err)
		_, err = b.Session(ctx)
		require.NoError(t, err)

		ch, err := b.Watch(ctx, n.ID)
		require.NoError(t, err)
		require.NoError(t, a.Delete(ctx, n.ID))

		ev := recvEvent(t, ch)
		assert.Equal(t, EventNodeDeleted, ev.Type)
		assert.Equal(t, n.ID, ev.NodeID)
		_, ok := <-ch
		assert.False(t, ok, "事件后通道应关闭")
	})

	t.Run("节点已不存在", func(t *testing.T) {
		c := newMemClient(t, NewMemoryServer())
		_, err := c.Session(ctx)
		require.NoError(t, err)
		ch, err := c.Watch(ctx, "/w/n-0000000042")
		require.NoError(t, err)
		assert.Equal(t, EventNodeDeleted, recvEvent(t, ch).Type)
	})

	t.Run("持有者会话过期", func(t *testing.T) {
		srv := NewMemoryServer()
		a, b := newMemClient(t, srv), newMemClient(t, srv)
		n, err := a.CreateEphemeralSequential(ctx, "/w")
		require.NoError(t, err)
		_, err = b.Session(ctx)
		require.NoError(t, err)

		ch, err := b.Watch(ctx, n.ID)
		require.NoError(t, err)
		require.True(t, srv.Expire(n.Session))
		assert.Equal(t, EventNodeDeleted, recvEvent(t, ch).Type)
	})

	t.Run("自身会话丢失", func(t *testing.T) {
		srv := NewMemoryServer()
		a, b := newMemClient(t, srv), newMemClient(t, srv)
		n, err := a.CreateEphemeralSequential(ctx, "/w")
		require.NoError(t, err)
		s, err := b.Session(ctx)
		require.NoError(t, err)

		ch, err := b.Watch(ctx, n.ID)
		require.NoError(t, err)
		require.True(t, srv.Expire(s.ID()))
		assert.Equal(t, EventSessionLost, recvEvent(t, ch).Type)
	})

	t.Run("取消", func(t *testing.T) {
		srv := NewMemoryServer()
		c := newMemClient(t, srv)
		n, err := c.CreateEphemeralSequential(ctx, "/w")
		require.NoError(t, err)

		wctx, cancel := context.WithCancel(ctx)
		ch, err := c.Watch(wctx, n.ID)
		require.NoError(t, err)
		cancel()
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "取消后不应产生事件")
		case <-time.After(2 * time.Second):
			t.Fatal("取消后通道未关闭")
		}
	})

	t.Run("无会话", func(t *testing.T) {
		c := newMemClient(t, NewMemoryServer())
		_, err := c.Watch(ctx, "/w/n-0000000001")
		assert.ErrorIs(t, err, ErrSessionLost)
	})
}

// TestClient_SessionLost 测试会话过期回调与重连
func TestClient_SessionLost(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryServer()
	c := newMemClient(t, srv)

	n, err := c.CreateEphemeralSequential(ctx, "/s")
	require.NoError(t, err)

	var fired, cancelled atomic.Int32
	lost := make(chan Session, 1)
	c.OnSessionLost(func(s Session) {
		fired.Add(1)
		lost <- s
	})
	cancel := c.OnSessionLost(func(Session) { cancelled.Add(1) })
	cancel()
	cancel()

	require.True(t, srv.Expire(n.Session))
	select {
	case s := <-lost:
		assert.Equal(t, n.Session, s.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("未收到会话丢失回调")
	}
	assert.Equal(t, int32(1), fired.Load())
	assert.Zero(t, cancelled.Load())
	assert.Empty(t, srv.Nodes("/s"), "会话过期后节点应删除")

	s2, err := c.Session(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, n.Session, s2.ID())
	assert.False(t, srv.Expire(n.Session))
}

// TestClient_Retry 测试瞬时故障重试
func TestClient_Retry(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryServer()
	c := newMemClient(t, srv)
	_, err := c.Session(ctx)
	require.NoError(t, err)

	srv.FailNext(3)
	_, err = c.CreateEphemeralSequential(ctx, "/r")
	require.NoError(t, err, "3 次故障在 4 次尝试内恢复")

	srv.FailNext(4)
	_, err = c.Children(ctx, "/r")
	assert.ErrorIs(t, err, ErrCoordination)
	assert.True(t, IsTransient(err))
}

// TestClient_Breaker 测试熔断只统计协调服务故障
func TestClient_Breaker(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryServer()
	br := newBreaker("test", 2, time.Minute)
	c := newMemClient(t, srv, WithRetryer(fastRetryer(1)), WithBreaker(br))
	_, err := c.Session(ctx)
	require.NoError(t, err)

	// 业务错误不计为故障
	for range 3 {
		assert.ErrorIs(t, c.Delete(ctx, "/b/n-0000000009"), ErrNodeNotFound)
	}
	assert.Equal(t, xbreaker.StateClosed, br.State())

	srv.FailNext(2)
	for range 2 {
		_, err = c.Children(ctx, "/b")
		assert.ErrorIs(t, err, ErrCoordination)
	}
	assert.Equal(t, xbreaker.StateOpen, br.State())

	_, err = c.Children(ctx, "/b")
	assert.ErrorIs(t, err, ErrCoordination)
	assert.True(t, xbreaker.IsBreakerOpen(err))
}

// TestClient_Close 测试关闭后的行为
func TestClient_Close(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryServer()
	c := NewMemoryClient(srv, WithLogger(xlog.Discard()))

	var fired atomic.Bool
	c.OnSessionLost(func(Session) { fired.Store(true) })
	_, err := c.CreateEphemeralSequential(ctx, "/c")
	require.NoError(t, err)

	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx))
	assert.Empty(t, srv.Nodes("/c"))
	assert.Empty(t, srv.Sessions())
	assert.False(t, fired.Load(), "主动关闭不触发会话丢失回调")

	_, err = c.Session(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.CreateEphemeralSequential(ctx, "/c")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Children(ctx, "/c")
	assert.ErrorIs(t, err, ErrClosed)
}

// TestClient_NilContext 测试 nil context
func TestClient_NilContext(t *testing.T) {
	c := newMemClient(t, NewMemoryServer())
	//nolint:staticcheck // 测试 nil context
	_, err := c.Session(nil)
	assert.ErrorIs(t, err, ErrNilContext)
}

// TestSeqNodeID 测试顺序节点 ID 的生成与解析
func TestSeqNodeID(t *testing.T) {
	id := seqNodeID("/a/b", 17)
	assert.Equal(t, "/a/b/n-0000000017", id)

	p, seq, err := parseSeqNodeID(id)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", p)
	assert.Equal(t, int64(17), seq)

	for _, bad := range []string{"n-1", "/a/b/x-1", "/a/n-abc"} {
		_, _, err := parseSeqNodeID(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

// TestDial 测试按配置创建客户端
func TestDial(t *testing.T) {
	ctx := context.Background()

	c, err := Dial(ctx, Config{}, WithLogger(xlog.Discard()))
	require.NoError(t, err)
	n, err := c.CreateEphemeralSequential(ctx, "/dial")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Seq)
	require.NoError(t, c.Close(ctx))

	_, err = Dial(ctx, Config{Backend: "zk"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Dial(ctx, Config{Backend: BackendRedis})
	assert.ErrorIs(t, err, ErrNoRedisAddrs)

	cfg := Config{
		Retry:   RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond},
		Breaker: BreakerConfig{Enabled: true, Failures: 3},
	}
	o := applyOptions(cfg.Options())
	require.NotNil(t, o.breaker)
	assert.Equal(t, "xcoord-memory", o.breaker.Name())
	assert.Equal(t, 2, o.retryer.RetryPolicy().MaxAttempts())
}
