package xcoord

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newRedisTestClient(t *testing.T, rdb redis.UniversalClient, ttl time.Duration) Client {
	t.Helper()
	c := NewRedisClient(rdb,
		WithLogger(xlog.Discard()),
		WithRetryer(fastRetryer(2)),
		WithSessionTTL(ttl),
		WithPollInterval(10*time.Millisecond),
		WithKeyPrefix("test:"),
	)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// TestRedis_CreateChildren 测试序号分配与子节点列表
func TestRedis_CreateChildren(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	a := newRedisTestClient(t, rdb, time.Minute)
	b := newRedisTestClient(t, rdb, time.Minute)

	n1, err := a.CreateEphemeralSequential(ctx, "/locks/r")
	require.NoError(t, err)
	n2, err := b.CreateEphemeralSequential(ctx, "/locks/r")
	require.NoError(t, err)

	assert.Equal(t, "/locks/r/n-0000000001", n1.ID)
	assert.Equal(t, "/locks/r/n-0000000002", n2.ID)
	assert.True(t, mr.Exists("test:session:"+n1.Session))

	nodes, err := a.Children(ctx, "/locks/r")
	require.NoError(t, err)
	assert.Equal(t, []Node{n1, n2}, nodes)

	require.NoError(t, b.Delete(ctx, n1.ID))
	assert.ErrorIs(t, b.Delete(ctx, n1.ID), ErrNodeNotFound)
	nodes, err = a.Children(ctx, "/locks/r")
	require.NoError(t, err)
	assert.Equal(t, []Node{n2}, nodes)
}

// TestRedis_Watch 测试轮询式 Watch
func TestRedis_Watch(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupRedis(t)
	a := newRedisTestClient(t, rdb, time.Minute)
	b := newRedisTestClient(t, rdb, time.Minute)

	n, err := a.CreateEphemeralSequential(ctx, "/w")
	require.NoError(t, err)
	_, err = b.Session(ctx)
	require.NoError(t, err)

	ch, err := b.Watch(ctx, n.ID)
	require.NoError(t, err)
	select {
	case <-ch:
		t.Fatal("节点仍存在时不应触发")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, a.Delete(ctx, n.ID))
	ev := recvEvent(t, ch)
	assert.Equal(t, EventNodeDeleted, ev.Type)
}

// TestRedis_SessionExpiry 测试会话 key 过期后节点失效、会话结束
func TestRedis_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	short := newRedisTestClient(t, rdb, 300*time.Millisecond)

	n, err := short.CreateEphemeralSequential(ctx, "/e")
	require.NoError(t, err)
	s, err := short.Session(ctx)
	require.NoError(t, err)

	// 心跳在真实时间里续期，服务端时间快进直接越过 TTL
	mr.FastForward(time.Second)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("会话未结束")
	}

	observer := newRedisTestClient(t, rdb, time.Minute)
	nodes, err := observer.Children(ctx, "/e")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.ErrorIs(t, observer.Delete(ctx, n.ID), ErrNodeNotFound)

	// 重新建立会话
	s2, err := short.Session(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), s2.ID())
}

// TestRedis_Close 测试关闭时删除会话 key
func TestRedis_Close(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	c := NewRedisClient(rdb, WithLogger(xlog.Discard()))

	s, err := c.Session(ctx)
	require.NoError(t, err)
	key := DefaultKeyPrefix + "session:" + s.ID()
	assert.True(t, mr.Exists(key))

	require.NoError(t, c.Close(ctx))
	assert.False(t, mr.Exists(key))
	// rdb 不归客户端所有，仍可用
	require.NoError(t, rdb.Ping(ctx).Err())
}

// TestRedis_Unavailable 测试 redis 不可用时返回瞬时故障
func TestRedis_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := newRedisTestClient(t, rdb, time.Minute)
	mr.Close()

	_, err := c.Session(ctx)
	assert.ErrorIs(t, err, ErrCoordination)
}

// TestDial_Redis 测试按配置连接 redis 后端
func TestDial_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := Config{Backend: BackendRedis, SessionTTL: time.Second}
	cfg.Redis.Addrs = []string{mr.Addr()}
	cfg.Redis.KeyPrefix = "dial:"
	c, err := Dial(ctx, cfg, WithLogger(xlog.Discard()))
	require.NoError(t, err)
	defer func() { _ = c.Close(ctx) }()

	n, err := c.CreateEphemeralSequential(ctx, "/dial")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Seq)
	assert.True(t, mr.Exists("dial:seq:/dial"))
}
