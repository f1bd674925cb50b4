package xcoord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/storage/xetcd"
)

type fakeLease struct {
	id   int64
	done chan struct{}
	once sync.Once
}

func newFakeLease(id int64) *fakeLease {
	return &fakeLease{id: id, done: make(chan struct{})}
}

func (f *fakeLease) Lease() int64          { return f.id }
func (f *fakeLease) Done() <-chan struct{} { return f.done }

func (f *fakeLease) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func newEtcdTestClient(t *testing.T, owned bool) (Client, *MocketcdStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := NewMocketcdStore(ctrl)
	o := applyOptions([]Option{WithLogger(xlog.Discard()), WithRetryer(fastRetryer(3))})
	return newClient(&etcdBackend{store: store, owned: owned}, o), store
}

// TestEtcd_CreateChildren 测试节点 key 与租约绑定、子节点过滤排序
func TestEtcd_CreateChildren(t *testing.T) {
	ctx := context.Background()
	c, store := newEtcdTestClient(t, false)
	lease := newFakeLease(0x1f)

	store.EXPECT().NewSession(gomock.Any(), DefaultSessionTTL).Return(lease, nil)
	store.EXPECT().PutWithLease(gomock.Any(), gomock.Any(), []byte("1f"), int64(0x1f)).
		DoAndReturn(func(_ context.Context, key string, _ []byte, _ int64) (int64, error) {
			assert.True(t, strings.HasPrefix(key, "/locks/e/"))
			return 42, nil
		})

	n, err := c.CreateEphemeralSequential(ctx, "/locks/e")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n.Seq)
	assert.Equal(t, "1f", n.Session)
	assert.Equal(t, "/locks/e", n.Path)

	store.EXPECT().List(gomock.Any(), "/locks/e/").Return([]xetcd.KeyValue{
		{Key: "/locks/e/b", Value: []byte("2a"), CreateRevision: 40},
		{Key: "/locks/e/nested/x", Value: []byte("2a"), CreateRevision: 41},
		{Key: n.ID, Value: []byte("1f"), CreateRevision: 42},
	}, int64(43), nil)

	nodes, err := c.Children(ctx, "/locks/e")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "/locks/e/b", nodes[0].ID)
	assert.Equal(t, "2a", nodes[0].Session)
	assert.Equal(t, n, nodes[1])

	require.NoError(t, c.Close(ctx))
	select {
	case <-lease.Done():
	default:
		t.Fatal("Close 应撤销租约")
	}
}

// TestEtcd_ErrorMapping 测试错误分类与重试
func TestEtcd_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("租约不存在即会话丢失", func(t *testing.T) {
		c, store := newEtcdTestClient(t, false)
		store.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(newFakeLease(1), nil)
		store.EXPECT().PutWithLease(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), fmt.Errorf("xetcd: put: %w", rpctypes.ErrLeaseNotFound)).Times(1)

		_, err := c.CreateEphemeralSequential(ctx, "/x")
		assert.ErrorIs(t, err, ErrSessionLost)
		require.NoError(t, c.Close(ctx))
	})

	t.Run("瞬时故障重试", func(t *testing.T) {
		c, store := newEtcdTestClient(t, false)
		gomock.InOrder(
			store.EXPECT().Delete(gomock.Any(), "/x/a").Return(false, errors.New("unavailable")),
			store.EXPECT().Delete(gomock.Any(), "/x/a").Return(true, nil),
		)
		require.NoError(t, c.Delete(ctx, "/x/a"))
		require.NoError(t, c.Close(ctx))
	})

	t.Run("重试耗尽", func(t *testing.T) {
		c, store := newEtcdTestClient(t, false)
		store.EXPECT().List(gomock.Any(), "/x/").Return(nil, int64(0), errors.New("unavailable")).Times(3)
		_, err := c.Children(ctx, "/x")
		assert.ErrorIs(t, err, ErrCoordination)
		require.NoError(t, c.Close(ctx))
	})

	t.Run("客户端已关闭", func(t *testing.T) {
		c, store := newEtcdTestClient(t, false)
		store.EXPECT().Delete(gomock.Any(), "/x/a").Return(false, xetcd.ErrClientClosed).Times(1)
		assert.ErrorIs(t, c.Delete(ctx, "/x/a"), ErrClosed)
		require.NoError(t, c.Close(ctx))
	})
}

// TestEtcd_Watch 测试从 Get 的下一个 revision 开始监听
func TestEtcd_Watch(t *testing.T) {
	ctx := context.Background()
	c, store := newEtcdTestClient(t, true)
	store.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(newFakeLease(7), nil)
	_, err := c.Session(ctx)
	require.NoError(t, err)

	events := make(chan xetcd.Event, 1)
	store.EXPECT().Get(gomock.Any(), "/w/a").Return(&xetcd.KeyValue{Key: "/w/a"}, int64(10), nil)
	store.EXPECT().Watch(gomock.Any(), "/w/a", gomock.Any()).Return((<-chan xetcd.Event)(events), nil)

	ch, err := c.Watch(ctx, "/w/a")
	require.NoError(t, err)
	events <- xetcd.Event{Type: xetcd.EventPut, Key: "/w/a"}
	events <- xetcd.Event{Type: xetcd.EventDelete, Key: "/w/a"}
	assert.Equal(t, EventNodeDeleted, recvEvent(t, ch).Type)

	store.EXPECT().Get(gomock.Any(), "/w/b").Return(nil, int64(11), xetcd.ErrKeyNotFound)
	ch, err = c.Watch(ctx, "/w/b")
	require.NoError(t, err)
	assert.Equal(t, EventNodeDeleted, recvEvent(t, ch).Type)

	store.EXPECT().Close().Return(nil)
	require.NoError(t, c.Close(ctx))
}

// TestEtcd_SessionLost 测试租约失效后 Watch 报告会话丢失
func TestEtcd_SessionLost(t *testing.T) {
	ctx := context.Background()
	c, store := newEtcdTestClient(t, false)
	lease := newFakeLease(9)
	store.EXPECT().NewSession(gomock.Any(), gomock.Any()).Return(lease, nil)
	_, err := c.Session(ctx)
	require.NoError(t, err)

	lost := make(chan struct{})
	c.OnSessionLost(func(Session) { close(lost) })

	store.EXPECT().Get(gomock.Any(), "/w/a").Return(&xetcd.KeyValue{Key: "/w/a"}, int64(3), nil)
	store.EXPECT().Watch(gomock.Any(), "/w/a", gomock.Any()).Return(make(<-chan xetcd.Event), nil)
	ch, err := c.Watch(ctx, "/w/a")
	require.NoError(t, err)

	require.NoError(t, lease.Close())
	assert.Equal(t, EventSessionLost, recvEvent(t, ch).Type)
	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("未收到会话丢失回调")
	}
	require.NoError(t, c.Close(ctx))
}
