package xcoord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"

	"github.com/omeyang/xcoord/pkg/storage/xetcd"
)

// etcdStore xetcd.Client 中 etcd 后端用到的部分
type etcdStore interface {
	NewSession(ctx context.Context, ttl time.Duration) (xetcd.LeaseSession, error)
	PutWithLease(ctx context.Context, key string, value []byte, lease int64) (int64, error)
	Get(ctx context.Context, key string) (*xetcd.KeyValue, int64, error)
	List(ctx context.Context, prefix string) ([]xetcd.KeyValue, int64, error)
	Delete(ctx context.Context, key string) (bool, error)
	Watch(ctx context.Context, key string, opts ...xetcd.WatchOption) (<-chan xetcd.Event, error)
	Close() error
}

var (
	_ etcdStore      = (*xetcd.Client)(nil)
	_ backend        = (*etcdBackend)(nil)
	_ backendSession = (*etcdSession)(nil)
)

// NewEtcdClient 基于已有 etcd 连接创建客户端，Close 不关闭 cli
//
// 会话即租约；节点 key 为 <path>/<uuid>，挂在租约上，Seq 取 CreateRevision。
func NewEtcdClient(cli *xetcd.Client, opts ...Option) Client {
	return newClient(&etcdBackend{store: cli}, applyOptions(opts))
}

type etcdBackend struct {
	store etcdStore
	owned bool
}

type etcdSession struct {
	ls xetcd.LeaseSession
	id string
}

func (s *etcdSession) ID() string            { return s.id }
func (s *etcdSession) Done() <-chan struct{} { return s.ls.Done() }
func (s *etcdSession) Close() error          { return s.ls.Close() }

func (b *etcdBackend) name() string { return "etcd" }

func (b *etcdBackend) wrap(ctx context.Context, op string, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, xetcd.ErrClientClosed):
		return ErrClosed
	case errors.Is(err, rpctypes.ErrLeaseNotFound):
		return ErrSessionLost
	case errors.Is(err, xetcd.ErrEmptyKey), errors.Is(err, xetcd.ErrInvalidTTL), errors.Is(err, xetcd.ErrNoRawClient):
		return err
	default:
		return fmt.Errorf("%w: etcd %s: %w", ErrCoordination, op, err)
	}
}

func (b *etcdBackend) openSession(ctx context.Context, ttl time.Duration) (backendSession, error) {
	ls, err := b.store.NewSession(ctx, max(ttl, time.Second))
	if err != nil {
		return nil, b.wrap(ctx, "open session", err)
	}
	return &etcdSession{ls: ls, id: strconv.FormatInt(ls.Lease(), 16)}, nil
}

func (b *etcdBackend) create(ctx context.Context, s backendSession, path string) (Node, error) {
	es, ok := s.(*etcdSession)
	if !ok {
		return Node{}, fmt.Errorf("%w: foreign session %T", ErrState, s)
	}
	select {
	case <-es.Done():
		return Node{}, ErrSessionLost
	default:
	}

	key := path + "/" + uuid.NewString()
	rev, err := b.store.PutWithLease(ctx, key, []byte(es.id), es.ls.Lease())
	if err != nil {
		return Node{}, b.wrap(ctx, "create", err)
	}
	return Node{ID: key, Path: path, Seq: rev, Session: es.id}, nil
}

func (b *etcdBackend) remove(ctx context.Context, id string) (bool, error) {
	ok, err := b.store.Delete(ctx, id)
	if err != nil {
		return false, b.wrap(ctx, "delete", err)
	}
	return ok, nil
}

func (b *etcdBackend) children(ctx context.Context, path string) ([]Node, error) {
	prefix := path + "/"
	kvs, _, err := b.store.List(ctx, prefix)
	if err != nil {
		return nil, b.wrap(ctx, "children", err)
	}
	nodes := make([]Node, 0, len(kvs))
	for _, kv := range kvs {
		// 只要直接子节点
		if strings.Contains(kv.Key[len(prefix):], "/") {
			continue
		}
		nodes = append(nodes, Node{
			ID:      kv.Key,
			Path:    path,
			Seq:     kv.CreateRevision,
			Session: string(kv.Value),
		})
	}
	return nodes, nil
}

// watchDeleted 从 Get 的下一个 revision 开始监听，不会漏掉中间的删除
//
// Watch 出错（例如 revision 已被压缩）时同样关闭通道，由调用方重新检查。
// 关闭 gone 后 xetcd 的监听由 stop 取消。
func (b *etcdBackend) watchDeleted(ctx context.Context, id string) (<-chan struct{}, func(), error) {
	gone := make(chan struct{})
	_, rev, err := b.store.Get(ctx, id)
	if xetcd.IsKeyNotFound(err) {
		close(gone)
		return gone, func() {}, nil
	}
	if err != nil {
		return nil, nil, b.wrap(ctx, "watch", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	events, err := b.store.Watch(wctx, id, xetcd.WithRevision(rev+1))
	if err != nil {
		cancel()
		return nil, nil, b.wrap(ctx, "watch", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-wctx.Done():
				return
			case ev, ok := <-events:
				// 通道在未取消时关闭，同样交由调用方重新检查
				if !ok || ev.Error != nil || ev.Type == xetcd.EventDelete {
					close(gone)
					return
				}
			}
		}
	}()

	stop := func() {
		cancel()
		wg.Wait()
	}
	return gone, stop, nil
}

func (b *etcdBackend) close() error {
	if !b.owned {
		return nil
	}
	if err := b.store.Close(); err != nil {
		return fmt.Errorf("xcoord: close etcd: %w", err)
	}
	return nil
}
