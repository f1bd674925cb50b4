package xetcd

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/etcd/client/v3/concurrency"
)

// LeaseSession 租约会话
//
// 会话存活期间后台持续续约；续约失败或租约过期后 Done 关闭，
// 挂在该租约上的 key 由 etcd 删除。
type LeaseSession interface {
	Lease() int64
	Done() <-chan struct{}

	// Close 撤销租约，立即删除挂在其上的 key
	Close() error
}

type leaseSession struct {
	s *concurrency.Session
}

func (l *leaseSession) Lease() int64          { return int64(l.s.Lease()) }
func (l *leaseSession) Done() <-chan struct{} { return l.s.Done() }
func (l *leaseSession) Close() error          { return l.s.Close() }

// NewSession 创建租约会话，ttl 向下取整到秒
//
// ctx 只约束租约申请；续约的生命周期由 Close 或租约过期决定。
func (c *Client) NewSession(ctx context.Context, ttl time.Duration) (LeaseSession, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if c.rawClient == nil {
		return nil, ErrNoRawClient
	}
	if ttl < time.Second {
		return nil, ErrInvalidTTL
	}
	grant, err := c.rawClient.Grant(ctx, int64(ttl/time.Second))
	if err != nil {
		return nil, fmt.Errorf("xetcd: grant lease: %w", err)
	}
	s, err := concurrency.NewSession(c.rawClient,
		concurrency.WithTTL(int(grant.TTL)),
		concurrency.WithLease(grant.ID),
		concurrency.WithContext(context.WithoutCancel(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("xetcd: new session: %w", err)
	}
	return &leaseSession{s: s}, nil
}
