package xcoord

import (
	"context"
	"time"
)

// backend 协调服务后端
//
// 瞬时故障返回包装了 ErrCoordination 的错误；会话已失效返回 ErrSessionLost。
// 路径由 client 校验和规范化后传入。
type backend interface {
	name() string

	openSession(ctx context.Context, ttl time.Duration) (backendSession, error)

	create(ctx context.Context, s backendSession, path string) (Node, error)

	// remove 返回节点是否存在
	remove(ctx context.Context, id string) (bool, error)

	// children 按 Seq 升序
	children(ctx context.Context, path string) ([]Node, error)

	// watchDeleted 节点删除（或已不存在）时关闭返回的通道；stop 释放监听资源
	watchDeleted(ctx context.Context, id string) (gone <-chan struct{}, stop func(), err error)

	close() error
}

// backendSession 后端会话
type backendSession interface {
	Session

	// Close 结束会话并删除其节点，幂等
	Close() error
}
