package xcoord

import (
	"context"
	"fmt"
)

// Node 临时顺序节点
type Node struct {
	// ID 节点全路径，全局唯一
	ID string

	// Path 父路径
	Path string

	// Seq 同一 Path 下严格递增的创建序号
	Seq int64

	// Session 创建者的会话 ID
	Session string
}

func (n Node) String() string {
	return fmt.Sprintf("%s#%d", n.ID, n.Seq)
}

// Session 会话
type Session interface {
	ID() string

	// Done 会话过期或关闭时关闭
	Done() <-chan struct{}
}

// EventType Watch 事件类型
type EventType int

const (
	// EventNodeDeleted 被监听的节点已删除
	EventNodeDeleted EventType = iota + 1

	// EventSessionLost 监听者自己的会话已丢失
	EventSessionLost
)

func (t EventType) String() string {
	switch t {
	case EventNodeDeleted:
		return "node-deleted"
	case EventSessionLost:
		return "session-lost"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Event Watch 事件
type Event struct {
	Type   EventType
	NodeID string
}

// Client 协调服务客户端，并发安全
type Client interface {
	// Session 返回当前会话；没有存活会话时按退避策略建立新会话
	Session(ctx context.Context) (Session, error)

	// CreateEphemeralSequential 在 path 下创建临时顺序节点，归属当前会话
	CreateEphemeralSequential(ctx context.Context, path string) (Node, error)

	// Delete 删除节点，不存在时返回 ErrNodeNotFound
	Delete(ctx context.Context, id string) error

	// Children 返回 path 下存活节点，按 Seq 升序
	Children(ctx context.Context, path string) ([]Node, error)

	// Watch 一次性监听节点删除
	//
	// 返回的通道最多产生一个事件随后关闭：节点删除（调用时已不存在则立即触发）
	// 或当前会话丢失。ctx 取消时通道直接关闭，不产生事件。
	// 后端监听中断时也会报告节点删除，调用方应重新读取 Children 确认。
	Watch(ctx context.Context, id string) (<-chan Event, error)

	// OnSessionLost 注册会话丢失回调，返回取消注册函数
	OnSessionLost(fn func(Session)) (cancel func())

	// Close 关闭当前会话（删除其节点）并释放资源
	Close(ctx context.Context) error
}
