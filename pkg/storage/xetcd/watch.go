package xetcd

import (
	"context"
	"fmt"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EventType 事件类型
type EventType int

const (
	EventPut EventType = iota
	EventDelete
	EventUnknown EventType = -1
)

func (e EventType) String() string {
	switch e {
	case EventPut:
		return "PUT"
	case EventDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", e)
	}
}

// Event Watch 事件；Error 非空时通道随后关闭
type Event struct {
	Type     EventType
	Key      string
	Value    []byte
	Revision int64
	Error    error
}

// DefaultWatchBufferSize 事件通道默认容量
const DefaultWatchBufferSize = 16

type watchOptions struct {
	prefix     bool
	revision   int64
	bufferSize int
}

// WatchOption Watch 选项
type WatchOption func(*watchOptions)

// WithPrefix 监听前缀
func WithPrefix() WatchOption {
	return func(o *watchOptions) { o.prefix = true }
}

// WithRevision 从指定 revision 开始监听，补发其后的历史事件
func WithRevision(rev int64) WatchOption {
	return func(o *watchOptions) { o.revision = rev }
}

// WithBufferSize 事件通道容量
func WithBufferSize(size int) WatchOption {
	return func(o *watchOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// Watch 监听 key，ctx 取消或 Client 关闭时通道关闭
func (c *Client) Watch(ctx context.Context, key string, opts ...WatchOption) (<-chan Event, error) {
	if err := c.checkPreconditions(ctx, key); err != nil {
		return nil, err
	}
	o := &watchOptions{bufferSize: DefaultWatchBufferSize}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	var etcdOpts []clientv3.OpOption
	if o.prefix {
		etcdOpts = append(etcdOpts, clientv3.WithPrefix())
	}
	if o.revision > 0 {
		etcdOpts = append(etcdOpts, clientv3.WithRev(o.revision))
	}

	// 派生 ctx：Close 时取消底层 watch stream
	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	watchCh := c.client.Watch(wctx, key, etcdOpts...)
	eventCh := make(chan Event, o.bufferSize)

	c.watchWg.Add(1)
	go func() {
		defer c.watchWg.Done()
		defer cancel()
		defer close(eventCh)
		c.runWatchLoop(wctx, watchCh, eventCh)
	}()
	return eventCh, nil
}

func (c *Client) runWatchLoop(ctx context.Context, watchCh clientv3.WatchChan, eventCh chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				c.send(ctx, eventCh, Event{Type: EventUnknown, Error: err})
				return
			}
			for _, ev := range resp.Events {
				if !c.send(ctx, eventCh, convertEvent(ev)) {
					return
				}
			}
		}
	}
}

func (c *Client) send(ctx context.Context, eventCh chan<- Event, ev Event) bool {
	select {
	case eventCh <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-c.closeCh:
		return false
	}
}

func convertEvent(ev *clientv3.Event) Event {
	if ev.Kv == nil {
		return Event{Type: EventUnknown, Error: errNilKv}
	}
	event := Event{Key: string(ev.Kv.Key), Revision: ev.Kv.ModRevision}
	switch ev.Type {
	case mvccpb.PUT:
		event.Type = EventPut
		event.Value = ev.Kv.Value
	case mvccpb.DELETE:
		event.Type = EventDelete
	default:
		event.Type = EventUnknown
	}
	return event
}
