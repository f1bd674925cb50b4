package xelect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// State 选举状态
type State int

const (
	StateStandby State = iota
	StateContending
	StateLeading
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStandby:
		return "standby"
	case StateContending:
		return "contending"
	case StateLeading:
		return "leading"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// LeadershipFunc 成为 leader 后同步执行，返回即放弃领导权
//
// ctx 在 Stop、会话丢失或节点被删除时取消。
type LeadershipFunc func(ctx context.Context) error

const cleanupTimeout = 5 * time.Second

// staleRetryInterval 节点删除失败后再次尝试的间隔
var staleRetryInterval = 500 * time.Millisecond

// Elector 选举参与者
type Elector struct {
	client  xcoord.Client
	path    string
	fn      LeadershipFunc
	opts    *options
	logger  xlog.Logger
	metrics *metrics

	leading atomic.Bool
	terms   atomic.Int64

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	err     error

	done     chan struct{}
	doneOnce sync.Once

	// stale 上一轮未能删除的节点，只由选举循环访问
	stale xcoord.Node
}

// New 创建选举参与者，Start 之前不参与选举
func New(client xcoord.Client, path string, fn LeadershipFunc, opts ...Option) (*Elector, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	if !strings.HasPrefix(path, "/") || strings.Trim(path, "/") == "" {
		return nil, fmt.Errorf("xelect: %w: %q", xcoord.ErrInvalidPath, path)
	}
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	met, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xelect: init metrics: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger = xlog.Default()
	}
	return &Elector{
		client:  client,
		path:    path,
		fn:      fn,
		opts:    o,
		logger:  logger.With(xlog.Component("xelect"), xlog.Path(path), xlog.Owner(o.id)),
		metrics: met,
		done:    make(chan struct{}),
	}, nil
}

// ID 参与者标识
func (e *Elector) ID() string { return e.opts.id }

// IsLeader 当前是否正在执行领导回调
func (e *Elector) IsLeader() bool { return e.leading.Load() }

// Terms 成为 leader 的累计次数
func (e *Elector) Terms() int64 { return e.terms.Load() }

// State 当前状态
func (e *Elector) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done 选举循环结束时关闭
func (e *Elector) Done() <-chan struct{} { return e.done }

// Err 选举因错误终止时返回该错误；Stop 结束的返回 nil
func (e *Elector) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Wait 等待选举结束，返回 Err
func (e *Elector) Wait(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start 启动选举循环，立即返回
func (e *Elector) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.state == StateStopped {
		return fmt.Errorf("xelect: start %s: %w", e.path, ErrState)
	}
	e.started = true
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.loop(ctx)
	return nil
}

// Stop 永久退出选举，可在领导回调内调用；不等待循环退出
func (e *Elector) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateStopped {
		return
	}
	e.state = StateStopped
	if e.cancel != nil {
		e.cancel()
	}
	if !e.started {
		e.closeDone()
	}
}

func (e *Elector) closeDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

// setState Stop 之后不再变化
func (e *Elector) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateStopped {
		e.state = s
	}
}

// =============================================================================
// 选举循环
// =============================================================================

func (e *Elector) loop(ctx context.Context) {
	defer e.closeDone()
	defer e.cancel()

	for ctx.Err() == nil {
		// 旧节点还在时重新排队会排在自己后面，并挡住其他参与者
		if err := e.removeStale(ctx); err != nil {
			if ctx.Err() == nil {
				e.fail(err)
			}
			return
		}
		err := e.contend(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err == nil:
		case errors.Is(err, xcoord.ErrSessionLost):
			e.logger.Warn(ctx, "session lost, rejoining election", xlog.Err(err))
			if _, err := e.client.Session(ctx); err != nil {
				if ctx.Err() == nil {
					e.fail(err)
				}
				return
			}
		default:
			e.fail(err)
			return
		}

		if d := e.opts.requeueDelay; d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (e *Elector) fail(err error) {
	e.logger.Error(context.Background(), "election aborted", xlog.Err(err))
	e.mu.Lock()
	e.err = err
	e.state = StateStopped
	e.mu.Unlock()
}

// contend 完成一轮：排队、领导、删除节点
func (e *Elector) contend(ctx context.Context) error {
	e.setState(StateContending)
	defer e.setState(StateStandby)

	node, err := e.client.CreateEphemeralSequential(ctx, e.path)
	if err != nil {
		return fmt.Errorf("xelect: join %s: %w", e.path, err)
	}
	defer e.cleanup(ctx, node)

	for {
		nodes, err := e.client.Children(ctx, e.path)
		if err != nil {
			return fmt.Errorf("xelect: list %s: %w", e.path, err)
		}
		idx := indexOf(nodes, node.ID)
		if idx < 0 {
			return fmt.Errorf("xelect: node %s vanished: %w", node.ID, xcoord.ErrSessionLost)
		}
		if idx == 0 {
			return e.lead(ctx, node)
		}
		if err := e.awaitDeletion(ctx, nodes[idx-1].ID); err != nil {
			return err
		}
	}
}

// awaitDeletion 等待前一个节点删除
func (e *Elector) awaitDeletion(ctx context.Context, id string) error {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := e.client.Watch(wctx, id)
	if err != nil {
		return fmt.Errorf("xelect: watch %s: %w", id, err)
	}
	select {
	case ev, ok := <-ch:
		if ok && ev.Type == xcoord.EventSessionLost {
			return fmt.Errorf("xelect: watch %s: %w", id, xcoord.ErrSessionLost)
		}
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lead 执行领导回调；自己的节点被删除时取消回调的 ctx
func (e *Elector) lead(ctx context.Context, node xcoord.Node) error {
	lctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ch, err := e.client.Watch(lctx, node.ID)
	if err != nil {
		return fmt.Errorf("xelect: watch own node: %w", err)
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.guard(lctx, node, ch, cancel)
	}()

	e.setState(StateLeading)
	e.leading.Store(true)
	e.terms.Add(1)
	e.metrics.termStarted(ctx, e.path)
	e.logger.Info(ctx, "leadership-gained", xlog.Node(node.ID))
	start := time.Now()

	fnErr := e.run(lctx)

	cause := context.Cause(lctx)
	e.leading.Store(false)
	term := time.Since(start)
	e.metrics.termEnded(ctx, e.path, term)
	e.logger.Info(ctx, "leadership-relinquished", xlog.Node(node.ID), xlog.Duration(term))

	cancel(nil)
	wg.Wait()

	if fnErr != nil && cause == nil {
		e.logger.Warn(ctx, "leadership func failed", xlog.Err(fnErr))
	}
	if errors.Is(cause, xcoord.ErrSessionLost) {
		return fmt.Errorf("xelect: lead %s: %w", e.path, xcoord.ErrSessionLost)
	}
	return nil
}

// guard 监听自己的节点，会话丢失或节点确实不存在时取消领导回调
//
// 后端监听中断也会报告删除，因此先重新读取 Children 确认，节点仍在就重新监听。
func (e *Elector) guard(ctx context.Context, node xcoord.Node, ch <-chan xcoord.Event, cancel context.CancelCauseFunc) {
	for {
		ev, ok := <-ch
		if !ok || ctx.Err() != nil {
			return
		}
		if ev.Type == xcoord.EventSessionLost {
			cancel(xcoord.ErrSessionLost)
			return
		}
		nodes, err := e.client.Children(ctx, e.path)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, xcoord.ErrSessionLost):
			cancel(xcoord.ErrSessionLost)
			return
		case err != nil:
			// 无法确认仍持有领导权
			e.logger.Warn(ctx, "leadership check failed", xlog.Node(node.ID), xlog.Err(err))
			cancel(errLeadershipLost)
			return
		case indexOf(nodes, node.ID) < 0:
			cancel(errLeadershipLost)
			return
		}
		e.logger.Debug(ctx, "own node still present, watching again", xlog.Node(node.ID))
		if ch, err = e.client.Watch(ctx, node.ID); err != nil {
			if ctx.Err() == nil {
				cancel(errLeadershipLost)
			}
			return
		}
	}
}

// run 执行回调，panic 转为错误
func (e *Elector) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xelect: leadership func panic: %v", r)
		}
	}()
	return e.fn(ctx)
}

// cleanup 删除自己的节点；ctx 已取消也执行，失败时留给 removeStale
func (e *Elector) cleanup(ctx context.Context, node xcoord.Node) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	err := e.client.Delete(ctx, node.ID)
	if err != nil && !errors.Is(err, xcoord.ErrNodeNotFound) && !errors.Is(err, xcoord.ErrClosed) {
		e.stale = node
		e.logger.Warn(ctx, "election node cleanup failed", xlog.Node(node.ID), xlog.Err(err))
	}
}

// removeStale 删除上一轮残留的节点，协调服务故障时按 staleRetryInterval 重试
//
// 只有 ctx 取消或非瞬时错误才返回错误。
func (e *Elector) removeStale(ctx context.Context) error {
	for e.stale.ID != "" {
		err := e.client.Delete(ctx, e.stale.ID)
		switch {
		case err == nil, errors.Is(err, xcoord.ErrNodeNotFound):
			e.logger.Info(ctx, "stale election node removed", xlog.Node(e.stale.ID))
			e.stale = xcoord.Node{}
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case !errors.Is(err, xcoord.ErrCoordination):
			return fmt.Errorf("xelect: remove stale node %s: %w", e.stale.ID, err)
		}
		e.logger.Warn(ctx, "stale election node still present, retrying", xlog.Node(e.stale.ID), xlog.Err(err))
		t := time.NewTimer(staleRetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func indexOf(nodes []xcoord.Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
