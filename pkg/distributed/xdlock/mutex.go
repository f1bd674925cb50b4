package xdlock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// State 锁状态
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateHeld
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateHeld:
		return "held"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// cleanupTimeout 超时/取消后删除残留节点的时限
const cleanupTimeout = 5 * time.Second

// Mutex 分布式锁，单个实例同一时刻最多一次获取
type Mutex struct {
	client  xcoord.Client
	path    string
	opts    *options
	logger  xlog.Logger
	metrics *metrics
	tracer  trace.Tracer

	held atomic.Bool

	mu    sync.Mutex
	state State
	node  xcoord.Node
	// attempt 本次获取使用的会话，会话丢失回调据此判断是否与自己有关
	attempt     string
	attemptLost bool
	lost        bool
	unhook      func()
	// stale 删除失败的残留节点，下次获取前先删除
	stale []string
}

// New 创建锁，path 为锁路径
func New(client xcoord.Client, path string, opts ...Option) (*Mutex, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if !strings.HasPrefix(path, "/") || strings.Trim(path, "/") == "" {
		return nil, fmt.Errorf("xdlock: %w: %q", xcoord.ErrInvalidPath, path)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	met, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xdlock: init metrics: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger = xlog.Default()
	}
	return &Mutex{
		client:  client,
		path:    path,
		opts:    o,
		logger:  logger.With(xlog.Component("xdlock"), xlog.Path(path)),
		metrics: met,
		tracer:  getTracer(o.tracerProvider),
	}, nil
}

// Path 锁路径
func (m *Mutex) Path() string { return m.path }

// IsHeld 本地状态，不访问协调服务
func (m *Mutex) IsHeld() bool { return m.held.Load() }

// State 当前状态
func (m *Mutex) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Node 持有期间的节点，未持有时为零值
func (m *Mutex) Node() xcoord.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.node
}

// =============================================================================
// 获取
// =============================================================================

// Acquire 在 timeout 内尝试获得锁
//
// 返回 true 表示已持有；超时返回 (false, nil) 且不留下节点。
// timeout <= 0 只检查一次，不阻塞。ctx 取消时同样删除节点并返回 ctx 的错误。
//
// 放弃时删除节点失败会返回错误而不是 (false, nil)：节点仍在排队，
// 会阻塞其他竞争者。该节点被记住，下次 Acquire 创建新节点前先删除它；
// 仍删除失败则 Acquire 直接返回错误，不会排在自己的残留节点之后。
func (m *Mutex) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	m.mu.Lock()
	if m.state == StateHeld || m.state == StateAcquiring {
		st := m.state
		m.mu.Unlock()
		return false, fmt.Errorf("xdlock: acquire %s while %s: %w", m.path, st, ErrState)
	}
	m.state = StateAcquiring
	m.attempt, m.attemptLost, m.lost = "", false, false
	m.mu.Unlock()

	start := time.Now()
	ctx, span := m.startSpan(ctx, spanNameAcquire)
	unhook := m.client.OnSessionLost(m.onSessionLost)

	node, ok, err := m.acquire(ctx, start.Add(max(timeout, 0)), timeout > 0)

	m.mu.Lock()
	if ok && m.attemptLost {
		ok, err = false, fmt.Errorf("xdlock: acquire %s: %w", m.path, ErrSessionLost)
	}
	if ok {
		m.state, m.node, m.unhook = StateHeld, node, unhook
		m.held.Store(true)
	} else {
		m.state = StateIdle
	}
	m.attempt = ""
	m.mu.Unlock()
	if !ok {
		unhook()
	}

	wait := time.Since(start)
	outcome := outcomeAcquired
	switch {
	case err != nil:
		outcome = outcomeError
		m.logger.Warn(ctx, "lock-failed", xlog.Duration(wait), xlog.Err(err))
	case !ok:
		outcome = outcomeTimeout
		m.logger.Info(ctx, "lock-timed-out", xlog.Duration(wait))
	default:
		m.logger.Info(ctx, "lock-acquired", xlog.Node(node.ID), xlog.Duration(wait))
	}
	m.metrics.recordAcquire(ctx, m.path, outcome, wait)
	endSpan(span, err, attribute.String(attrOutcome, outcome), attribute.String(attrNode, node.ID))
	return ok, err
}

func (m *Mutex) acquire(ctx context.Context, deadline time.Time, wait bool) (xcoord.Node, bool, error) {
	if err := m.purgeStale(ctx); err != nil {
		return xcoord.Node{}, false, err
	}
	node, err := m.client.CreateEphemeralSequential(ctx, m.path)
	if err != nil {
		return xcoord.Node{}, false, fmt.Errorf("xdlock: acquire %s: %w", m.path, err)
	}
	m.mu.Lock()
	m.attempt = node.Session
	m.mu.Unlock()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		nodes, err := m.client.Children(ctx, m.path)
		if err != nil {
			return node, false, m.abandon(ctx, node, fmt.Errorf("xdlock: acquire %s: %w", m.path, err))
		}
		idx := indexOf(nodes, node.ID)
		if idx < 0 {
			// 自己的节点不见了，只可能是会话过期
			return node, false, fmt.Errorf("xdlock: acquire %s: node %s vanished: %w", m.path, node.ID, ErrSessionLost)
		}
		if idx < m.opts.capacity {
			return node, true, nil
		}
		if !wait {
			return node, false, m.abandon(ctx, node, nil)
		}

		retry, err := m.waitTurn(ctx, timer.C, m.blockers(nodes, idx))
		if err != nil {
			if errors.Is(err, ErrSessionLost) {
				return node, false, err
			}
			return node, false, m.abandon(ctx, node, err)
		}
		if !retry {
			return node, false, m.abandon(ctx, node, nil)
		}
	}
}

// blockers 需要等待删除的节点
//
// 单持有者只等紧邻的前一个；信号量等待任意一个排在前面的节点离开。
func (m *Mutex) blockers(nodes []xcoord.Node, idx int) []string {
	if m.opts.capacity == 1 {
		return []string{nodes[idx-1].ID}
	}
	ids := make([]string, idx)
	for i := range idx {
		ids[i] = nodes[i].ID
	}
	return ids
}

// waitTurn 等到任一 blocker 删除（返回 true 重新检查）或超时（返回 false）
func (m *Mutex) waitTurn(ctx context.Context, expired <-chan time.Time, ids []string) (bool, error) {
	wctx, cancel := context.WithCancel(ctx)
	events, wait, err := watchAny(wctx, m.client, ids)
	defer func() {
		cancel()
		wait()
	}()
	if err != nil {
		return false, fmt.Errorf("xdlock: acquire %s: %w", m.path, err)
	}

	select {
	case ev := <-events:
		if ev.Type == xcoord.EventSessionLost {
			return false, fmt.Errorf("xdlock: acquire %s: %w", m.path, ErrSessionLost)
		}
		return true, nil
	case <-expired:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// watchAny 同时监听多个节点，合并为一个事件通道；wait 等待内部 goroutine 退出
func watchAny(ctx context.Context, client xcoord.Client, ids []string) (<-chan xcoord.Event, func(), error) {
	out := make(chan xcoord.Event, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		ch, err := client.Watch(ctx, id)
		if err != nil {
			return nil, wg.Wait, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				out <- ev
			}
		}()
	}
	return out, wg.Wait, nil
}

// abandon 放弃本次获取并删除节点，ctx 已取消也要执行
//
// 删除失败时记住节点，返回的错误同时包含 cause 与删除错误。
func (m *Mutex) abandon(ctx context.Context, node xcoord.Node, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	err := m.client.Delete(ctx, node.ID)
	if err == nil || errors.Is(err, xcoord.ErrNodeNotFound) {
		return cause
	}
	m.mu.Lock()
	m.stale = append(m.stale, node.ID)
	m.mu.Unlock()
	m.logger.Warn(ctx, "lock node cleanup failed", xlog.Node(node.ID), xlog.Err(err))
	return errors.Join(cause, fmt.Errorf("xdlock: acquire %s: remove node %s: %w", m.path, node.ID, err))
}

// purgeStale 删除之前放弃时未能删除的节点
func (m *Mutex) purgeStale(ctx context.Context) error {
	m.mu.Lock()
	stale := m.stale
	m.stale = nil
	m.mu.Unlock()

	for i, id := range stale {
		err := m.client.Delete(ctx, id)
		if err != nil && !errors.Is(err, xcoord.ErrNodeNotFound) {
			m.mu.Lock()
			m.stale = slices.Concat(stale[i:], m.stale)
			m.mu.Unlock()
			return fmt.Errorf("xdlock: acquire %s: remove stale node %s: %w", m.path, id, err)
		}
		m.logger.Debug(ctx, "stale lock node removed", xlog.Node(id))
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

func (m *Mutex) onSessionLost(s xcoord.Session) {
	m.mu.Lock()
	switch {
	case m.state == StateAcquiring && m.attempt == s.ID():
		m.attemptLost = true
		m.mu.Unlock()
		return
	case m.state != StateHeld || m.node.Session != s.ID():
		m.mu.Unlock()
		return
	}
	node := m.node
	m.state, m.node, m.lost = StateIdle, xcoord.Node{}, true
	m.held.Store(false)
	unhook := m.unhook
	m.unhook = nil
	m.mu.Unlock()

	if unhook != nil {
		unhook()
	}
	ctx := context.Background()
	m.metrics.recordRelease(ctx, m.path, true)
	m.logger.Warn(ctx, "lock lost with session", xlog.Node(node.ID), xlog.Session(s.ID()))
}

// =============================================================================
// 释放
// =============================================================================

// Release 释放锁，只能在 Held 状态调用一次
func (m *Mutex) Release(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	m.mu.Lock()
	if m.state != StateHeld {
		st, lost := m.state, m.lost
		m.lost = false
		m.mu.Unlock()
		if lost {
			return fmt.Errorf("xdlock: release %s: %w: %w", m.path, ErrState, ErrSessionLost)
		}
		return fmt.Errorf("xdlock: release %s while %s: %w", m.path, st, ErrState)
	}
	node, unhook := m.node, m.unhook
	m.state, m.node, m.unhook = StateReleased, xcoord.Node{}, nil
	m.held.Store(false)
	m.mu.Unlock()

	if unhook != nil {
		unhook()
	}
	ctx, span := m.startSpan(ctx, spanNameRelease)
	err := m.client.Delete(ctx, node.ID)
	if err != nil {
		err = fmt.Errorf("xdlock: release %s: %w", m.path, err)
	}
	m.metrics.recordRelease(ctx, m.path, false)
	m.logger.Debug(ctx, "lock-released", xlog.Node(node.ID))
	endSpan(span, err, attribute.String(attrNode, node.ID))
	return err
}

// =============================================================================
// 便捷方法
// =============================================================================

// Lock 与 Acquire 相同，超时返回 ErrTimeout
func (m *Mutex) Lock(ctx context.Context, timeout time.Duration) error {
	ok, err := m.Acquire(ctx, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("xdlock: lock %s within %s: %w", m.path, timeout, ErrTimeout)
	}
	return nil
}

// Do 持有锁执行 fn，结束后释放；释放失败只记录日志
func (m *Mutex) Do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := m.Lock(ctx, timeout); err != nil {
		return err
	}
	defer func() {
		if err := m.Release(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn(ctx, "lock release failed, ignoring", xlog.Err(err))
		}
	}()
	return fn(ctx)
}
