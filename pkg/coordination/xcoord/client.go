package xcoord

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/resilience/xbreaker"
	"github.com/omeyang/xcoord/pkg/resilience/xretry"
)

var _ Client = (*client)(nil)

type lostHook struct {
	id uint64
	fn func(Session)
}

// client 后端无关的 Client 实现：会话管理、重试、熔断、回调
type client struct {
	b      backend
	opts   *options
	logger xlog.Logger

	mu     sync.Mutex
	sess   backendSession
	hooks  []lostHook
	hookID uint64

	// connectSem 串行化会话建立，等待者仍可响应 ctx
	connectSem chan struct{}
	closeCh    chan struct{}
	closed     atomic.Bool
	wg         sync.WaitGroup
}

func newClient(b backend, o *options) *client {
	logger := o.logger
	if logger == nil {
		logger = xlog.Default()
	}
	return &client{
		b:          b,
		opts:       o,
		logger:     logger.With(xlog.Component("xcoord"), slog.String("backend", b.name())),
		connectSem: make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}
}

// =============================================================================
// 会话
// =============================================================================

func (c *client) Session(ctx context.Context) (Session, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *client) session(ctx context.Context) (backendSession, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if s := c.current(); s != nil {
		return s, nil
	}

	select {
	case c.connectSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, ErrClosed
	}
	defer func() { <-c.connectSem }()

	// 排队期间可能已由他人建立
	if s := c.current(); s != nil {
		return s, nil
	}
	return c.connect(ctx)
}

// current 返回存活的当前会话
func (c *client) current() backendSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	select {
	case <-c.sess.Done():
		return nil
	default:
		return c.sess
	}
}

func (c *client) connect(ctx context.Context) (backendSession, error) {
	start := time.Now()
	s, err := xretry.DoWithResult(ctx, c.opts.retryer, func(ctx context.Context) (backendSession, error) {
		s, err := c.b.openSession(ctx, c.opts.sessionTTL)
		return s, classify(err)
	})
	if err != nil {
		err = unwrapPermanent(err)
		c.logger.Warn(ctx, "session open failed", xlog.Err(err))
		return nil, fmt.Errorf("xcoord: open session: %w", err)
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = s.Close()
		return nil, ErrClosed
	}
	c.sess = s
	c.wg.Add(1)
	c.mu.Unlock()

	go c.monitor(s)
	c.logger.Info(ctx, "session established", xlog.Session(s.ID()), xlog.Duration(time.Since(start)))
	return s, nil
}

// monitor 等待会话结束并通知回调；客户端关闭导致的结束不通知
func (c *client) monitor(s backendSession) {
	defer c.wg.Done()
	select {
	case <-s.Done():
	case <-c.closeCh:
		return
	}

	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	hooks := slices.Clone(c.hooks)
	c.mu.Unlock()

	if c.closed.Load() {
		return
	}
	c.logger.Warn(context.Background(), "session-lost", xlog.Session(s.ID()))
	for _, h := range hooks {
		h.fn(s)
	}
}

func (c *client) OnSessionLost(fn func(Session)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	c.hookID++
	id := c.hookID
	c.hooks = append(c.hooks, lostHook{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.hooks = slices.DeleteFunc(c.hooks, func(h lostHook) bool { return h.id == id })
		})
	}
}

// =============================================================================
// 节点操作
// =============================================================================

func (c *client) CreateEphemeralSequential(ctx context.Context, path string) (Node, error) {
	if err := c.check(ctx); err != nil {
		return Node{}, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return Node{}, err
	}
	s, err := c.session(ctx)
	if err != nil {
		return Node{}, err
	}

	var n Node
	err = c.do(ctx, "create", func(ctx context.Context) error {
		var err error
		n, err = c.b.create(ctx, s, p)
		return err
	})
	if err != nil {
		return Node{}, fmt.Errorf("xcoord: create %q: %w", p, err)
	}
	return n, nil
}

func (c *client) Delete(ctx context.Context, id string) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if !strings.HasPrefix(id, "/") {
		return fmt.Errorf("%w: node id %q", ErrInvalidPath, id)
	}

	var existed bool
	err := c.do(ctx, "delete", func(ctx context.Context) error {
		var err error
		existed, err = c.b.remove(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("xcoord: delete %q: %w", id, err)
	}
	if !existed {
		return fmt.Errorf("xcoord: delete %q: %w", id, ErrNodeNotFound)
	}
	return nil
}

func (c *client) Children(ctx context.Context, path string) ([]Node, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	err = c.do(ctx, "children", func(ctx context.Context) error {
		var err error
		nodes, err = c.b.children(ctx, p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("xcoord: children %q: %w", p, err)
	}
	slices.SortStableFunc(nodes, func(a, b Node) int { return cmp.Compare(a.Seq, b.Seq) })
	return nodes, nil
}

func (c *client) Watch(ctx context.Context, id string) (<-chan Event, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(id, "/") {
		return nil, fmt.Errorf("%w: node id %q", ErrInvalidPath, id)
	}
	s := c.current()
	if s == nil {
		return nil, fmt.Errorf("xcoord: watch %q: %w", id, ErrSessionLost)
	}

	wctx, cancel := context.WithCancel(ctx)
	var (
		gone <-chan struct{}
		stop func()
	)
	err := c.do(wctx, "watch", func(ctx context.Context) error {
		var err error
		gone, stop, err = c.b.watchDeleted(ctx, id)
		return err
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("xcoord: watch %q: %w", id, err)
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		stop()
		cancel()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	out := make(chan Event, 1)
	go func() {
		defer c.wg.Done()
		defer close(out)
		defer cancel()
		defer stop()

		select {
		case <-gone:
			// 会话丢失也会删除节点，优先报告会话丢失
			select {
			case <-s.Done():
				out <- Event{Type: EventSessionLost, NodeID: id}
			default:
				out <- Event{Type: EventNodeDeleted, NodeID: id}
			}
		case <-s.Done():
			out <- Event{Type: EventSessionLost, NodeID: id}
		case <-wctx.Done():
		case <-c.closeCh:
		}
	}()
	return out, nil
}

// =============================================================================
// 关闭
// =============================================================================

func (c *client) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	close(c.closeCh)

	c.mu.Lock()
	s := c.sess
	c.sess = nil
	c.mu.Unlock()

	var errs []error
	if s != nil {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("xcoord: close session: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("xcoord: close: %w", ctx.Err()))
	}

	if err := c.b.close(); err != nil {
		errs = append(errs, fmt.Errorf("xcoord: close backend: %w", err))
	}
	c.logger.Debug(ctx, "client closed")
	return errors.Join(errs...)
}

// =============================================================================
// 内部
// =============================================================================

func (c *client) check(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// do 在重试与熔断保护下执行后端调用
//
// 只有 ErrCoordination 会重试；熔断拒绝转换为 ErrCoordination 且不再重试。
func (c *client) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	call := func(ctx context.Context) error {
		if c.opts.breaker == nil {
			return classify(fn(ctx))
		}
		err := c.opts.breaker.Do(ctx, func() error { return fn(ctx) })
		if xbreaker.IsBreakerOpen(err) {
			return xretry.NewPermanentError(fmt.Errorf("%w: %w", ErrCoordination, err))
		}
		return classify(err)
	}

	err := c.opts.retryer.Do(ctx, call)
	if err == nil {
		return nil
	}
	err = unwrapPermanent(err)
	if IsTransient(err) {
		c.logger.Warn(ctx, "coordination call failed", xlog.Operation(op), xlog.Err(err))
	}
	return err
}

func classify(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	return xretry.NewPermanentError(err)
}

func unwrapPermanent(err error) error {
	var pe *xretry.PermanentError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err
	}
	return err
}
