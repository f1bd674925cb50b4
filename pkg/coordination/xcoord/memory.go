package xcoord

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"
)

// MemoryServer 进程内协调服务，多个客户端共享同一实例即可互相协调
//
// 会话不会自然过期，由 [MemoryServer.Expire] 模拟；[MemoryServer.FailNext]
// 注入瞬时故障。
type MemoryServer struct {
	mu       sync.Mutex
	sessions map[string]*memSession
	nodes    map[string]Node
	seqs     map[string]int64
	watchers map[string][]chan struct{}
	nextSess int64
	failures int
}

// NewMemoryServer 创建进程内协调服务
func NewMemoryServer() *MemoryServer {
	return &MemoryServer{
		sessions: make(map[string]*memSession),
		nodes:    make(map[string]Node),
		seqs:     make(map[string]int64),
		watchers: make(map[string][]chan struct{}),
	}
}

// NewMemoryClient 创建连接到 srv 的客户端
func NewMemoryClient(srv *MemoryServer, opts ...Option) Client {
	return newClient(&memoryBackend{srv: srv}, applyOptions(opts))
}

// Expire 使会话过期并删除其节点，会话不存在时返回 false
func (m *MemoryServer) Expire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	m.endSessionLocked(s)
	return true
}

// Sessions 存活会话 ID，升序
func (m *MemoryServer) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Nodes path 下存活节点，按 Seq 升序
func (m *MemoryServer) Nodes(path string) []Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.childrenLocked(path)
}

// FailNext 接下来 n 次调用返回 ErrCoordination
func (m *MemoryServer) FailNext(n int) {
	m.mu.Lock()
	m.failures = max(n, 0)
	m.mu.Unlock()
}

func (m *MemoryServer) failLocked(op string) error {
	if m.failures == 0 {
		return nil
	}
	m.failures--
	return fmt.Errorf("%w: memory %s: injected failure", ErrCoordination, op)
}

func (m *MemoryServer) endSessionLocked(s *memSession) {
	delete(m.sessions, s.id)
	for id, n := range m.nodes {
		if n.Session == s.id {
			m.removeLocked(id)
		}
	}
	close(s.done)
}

func (m *MemoryServer) removeLocked(id string) bool {
	if _, ok := m.nodes[id]; !ok {
		return false
	}
	delete(m.nodes, id)
	for _, ch := range m.watchers[id] {
		close(ch)
	}
	delete(m.watchers, id)
	return true
}

func (m *MemoryServer) childrenLocked(path string) []Node {
	var out []Node
	for _, n := range m.nodes {
		if n.Path == path {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b Node) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

// =============================================================================
// backend 实现
// =============================================================================

var (
	_ backend        = (*memoryBackend)(nil)
	_ backendSession = (*memSession)(nil)
)

type memSession struct {
	srv  *MemoryServer
	id   string
	done chan struct{}
}

func (s *memSession) ID() string            { return s.id }
func (s *memSession) Done() <-chan struct{} { return s.done }

func (s *memSession) Close() error {
	s.srv.Expire(s.id)
	return nil
}

type memoryBackend struct {
	srv *MemoryServer
}

func (b *memoryBackend) name() string { return "memory" }

func (b *memoryBackend) openSession(ctx context.Context, _ time.Duration) (backendSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := b.srv
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("open session"); err != nil {
		return nil, err
	}
	m.nextSess++
	s := &memSession{
		srv:  m,
		id:   "mem-" + strconv.FormatInt(m.nextSess, 10),
		done: make(chan struct{}),
	}
	m.sessions[s.id] = s
	return s, nil
}

func (b *memoryBackend) create(ctx context.Context, s backendSession, path string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return Node{}, err
	}
	m := b.srv
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("create"); err != nil {
		return Node{}, err
	}
	if _, ok := m.sessions[s.ID()]; !ok {
		return Node{}, ErrSessionLost
	}
	m.seqs[path]++
	seq := m.seqs[path]
	n := Node{
		ID:      seqNodeID(path, seq),
		Path:    path,
		Seq:     seq,
		Session: s.ID(),
	}
	m.nodes[n.ID] = n
	return n, nil
}

func (b *memoryBackend) remove(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m := b.srv
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("delete"); err != nil {
		return false, err
	}
	return m.removeLocked(id), nil
}

func (b *memoryBackend) children(ctx context.Context, path string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := b.srv
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("children"); err != nil {
		return nil, err
	}
	return m.childrenLocked(path), nil
}

func (b *memoryBackend) watchDeleted(ctx context.Context, id string) (<-chan struct{}, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m := b.srv
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failLocked("watch"); err != nil {
		return nil, nil, err
	}
	ch := make(chan struct{})
	if _, ok := m.nodes[id]; !ok {
		close(ch)
		return ch, func() {}, nil
	}
	m.watchers[id] = append(m.watchers[id], ch)

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.watchers[id] = slices.DeleteFunc(m.watchers[id], func(c chan struct{}) bool { return c == ch })
		if len(m.watchers[id]) == 0 {
			delete(m.watchers, id)
		}
	}
	return ch, stop, nil
}

func (b *memoryBackend) close() error { return nil }
