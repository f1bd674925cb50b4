package xcoord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redis 数据布局（<p> 为 key 前缀，<path> 为父路径）：
//
//	<p>session:<id>   会话 key，PX=ttl，心跳续期
//	<p>seq:<path>     序号计数器
//	<p>nodes:<path>   ZSET，member 与 score 均为序号
//	<p>owners:<path>  HASH，序号 -> 会话 ID
//
// 会话 key 过期即视为其节点删除，读取时惰性清理。

var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local seq = redis.call('INCR', KEYS[2])
redis.call('ZADD', KEYS[3], seq, tostring(seq))
redis.call('HSET', KEYS[4], tostring(seq), ARGV[1])
return seq
`)

var childrenScript = redis.NewScript(`
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
local out = {}
for _, m in ipairs(members) do
  local sid = redis.call('HGET', KEYS[2], m)
  if sid and redis.call('EXISTS', ARGV[1] .. sid) == 1 then
    table.insert(out, m)
    table.insert(out, sid)
  else
    redis.call('ZREM', KEYS[1], m)
    redis.call('HDEL', KEYS[2], m)
  end
end
return out
`)

// aliveScript 节点存在且其会话存活返回 1；会话已失效的节点顺带清理
var aliveScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
local sid = redis.call('HGET', KEYS[2], ARGV[1])
if sid and redis.call('EXISTS', ARGV[2] .. sid) == 1 then
  return 1
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
return 0
`)

var removeScript = redis.NewScript(`
local sid = redis.call('HGET', KEYS[2], ARGV[1])
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
if removed == 0 or not sid or redis.call('EXISTS', ARGV[2] .. sid) == 0 then
  return 0
end
return 1
`)

// NewRedisClient 基于已有 redis 连接创建客户端，Close 不关闭 rdb
func NewRedisClient(rdb redis.UniversalClient, opts ...Option) Client {
	o := applyOptions(opts)
	return newClient(newRedisBackend(rdb, o, false), o)
}

var (
	_ backend        = (*redisBackend)(nil)
	_ backendSession = (*redisSession)(nil)
)

type redisBackend struct {
	rdb    redis.UniversalClient
	prefix string
	poll   time.Duration
	owned  bool
}

func newRedisBackend(rdb redis.UniversalClient, o *options, owned bool) *redisBackend {
	return &redisBackend{
		rdb:    rdb,
		prefix: o.keyPrefix,
		poll:   o.pollInterval,
		owned:  owned,
	}
}

func (b *redisBackend) name() string { return "redis" }

func (b *redisBackend) sessionPrefix() string       { return b.prefix + "session:" }
func (b *redisBackend) sessionKey(id string) string { return b.sessionPrefix() + id }
func (b *redisBackend) seqKey(path string) string   { return b.prefix + "seq:" + path }
func (b *redisBackend) nodesKey(path string) string { return b.prefix + "nodes:" + path }
func (b *redisBackend) ownersKey(path string) string {
	return b.prefix + "owners:" + path
}

// wrap ctx 错误原样返回，其余视为瞬时故障
func (b *redisBackend) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: redis %s: %w", ErrCoordination, op, err)
}

func (b *redisBackend) openSession(ctx context.Context, ttl time.Duration) (backendSession, error) {
	s := &redisSession{
		b:      b,
		id:     uuid.NewString(),
		ttl:    ttl,
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
	s.key = b.sessionKey(s.id)
	ok, err := b.rdb.SetNX(ctx, s.key, 1, ttl).Result()
	if err != nil {
		return nil, b.wrap(ctx, "open session", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: redis open session: id %s already taken", ErrCoordination, s.id)
	}
	s.wg.Add(1)
	go s.heartbeat()
	return s, nil
}

func (b *redisBackend) create(ctx context.Context, s backendSession, path string) (Node, error) {
	keys := []string{b.sessionKey(s.ID()), b.seqKey(path), b.nodesKey(path), b.ownersKey(path)}
	seq, err := createScript.Run(ctx, b.rdb, keys, s.ID()).Int64()
	if err != nil {
		return Node{}, b.wrap(ctx, "create", err)
	}
	if seq < 0 {
		return Node{}, ErrSessionLost
	}
	return Node{
		ID:      seqNodeID(path, seq),
		Path:    path,
		Seq:     seq,
		Session: s.ID(),
	}, nil
}

func (b *redisBackend) remove(ctx context.Context, id string) (bool, error) {
	path, seq, err := parseSeqNodeID(id)
	if err != nil {
		return false, err
	}
	keys := []string{b.nodesKey(path), b.ownersKey(path)}
	n, err := removeScript.Run(ctx, b.rdb, keys, strconv.FormatInt(seq, 10), b.sessionPrefix()).Int64()
	if err != nil {
		return false, b.wrap(ctx, "delete", err)
	}
	return n == 1, nil
}

func (b *redisBackend) children(ctx context.Context, path string) ([]Node, error) {
	keys := []string{b.nodesKey(path), b.ownersKey(path)}
	vals, err := childrenScript.Run(ctx, b.rdb, keys, b.sessionPrefix()).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, b.wrap(ctx, "children", err)
	}
	nodes := make([]Node, 0, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		seq, err := strconv.ParseInt(vals[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: redis children: bad member %q", ErrCoordination, vals[i])
		}
		nodes = append(nodes, Node{
			ID:      seqNodeID(path, seq),
			Path:    path,
			Seq:     seq,
			Session: vals[i+1],
		})
	}
	return nodes, nil
}

func (b *redisBackend) alive(ctx context.Context, path string, seq int64) (bool, error) {
	keys := []string{b.nodesKey(path), b.ownersKey(path)}
	n, err := aliveScript.Run(ctx, b.rdb, keys, strconv.FormatInt(seq, 10), b.sessionPrefix()).Int64()
	if err != nil {
		return false, b.wrap(ctx, "watch", err)
	}
	return n == 1, nil
}

// watchDeleted redis 没有针对单个成员的通知，按 poll 间隔轮询
func (b *redisBackend) watchDeleted(ctx context.Context, id string) (<-chan struct{}, func(), error) {
	path, seq, err := parseSeqNodeID(id)
	if err != nil {
		return nil, nil, err
	}
	ok, err := b.alive(ctx, path, seq)
	if err != nil {
		return nil, nil, err
	}
	gone := make(chan struct{})
	if !ok {
		close(gone)
		return gone, func() {}, nil
	}

	var (
		wg     sync.WaitGroup
		once   sync.Once
		stopCh = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(b.poll)
		defer t.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-t.C:
			}
			ok, err := b.alive(ctx, path, seq)
			if err != nil {
				// 瞬时故障，下一轮再查
				continue
			}
			if !ok {
				close(gone)
				return
			}
		}
	}()

	stop := func() {
		once.Do(func() { close(stopCh) })
		wg.Wait()
	}
	return gone, stop, nil
}

func (b *redisBackend) close() error {
	if !b.owned {
		return nil
	}
	if err := b.rdb.Close(); err != nil {
		return fmt.Errorf("xcoord: close redis: %w", err)
	}
	return nil
}

// =============================================================================
// 会话
// =============================================================================

type redisSession struct {
	b   *redisBackend
	id  string
	key string
	ttl time.Duration

	done     chan struct{}
	doneOnce sync.Once
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (s *redisSession) ID() string            { return s.id }
func (s *redisSession) Done() <-chan struct{} { return s.done }

func (s *redisSession) expire() {
	s.doneOnce.Do(func() { close(s.done) })
}

// heartbeat 每 ttl/3 续期一次；key 已不存在或超过 ttl 未能续期时会话结束
func (s *redisSession) heartbeat() {
	defer s.wg.Done()
	interval := max(s.ttl/3, 10*time.Millisecond)
	t := time.NewTicker(interval)
	defer t.Stop()
	deadline := time.Now().Add(s.ttl)

	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		ok, err := s.b.rdb.PExpire(ctx, s.key, s.ttl).Result()
		cancel()
		switch {
		case err == nil && ok:
			deadline = time.Now().Add(s.ttl)
		case err == nil:
			s.expire()
			return
		case time.Now().After(deadline):
			s.expire()
			return
		}
	}
}

func (s *redisSession) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	defer s.expire()

	ctx, cancel := context.WithTimeout(context.Background(), max(s.ttl, time.Second))
	defer cancel()
	if err := s.b.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("xcoord: delete redis session %s: %w", s.id, err)
	}
	return nil
}
