package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/distributed/xelect"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/resilience/xretry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func memDialer(srv *xcoord.MemoryServer) Dialer {
	return func(context.Context) (xcoord.Client, error) {
		return xcoord.NewMemoryClient(srv,
			xcoord.WithLogger(xlog.Discard()),
			xcoord.WithRetryer(xretry.NewRetryer(
				xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
				xretry.WithBackoffPolicy(xretry.NewFixedBackoff(time.Millisecond)),
			)),
		), nil
	}
}

// TestDefaultLockScenarios 测试默认场景参数
func TestDefaultLockScenarios(t *testing.T) {
	sc := DefaultLockScenarios()
	require.Len(t, sc, 3)
	assert.Equal(t, []Worker{{1, 3 * time.Second, time.Second}, {2, 3 * time.Second, time.Second}}, sc[0].Workers)
	assert.Equal(t, []Worker{{3, 3 * time.Second, time.Second}, {4, 3 * time.Second, time.Second}}, sc[1].Workers)
	assert.Equal(t, []Worker{{5, time.Second, time.Second}, {6, 2 * time.Second, 5 * time.Second}}, sc[2].Workers)
}

// TestRunLockScenarios 测试超时放弃与及时移交
func TestRunLockScenarios(t *testing.T) {
	ctx := context.Background()
	srv := xcoord.NewMemoryServer()
	client, err := memDialer(srv)(ctx)
	require.NoError(t, err)
	defer func() { _ = client.Close(ctx) }()

	ms := time.Millisecond
	cfg := LockConfig{
		Stagger: 20 * ms,
		Pause:   10 * ms,
		Scenarios: []Scenario{
			{Name: "long work", Workers: []Worker{{1, 150 * ms, 50 * ms}, {2, 150 * ms, 50 * ms}}},
			{Name: "long work again", Workers: []Worker{{3, 150 * ms, 50 * ms}, {4, 150 * ms, 50 * ms}}},
			{Name: "handoff", Workers: []Worker{{5, 50 * ms, 50 * ms}, {6, 100 * ms, 500 * ms}}},
		},
	}
	results, err := RunLockScenarios(ctx, client, cfg, WithLogger(xlog.Discard()))
	require.NoError(t, err)
	require.Len(t, results, 6)

	acquired := map[int]bool{}
	for _, r := range results {
		require.NoError(t, r.Err, "worker %d", r.Worker)
		acquired[r.Worker] = r.Acquired
	}
	assert.Equal(t, map[int]bool{1: true, 2: false, 3: true, 4: false, 5: true, 6: true}, acquired)

	assert.GreaterOrEqual(t, results[1].Waited, 50*ms, "超时前一直等待")
	assert.Greater(t, results[5].Waited, 10*ms, "等待前者完成")
	assert.Less(t, results[5].Waited, 500*ms)
	assert.Empty(t, srv.Nodes(DefaultLockPath), "全部释放")
}

// TestRunLockScenarios_Cancel 测试取消后返回已完成部分
func TestRunLockScenarios_Cancel(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	client, err := memDialer(srv)(context.Background())
	require.NoError(t, err)
	defer func() { _ = client.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	cfg := LockConfig{Scenarios: []Scenario{{Name: "slow", Workers: []Worker{{1, time.Minute, time.Second}}}}}
	results, err := RunLockScenarios(ctx, client, cfg, WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, results, 1)
	assert.True(t, results[0].Acquired)
	assert.Empty(t, srv.Nodes(DefaultLockPath), "取消后仍释放锁")

	_, err = RunLockScenarios(ctx, nil, cfg)
	assert.Error(t, err)
}

// TestElection_Relinquish 测试放弃领导权后移交给另一参与者
func TestElection_Relinquish(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	e, err := NewElection(context.Background(), memDialer(srv), ElectionConfig{TaskInterval: 5 * time.Millisecond},
		WithLogger(xlog.Discard()))
	require.NoError(t, err)
	require.Len(t, e.Statuses(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	var first string
	require.Eventually(t, func() bool {
		id, ok := e.Leader()
		first = id
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, s := range e.Statuses() {
			if s.ID == first {
				return s.Ticks >= 2
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "leader 运行周期任务")

	require.Eventually(t, e.Relinquish, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		id, ok := e.Leader()
		return ok && id != first
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run 未返回")
	}
	for _, s := range e.Statuses() {
		assert.Equal(t, xelect.StateStopped, s.State)
		assert.False(t, s.Leader)
	}
	assert.Empty(t, srv.Nodes(DefaultElectionPath))
}

// TestElection_Tenure 测试任期满后轮换
func TestElection_Tenure(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	e, err := NewElection(context.Background(), memDialer(srv), ElectionConfig{
		Participants: 3,
		TaskInterval: 5 * time.Millisecond,
		Tenure:       20 * time.Millisecond,
	}, WithLogger(xlog.Discard()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	require.Eventually(t, func() bool {
		for _, s := range e.Statuses() {
			if s.Terms < 1 {
				return false
			}
		}
		return true
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}

// TestNewElection_DialError 测试建连失败时关闭已建立的客户端
func TestNewElection_DialError(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	var calls atomic.Int32
	var first xcoord.Client
	dial := func(ctx context.Context) (xcoord.Client, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("unreachable")
		}
		c, err := memDialer(srv)(ctx)
		first = c
		return c, err
	}
	_, err := NewElection(context.Background(), dial, ElectionConfig{}, WithLogger(xlog.Discard()))
	require.ErrorContains(t, err, "unreachable")
	_, err = first.Session(context.Background())
	assert.ErrorIs(t, err, xcoord.ErrClosed)

	_, err = NewElection(context.Background(), nil, ElectionConfig{})
	assert.Error(t, err)
}

// TestRunElection 测试按输入行放弃领导权
func TestRunElection(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := RunElection(ctx, memDialer(srv), ElectionConfig{TaskInterval: 5 * time.Millisecond},
		strings.NewReader("\n\n"), WithLogger(xlog.Discard()))
	assert.NoError(t, err)
	assert.Empty(t, srv.Nodes(DefaultElectionPath))
}

// TestRunElection_Fatal 测试选举器故障终止场景
func TestRunElection_Fatal(t *testing.T) {
	srv := xcoord.NewMemoryServer()
	srv.FailNext(1000)
	dial := func(context.Context) (xcoord.Client, error) {
		return xcoord.NewMemoryClient(srv,
			xcoord.WithLogger(xlog.Discard()),
			xcoord.WithRetryer(xretry.NewRetryer(
				xretry.WithRetryPolicy(xretry.NewFixedRetry(1)),
				xretry.WithBackoffPolicy(xretry.NewFixedBackoff(time.Millisecond)),
			)),
		), nil
	}
	err := RunElection(context.Background(), dial, ElectionConfig{Participants: 1}, nil, WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, xcoord.ErrCoordination)
}
