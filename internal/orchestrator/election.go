package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/distributed/xelect"
	"github.com/omeyang/xcoord/pkg/distributed/xtask"
	"github.com/omeyang/xcoord/pkg/lifecycle/xrun"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// DefaultElectionPath 选举路径
const DefaultElectionPath = "/service/leader"

const defaultParticipants = 2

// ElectionConfig 选举场景配置
type ElectionConfig struct {
	// Path 选举路径，默认 /service/leader
	Path string `json:"path" yaml:"path" koanf:"path"`

	// Participants 参与者数量，每个参与者独占一个客户端会话，默认 2
	Participants int `json:"participants" yaml:"participants" koanf:"participants"`

	// TaskInterval leader 周期任务的间隔，默认 5s
	TaskInterval time.Duration `json:"task_interval" yaml:"task_interval" koanf:"task_interval"`

	// Tenure 大于 0 时 leader 任期满后自动放弃领导权
	Tenure time.Duration `json:"tenure" yaml:"tenure" koanf:"tenure"`
}

// Dialer 为每个参与者创建独立的客户端
type Dialer func(ctx context.Context) (xcoord.Client, error)

// Status 参与者快照
type Status struct {
	ID     string
	State  xelect.State
	Leader bool
	Terms  int64
	Ticks  int64
}

// Election 选举场景
type Election struct {
	cfg          ElectionConfig
	o            *options
	participants []*participant
	relinquish   chan struct{}
	interactive  bool
}

type participant struct {
	id      string
	client  xcoord.Client
	task    *xtask.Task
	elector *xelect.Elector
}

// NewElection 为每个参与者建立客户端和选举器，Run 之前不参与选举
func NewElection(ctx context.Context, dial Dialer, cfg ElectionConfig, opts ...Option) (*Election, error) {
	if dial == nil {
		return nil, xelect.ErrNilClient
	}
	o := applyOptions(opts)
	if cfg.Path == "" {
		cfg.Path = DefaultElectionPath
	}
	if cfg.Participants <= 0 {
		cfg.Participants = defaultParticipants
	}
	if cfg.TaskInterval <= 0 {
		cfg.TaskInterval = xtask.DefaultInterval
	}

	e := &Election{cfg: cfg, o: o, relinquish: make(chan struct{})}
	for i := range cfg.Participants {
		p, err := e.newParticipant(ctx, dial, i)
		if err != nil {
			return nil, errors.Join(err, e.Close(ctx))
		}
		e.participants = append(e.participants, p)
	}
	return e, nil
}

func (e *Election) newParticipant(ctx context.Context, dial Dialer, i int) (*participant, error) {
	id := fmt.Sprintf("participant-%d", i)
	client, err := dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial %s: %w", id, err)
	}
	p := &participant{id: id, client: client}

	p.task, err = xtask.New(id, nil,
		xtask.WithInterval(e.cfg.TaskInterval),
		xtask.WithLogger(e.o.logger),
		xtask.WithMeterProvider(e.o.meterProvider),
	)
	if err == nil {
		p.elector, err = xelect.New(client, e.cfg.Path, e.lead(p),
			xelect.WithID(id),
			xelect.WithLogger(e.o.logger),
			xelect.WithMeterProvider(e.o.meterProvider),
		)
	}
	if err != nil {
		return nil, errors.Join(err, client.Close(ctx))
	}
	return p, nil
}

// lead leader 启动周期任务，直到放弃领导权或被取消
func (e *Election) lead(p *participant) xelect.LeadershipFunc {
	return func(ctx context.Context) error {
		logger := e.o.logger.With(xlog.Owner(p.id))
		logger.Info(ctx, "i am the leader now")
		if err := p.task.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = p.task.Stop() }()

		if e.interactive {
			logger.Info(ctx, "press Enter to make the leader relinquish leadership")
		}
		var tenure <-chan time.Time
		if e.cfg.Tenure > 0 {
			t := time.NewTimer(e.cfg.Tenure)
			defer t.Stop()
			tenure = t.C
		}
		select {
		case <-ctx.Done():
			logger.Info(ctx, "leadership revoked", slog.Any("cause", context.Cause(ctx)))
		case <-e.relinquish:
			logger.Info(ctx, "relinquishing leadership on request")
		case <-tenure:
			logger.Info(ctx, "tenure over, relinquishing leadership")
		}
		return nil
	}
}

// Relinquish 要求当前 leader 放弃领导权；没有 leader 在位时返回 false
func (e *Election) Relinquish() bool {
	select {
	case e.relinquish <- struct{}{}:
		return true
	default:
		return false
	}
}

// Leader 当前 leader 的标识
func (e *Election) Leader() (string, bool) {
	for _, p := range e.participants {
		if p.elector.IsLeader() {
			return p.id, true
		}
	}
	return "", false
}

// Statuses 所有参与者的快照
func (e *Election) Statuses() []Status {
	out := make([]Status, 0, len(e.participants))
	for _, p := range e.participants {
		out = append(out, Status{
			ID:     p.id,
			State:  p.elector.State(),
			Leader: p.elector.IsLeader(),
			Terms:  p.elector.Terms(),
			Ticks:  p.task.Ticks(),
		})
	}
	return out
}

// Run 启动全部选举器并阻塞，直到 ctx 取消或某个选举器因错误终止
//
// 返回前停止所有选举器并关闭客户端。
func (e *Election) Run(ctx context.Context) error {
	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(e.o.logger), xrun.WithName("election"))
	for _, p := range e.participants {
		if err := p.elector.Start(); err != nil {
			g.Cancel(err)
			break
		}
		g.GoWithName(p.id, func(ctx context.Context) error {
			select {
			case <-p.elector.Done():
				return p.elector.Err()
			case <-ctx.Done():
			}
			p.elector.Stop()
			return p.elector.Wait(context.WithoutCancel(ctx))
		})
	}
	e.o.logger.Info(ctx, "election started", slog.Int("participants", len(e.participants)), xlog.Path(e.cfg.Path))

	err := g.Wait()
	for _, p := range e.participants {
		p.elector.Stop()
	}
	return errors.Join(err, e.Close(context.WithoutCancel(ctx)))
}

// Close 关闭所有客户端
func (e *Election) Close(ctx context.Context) error {
	var errs []error
	for _, p := range e.participants {
		if err := p.client.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("orchestrator: close %s: %w", p.id, err))
		}
	}
	return errors.Join(errs...)
}

// RunElection 运行选举场景；input 每读到一行就要求当前 leader 放弃领导权
//
// input 为 nil 时只靠 Tenure 或 ctx 取消结束任期。
func RunElection(ctx context.Context, dial Dialer, cfg ElectionConfig, input io.Reader, opts ...Option) error {
	e, err := NewElection(ctx, dial, cfg, opts...)
	if err != nil {
		return err
	}
	if input != nil {
		e.interactive = true
		go e.relinquishOnInput(ctx, input)
	}
	return e.Run(ctx)
}

func (e *Election) relinquishOnInput(ctx context.Context, input io.Reader) {
	sc := bufio.NewScanner(input)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		if !e.Relinquish() {
			e.o.logger.Warn(ctx, "no leader to relinquish leadership")
		}
	}
}
