package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcoord/internal/orchestrator"
	"github.com/omeyang/xcoord/pkg/config/xconf"
	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/lifecycle/xrun"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
)

// usageError 参数或配置错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// env 子命令共享的配置、日志与清理函数
type env struct {
	cfg     xconf.Config
	conf    *appConfig
	logger  xlog.LoggerWithLevel
	closers []func() error
}

func setup(cmd *cli.Command) (*env, error) {
	path := cmd.String("config")
	cfg, conf, err := loadConfig(path)
	if err != nil {
		return nil, &usageError{msg: fmt.Sprintf("load config: %v", err)}
	}
	if cmd.IsSet("backend") {
		conf.Coord.Backend = cmd.String("backend")
	}
	switch conf.Coord.Backend {
	case "", xcoord.BackendMemory, xcoord.BackendEtcd, xcoord.BackendRedis:
	default:
		return nil, &usageError{msg: fmt.Sprintf("unknown backend %q", conf.Coord.Backend)}
	}
	if cmd.IsSet("log-level") {
		conf.Log.Level = cmd.String("log-level")
	}
	logger, cleanup, err := newLogger(conf.Log)
	if err != nil {
		return nil, &usageError{msg: err.Error()}
	}

	e := &env{cfg: cfg, conf: conf, logger: logger, closers: []func() error{cleanup}}
	if path != "" {
		w, err := watchLogLevel(cfg, logger)
		if err != nil {
			logger.Warn(context.Background(), "config watch disabled", xlog.Err(err))
		} else {
			e.closers = append(e.closers, w.Stop)
		}
	}
	return e, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// dialer memory 后端的所有客户端共享同一个进程内服务
func (e *env) dialer() orchestrator.Dialer {
	opts := []xcoord.Option{xcoord.WithLogger(e.logger)}
	coord := e.conf.Coord
	if coord.Backend == "" || coord.Backend == xcoord.BackendMemory {
		srv := xcoord.NewMemoryServer()
		return func(context.Context) (xcoord.Client, error) {
			return xcoord.NewMemoryClient(srv, coord.Options(opts...)...), nil
		}
	}
	return func(ctx context.Context) (xcoord.Client, error) {
		return xcoord.Dial(ctx, coord, opts...)
	}
}

func createLockCommand() *cli.Command {
	return &cli.Command{
		Name:  "lock",
		Usage: "运行有限等待的加锁场景",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "锁路径，覆盖配置"},
			&cli.DurationFlag{Name: "pause", Usage: "场景之间的间隔，覆盖配置"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if cmd.IsSet("path") {
				e.conf.Lock.Path = cmd.String("path")
			}
			if cmd.IsSet("pause") {
				e.conf.Lock.Pause = cmd.Duration("pause")
			}
			return cmdLock(ctx, e, cmd.Root().Writer)
		},
	}
}

func cmdLock(ctx context.Context, e *env, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, xrun.DefaultSignals()...)
	defer stop()

	client, err := e.dialer()(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(context.WithoutCancel(ctx)) }()

	results, err := orchestrator.RunLockScenarios(ctx, client, e.conf.Lock, orchestrator.WithLogger(e.logger))
	printResults(w, results)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printResults(w io.Writer, results []orchestrator.Result) {
	for _, r := range results {
		outcome := "timed out"
		switch {
		case r.Err != nil:
			outcome = "failed: " + r.Err.Error()
		case r.Acquired:
			outcome = "acquired"
		}
		fmt.Fprintf(w, "worker %d: %s after %s\n", r.Worker, outcome, r.Waited.Round(time.Millisecond))
	}
}

func createElectCommand() *cli.Command {
	return &cli.Command{
		Name:  "elect",
		Usage: "运行选主场景，回车使当前 leader 放弃领导权",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "participants", Aliases: []string{"n"}, Usage: "参与者数量，覆盖配置"},
			&cli.DurationFlag{Name: "tenure", Usage: "leader 任期，0 表示直到手动放弃"},
			&cli.DurationFlag{Name: "interval", Usage: "leader 周期任务间隔"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if cmd.IsSet("participants") {
				e.conf.Election.Participants = cmd.Int("participants")
			}
			if cmd.IsSet("tenure") {
				e.conf.Election.Tenure = cmd.Duration("tenure")
			}
			if cmd.IsSet("interval") {
				e.conf.Election.TaskInterval = cmd.Duration("interval")
			}
			return cmdElect(ctx, e, cmd.Root().Reader)
		},
	}
}

func cmdElect(ctx context.Context, e *env, input io.Reader) error {
	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(e.logger), xrun.WithName("xcoordctl")},
		func(ctx context.Context) error {
			return orchestrator.RunElection(ctx, e.dialer(), e.conf.Election, input, orchestrator.WithLogger(e.logger))
		},
	)
	if errors.Is(err, xrun.ErrSignal) || ctx.Err() != nil {
		return nil
	}
	return err
}
