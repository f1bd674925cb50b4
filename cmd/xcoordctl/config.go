package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/omeyang/xcoord/internal/orchestrator"
	"github.com/omeyang/xcoord/pkg/config/xconf"
	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
	"github.com/omeyang/xcoord/pkg/observability/xlog"
	"github.com/omeyang/xcoord/pkg/observability/xrotate"
)

//go:embed defaults.yaml
var defaultConfig []byte

// appConfig xcoordctl 配置
type appConfig struct {
	Log      logConfig                   `koanf:"log"`
	Coord    xcoord.Config               `koanf:"coord"`
	Lock     orchestrator.LockConfig     `koanf:"lock"`
	Election orchestrator.ElectionConfig `koanf:"election"`
}

type logConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// File 非空时写入按大小轮转的文件
	File string `koanf:"file"`
}

// loadConfig path 为空时只使用内置默认值
func loadConfig(path string) (xconf.Config, *appConfig, error) {
	var (
		cfg xconf.Config
		err error
	)
	if path == "" {
		cfg, err = xconf.NewFromBytes(defaultConfig, xconf.FormatYAML)
	} else {
		cfg, err = xconf.New(path, xconf.WithDefaults(defaultConfig, xconf.FormatYAML))
	}
	if err != nil {
		return nil, nil, err
	}
	var c appConfig
	if err := cfg.Unmarshal("", &c); err != nil {
		return nil, nil, err
	}
	return cfg, &c, nil
}

// newLogger 返回的 cleanup 关闭轮转文件
func newLogger(c logConfig) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(c.Level).SetFormat(c.Format)
	if c.File != "" {
		b = b.SetRotation(c.File, xrotate.WithMaxSize(100), xrotate.WithMaxBackups(5), xrotate.WithCompress(true))
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, cleanup, nil
}

// watchLogLevel 配置文件变化时更新日志级别，其余字段需要重启生效
func watchLogLevel(cfg xconf.Config, logger xlog.LoggerWithLevel) (*xconf.Watcher, error) {
	ctx := context.Background()
	return xconf.Watch(cfg, func(cfg xconf.Config, err error) {
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		level, err := xlog.ParseLevel(cfg.String("log.level"))
		if err != nil {
			logger.Warn(ctx, "invalid log level in config", xlog.Err(err))
			return
		}
		if level != logger.GetLevel() {
			logger.SetLevel(level)
			logger.Info(ctx, "log level reloaded", slog.String("level", level.String()))
		}
	})
}
