package xetcd

import (
	"fmt"
	"strings"
	"time"
)

// Config etcd 连接配置
type Config struct {
	Endpoints []string `json:"endpoints" yaml:"endpoints" koanf:"endpoints"`
	Username  string   `json:"username" yaml:"username" koanf:"username"`
	Password  string   `json:"password" yaml:"password" koanf:"password"`

	// DialTimeout 建连超时，默认 5s
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout" koanf:"dial_timeout"`

	// DialKeepAliveTime gRPC keepalive 探测间隔，默认 10s
	DialKeepAliveTime time.Duration `json:"dialKeepAliveTime" yaml:"dialKeepAliveTime" koanf:"keepalive_time"`

	// DialKeepAliveTimeout keepalive 探测超时，默认 3s
	DialKeepAliveTimeout time.Duration `json:"dialKeepAliveTimeout" yaml:"dialKeepAliveTimeout" koanf:"keepalive_timeout"`

	// AutoSyncInterval 成员列表同步周期，0 表示不同步
	AutoSyncInterval time.Duration `json:"autoSyncInterval" yaml:"autoSyncInterval" koanf:"auto_sync_interval"`

	RejectOldCluster    bool `json:"rejectOldCluster" yaml:"rejectOldCluster" koanf:"reject_old_cluster"`
	PermitWithoutStream bool `json:"permitWithoutStream" yaml:"permitWithoutStream" koanf:"permit_without_stream"`
}

const (
	defaultDialTimeout          = 5 * time.Second
	defaultDialKeepAliveTime    = 10 * time.Second
	defaultDialKeepAliveTimeout = 3 * time.Second
)

// DefaultConfig 返回默认配置（不含端点）
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:          defaultDialTimeout,
		DialKeepAliveTime:    defaultDialKeepAliveTime,
		DialKeepAliveTimeout: defaultDialKeepAliveTimeout,
		RejectOldCluster:     true,
		PermitWithoutStream:  true,
	}
}

// Validate 校验端点
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for i, ep := range c.Endpoints {
		if ep == "" {
			return fmt.Errorf("%w: endpoint[%d] is empty", ErrInvalidEndpoint, i)
		}
		if !strings.Contains(ep, ":") {
			return fmt.Errorf("%w: endpoint[%d]=%q missing port", ErrInvalidEndpoint, i, ep)
		}
	}
	return nil
}

// withDefaults 返回补齐零值的副本
func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.DialKeepAliveTime <= 0 {
		cfg.DialKeepAliveTime = defaultDialKeepAliveTime
	}
	if cfg.DialKeepAliveTimeout <= 0 {
		cfg.DialKeepAliveTimeout = defaultDialKeepAliveTimeout
	}
	return &cfg
}
