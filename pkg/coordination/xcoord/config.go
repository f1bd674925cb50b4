package xcoord

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xcoord/pkg/resilience/xretry"
	"github.com/omeyang/xcoord/pkg/storage/xetcd"
	"github.com/omeyang/xcoord/pkg/storage/xredis"
)

// 后端名称
const (
	BackendMemory = "memory"
	BackendEtcd   = "etcd"
	BackendRedis  = "redis"
)

// Config Dial 配置
type Config struct {
	// Backend memory | etcd | redis，默认 memory
	Backend string `json:"backend" yaml:"backend" koanf:"backend"`

	// SessionTTL 会话超时，默认 10s
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" koanf:"session_ttl"`

	Retry   RetryConfig   `json:"retry" yaml:"retry" koanf:"retry"`
	Breaker BreakerConfig `json:"breaker" yaml:"breaker" koanf:"breaker"`
	Etcd    xetcd.Config  `json:"etcd" yaml:"etcd" koanf:"etcd"`
	Redis   RedisConfig   `json:"redis" yaml:"redis" koanf:"redis"`
}

// RetryConfig 后端调用重试配置
type RetryConfig struct {
	// MaxRetries 首次失败后的最大重试次数，默认 3
	MaxRetries int `json:"max_retries" yaml:"max_retries" koanf:"max_retries"`

	// BaseDelay 指数退避起始延迟，默认 1s
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" koanf:"base_delay"`

	// MaxDelay 退避上限，默认 10s
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay" koanf:"max_delay"`
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" koanf:"enabled"`

	// Failures 连续失败多少次后熔断，默认 5
	Failures uint32 `json:"failures" yaml:"failures" koanf:"failures"`

	// Timeout 熔断打开持续时间，默认 30s
	Timeout time.Duration `json:"timeout" yaml:"timeout" koanf:"timeout"`
}

// RedisConfig redis 后端配置
type RedisConfig struct {
	xredis.Config `yaml:",inline" koanf:",squash"`

	// KeyPrefix 所有 key 的前缀，默认 "xcoord:"
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" koanf:"key_prefix"`

	// PollInterval 监听节点删除的轮询间隔，默认 100ms
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" koanf:"poll_interval"`
}

// Options 将配置转换为客户端选项，追加在 extra 之前，extra 可覆盖
func (c Config) Options(extra ...Option) []Option {
	opts := []Option{
		WithSessionTTL(c.SessionTTL),
		WithKeyPrefix(c.Redis.KeyPrefix),
		WithPollInterval(c.Redis.PollInterval),
	}
	if c.Retry != (RetryConfig{}) {
		attempts := DefaultRetryAttempts
		if c.Retry.MaxRetries > 0 {
			attempts = c.Retry.MaxRetries + 1
		}
		base := DefaultRetryBaseDelay
		if c.Retry.BaseDelay > 0 {
			base = c.Retry.BaseDelay
		}
		opts = append(opts, WithRetryer(xretry.NewRetryer(
			xretry.WithRetryPolicy(xretry.NewFixedRetry(attempts)),
			xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
				xretry.WithInitialDelay(base),
				xretry.WithMaxDelay(c.Retry.MaxDelay),
			)),
		)))
	}
	if c.Breaker.Enabled {
		failures := c.Breaker.Failures
		if failures == 0 {
			failures = DefaultBreakerFailures
		}
		timeout := c.Breaker.Timeout
		if timeout <= 0 {
			timeout = DefaultBreakerTimeout
		}
		opts = append(opts, WithBreaker(newBreaker("xcoord-"+c.backend(), failures, timeout)))
	}
	return append(opts, extra...)
}

func (c Config) backend() string {
	if c.Backend == "" {
		return BackendMemory
	}
	return c.Backend
}

// Dial 按配置创建客户端并建立首个会话
//
// memory 后端每次 Dial 使用独立的 [MemoryServer]；需要多个客户端协调时
// 使用 [NewMemoryClient] 共享同一实例。
func Dial(ctx context.Context, cfg Config, extra ...Option) (Client, error) {
	o := applyOptions(cfg.Options(extra...))

	var b backend
	switch cfg.backend() {
	case BackendMemory:
		b = &memoryBackend{srv: NewMemoryServer()}
	case BackendEtcd:
		cli, err := xetcd.NewClient(&cfg.Etcd)
		if err != nil {
			return nil, fmt.Errorf("xcoord: dial etcd: %w", err)
		}
		b = &etcdBackend{store: cli, owned: true}
	case BackendRedis:
		rdb, err := xredis.NewClient(ctx, &cfg.Redis.Config)
		if err != nil {
			return nil, fmt.Errorf("xcoord: dial redis: %w", err)
		}
		b = newRedisBackend(rdb, o, true)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	c := newClient(b, o)
	if _, err := c.session(ctx); err != nil {
		_ = c.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return c, nil
}
