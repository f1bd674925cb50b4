package xetcd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

const healthCheckKey = "xetcd-health-check"

// Client etcd 客户端
type Client struct {
	client    etcdClient
	rawClient *clientv3.Client
	config    *Config

	closed  atomic.Bool
	closeCh chan struct{}
	watchWg sync.WaitGroup
}

// NewClient 创建客户端
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &options{healthTimeout: 10 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	cfg := config.withDefaults()

	raw, err := clientv3.New(clientv3.Config{
		Endpoints:        cfg.Endpoints,
		DialTimeout:      cfg.DialTimeout,
		Username:         cfg.Username,
		Password:         cfg.Password,
		AutoSyncInterval: cfg.AutoSyncInterval,
		RejectOldCluster: cfg.RejectOldCluster,
		TLS:              o.tlsConfig,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.DialKeepAliveTime,
				Timeout:             cfg.DialKeepAliveTimeout,
				PermitWithoutStream: cfg.PermitWithoutStream,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("xetcd: create client: %w", err)
	}

	if o.healthCheck {
		ctx, cancel := context.WithTimeout(context.Background(), o.healthTimeout)
		defer cancel()
		if _, err := raw.Get(ctx, healthCheckKey); err != nil {
			return nil, errors.Join(fmt.Errorf("xetcd: health check failed: %w", err), raw.Close())
		}
	}

	return newClient(raw, raw, cfg), nil
}

func newClient(c etcdClient, raw *clientv3.Client, cfg *Config) *Client {
	return &Client{client: c, rawClient: raw, config: cfg, closeCh: make(chan struct{})}
}

// RawClient 底层 clientv3 客户端
func (c *Client) RawClient() *clientv3.Client {
	return c.rawClient
}

// Close 关闭客户端并等待 Watch goroutine 退出，可重复调用
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closeCh)
	c.watchWg.Wait()
	return c.client.Close()
}

func (c *Client) checkPreconditions(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	return ctx.Err()
}
