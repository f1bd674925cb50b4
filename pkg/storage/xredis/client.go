package xredis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewClient 创建客户端并 PING 检查连通性
//
// ctx 只约束健康检查。检查失败时关闭客户端并返回错误。
func NewClient(ctx context.Context, cfg *Config) (redis.UniversalClient, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       cfg.Addrs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		MasterName:  cfg.MasterName,
		DialTimeout: timeout,
		PoolSize:    cfg.PoolSize,
	})

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("xredis: ping: %w", err), rdb.Close())
	}
	return rdb, nil
}
