package xredis

import (
	"fmt"
	"net"
	"time"
)

// Config redis 连接配置
type Config struct {
	Addrs      []string `json:"addrs" yaml:"addrs" koanf:"addrs"`
	Username   string   `json:"username" yaml:"username" koanf:"username"`
	Password   string   `json:"password" yaml:"password" koanf:"password"`
	DB         int      `json:"db" yaml:"db" koanf:"db"`
	MasterName string   `json:"masterName" yaml:"masterName" koanf:"master_name"`

	// DialTimeout 建连超时，默认 5s
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout" koanf:"dial_timeout"`

	// PoolSize 每个节点的连接池大小，0 使用 go-redis 默认值
	PoolSize int `json:"poolSize" yaml:"poolSize" koanf:"pool_size"`
}

const defaultDialTimeout = 5 * time.Second

// Validate 校验地址
func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrNoAddrs
	}
	for i, addr := range c.Addrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: addrs[%d]=%q", ErrInvalidAddr, i, addr)
		}
	}
	return nil
}
