package xredis

import "errors"

var (
	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("xredis: config is nil")

	// ErrNoAddrs 未配置地址
	ErrNoAddrs = errors.New("xredis: no addrs configured")

	// ErrInvalidAddr 地址格式应为 host:port
	ErrInvalidAddr = errors.New("xredis: invalid addr format, expected host:port")
)
