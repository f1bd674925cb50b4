package xetcd

import "errors"

var (
	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("xetcd: config is nil")

	// ErrNoEndpoints 未配置端点
	ErrNoEndpoints = errors.New("xetcd: no endpoints configured")

	// ErrInvalidEndpoint 端点格式应为 host:port
	ErrInvalidEndpoint = errors.New("xetcd: invalid endpoint format, expected host:port")

	// ErrKeyNotFound key 不存在
	ErrKeyNotFound = errors.New("xetcd: key not found")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("xetcd: client is closed")

	// ErrEmptyKey key 为空
	ErrEmptyKey = errors.New("xetcd: key is empty")

	// ErrInvalidTTL 会话 TTL 至少 1 秒
	ErrInvalidTTL = errors.New("xetcd: session ttl must be at least 1s")

	// ErrNoRawClient 没有可用于创建租约会话的 clientv3 实例
	ErrNoRawClient = errors.New("xetcd: raw client unavailable")

	errNilKv = errors.New("xetcd: event has nil kv")
)

// IsKeyNotFound 是否为 key 不存在
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
