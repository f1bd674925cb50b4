package xcoord

import (
	"errors"

	"github.com/omeyang/xcoord/pkg/storage/xredis"
)

var (
	// ErrTimeout 在限定时间内未完成
	ErrTimeout = errors.New("xcoord: timed out")

	// ErrState 调用顺序非法（重复获取、未持有即释放、重复启动）
	ErrState = errors.New("xcoord: invalid state")

	// ErrSessionLost 会话已失效，其下的节点不再存在
	ErrSessionLost = errors.New("xcoord: session lost")

	// ErrCoordination 协调服务瞬时故障，已按退避策略重试
	ErrCoordination = errors.New("xcoord: coordination service error")

	// ErrNodeNotFound 节点不存在
	ErrNodeNotFound = errors.New("xcoord: node not found")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("xcoord: client closed")

	// ErrInvalidPath 路径必须以 / 开头且不能是根
	ErrInvalidPath = errors.New("xcoord: invalid path")

	// ErrNilContext context 为 nil
	ErrNilContext = errors.New("xcoord: nil context")

	// ErrNoRedisAddrs redis 后端未配置地址
	ErrNoRedisAddrs = xredis.ErrNoAddrs

	// ErrUnknownBackend 未知后端
	ErrUnknownBackend = errors.New("xcoord: unknown backend")
)

// IsSessionLost 是否为会话丢失
func IsSessionLost(err error) bool {
	return errors.Is(err, ErrSessionLost)
}

// IsTransient 是否为协调服务瞬时故障
func IsTransient(err error) bool {
	return errors.Is(err, ErrCoordination)
}
