package xdlock

import (
	"errors"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
)

var (
	// ErrNilClient 协调服务客户端为空
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrNilContext context 为空
	ErrNilContext = errors.New("xdlock: context is nil")

	// ErrNilFunc Do 的函数为空
	ErrNilFunc = errors.New("xdlock: function is nil")

	// ErrTimeout Lock 未在限定时间内获得锁
	ErrTimeout = xcoord.ErrTimeout

	// ErrState 重复获取、未持有即释放
	ErrState = xcoord.ErrState

	// ErrSessionLost 等待或持有期间会话丢失
	ErrSessionLost = xcoord.ErrSessionLost
)
