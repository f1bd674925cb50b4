package xelect

import (
	"errors"

	"github.com/omeyang/xcoord/pkg/coordination/xcoord"
)

var (
	// ErrNilClient 协调服务客户端为空
	ErrNilClient = errors.New("xelect: client is nil")

	// ErrNilFunc 领导回调为空
	ErrNilFunc = errors.New("xelect: leadership func is nil")

	// ErrNilContext context 为空
	ErrNilContext = errors.New("xelect: context is nil")

	// ErrState 重复启动或停止后启动
	ErrState = xcoord.ErrState

	// errLeadershipLost 领导期间自己的节点被删除
	errLeadershipLost = errors.New("xelect: leadership lost")
)
