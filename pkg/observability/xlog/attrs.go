package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 标准字段名
// =============================================================================

const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"

	// KeyPath 协调服务路径（锁路径、选举路径）
	KeyPath = "path"

	// KeyNode 竞争节点 ID
	KeyNode = "node"

	// KeySession 会话 ID
	KeySession = "session"

	// KeyOwner 持有者标识（elector id、worker id、task id）
	KeyOwner = "owner"
)

// =============================================================================
// 属性构造函数
// =============================================================================

// Err 创建错误属性，err 为 nil 时返回空属性（被 slog 忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Component 标识日志来源组件
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 标识当前操作
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Path 创建路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Node 创建节点 ID 属性
func Node(id string) slog.Attr {
	return slog.String(KeyNode, id)
}

// Session 创建会话 ID 属性
func Session(id string) slog.Attr {
	return slog.String(KeySession, id)
}

// Owner 创建持有者属性
func Owner(id string) slog.Attr {
	return slog.String(KeyOwner, id)
}
