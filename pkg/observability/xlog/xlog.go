package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 所有方法都需要 context.Context，[EnrichHandler] 从中提取上下文属性。
// 只接受 slog.Attr，避免隐式 key-value 转换，键名和类型在编译期确定。
//
// 组件通常在构造时用 With 绑定固定属性，调用点只补充本次事件的属性：
//
//	logger := base.With(xlog.Component("xdlock"), xlog.Path(path))
//	logger.Info(ctx, "lock-acquired", xlog.Node(node.ID), xlog.Duration(wait))
//
// 实现必须并发安全；派生的 Logger 与父级共享级别，SetLevel 对所有派生实例生效。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger，与父级共享级别
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回带分组的派生 Logger
	WithGroup(name string) Logger
}

// Leveler 级别控制接口
type Leveler interface {
	// SetLevel 运行时调整级别
	SetLevel(level Level)

	GetLevel() Level

	// Enabled 在构造昂贵的日志参数前检查级别
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Logger + Leveler，Build 的返回类型
//
// 需要运行时调整级别的持有方（例如配置热加载）保存这个类型，
// 传给组件时按 Logger 传递即可。
type LoggerWithLevel interface {
	Logger
	Leveler
}
