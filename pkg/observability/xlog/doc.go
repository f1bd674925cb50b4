// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，Build 返回该错误）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelInfo).
//		SetFormat("json").
//		SetRotation("/var/log/xcoordctl.log").
//		Build()
//	defer cleanup()
//
// # 上下文属性
//
// [ContextWith] 把属性挂到 context 上，默认启用的 [EnrichHandler] 会在输出时
// 自动追加。协调组件用它携带 elector_id、lock_path 等字段，调用链上的日志无需
// 逐层传递 Logger。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]，可在运行时通过 SetLevel 调整级别，
// 派生 logger（With/WithGroup）共享同一个级别。
//
// # 全局 Logger
//
// [Default] 惰性创建 stderr/Info/text 的 logger，[SetDefault] 替换它。
// 服务端代码推荐显式注入 Logger。
package xlog
