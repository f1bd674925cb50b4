// Package xrotate 提供日志文件轮转能力，供 xlog 作为输出目标使用。
//
// 当前唯一实现基于 lumberjack，按文件大小轮转，并按数量与天数清理备份。
// xcoordctl 在配置了 log.file 时通过 xlog.Builder.SetRotation 启用它。
//
//	r, err := xrotate.NewLumberjack("/var/log/xcoordctl.log",
//		xrotate.WithMaxSize(100),
//		xrotate.WithMaxBackups(5),
//	)
package xrotate
