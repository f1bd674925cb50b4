// Package xrun 基于 errgroup 的进程生命周期管理。
//
// [Group] 管理一组共享 context 的 goroutine：任一返回错误即取消其余，
// [Run] 额外监听系统信号，收到信号后以 [SignalError] 作为取消原因。
// xcoordctl 用它承载选举进程、配置监听与信号处理；xtask 用 [Ticker] 驱动周期任务。
package xrun
