// Package orchestrator 组合 xdlock、xelect、xtask 的演示场景。
//
// 锁场景：一组 worker 并发争抢同一把锁，各自带有限等待时间和工作时长，
// 展示超时放弃与及时移交。
//
// 选举场景：多个参与者各持一个客户端会话竞选 leader；leader 运行周期任务，
// 直到被要求放弃领导权（[Election.Relinquish]），随后重新排队。
//
// cmd/xcoordctl 的 lock 与 elect 子命令分别调用 [RunLockScenarios] 和 [RunElection]。
package orchestrator
