// Package xtask 可取消的周期任务。
//
// [Task] 按固定间隔（[WithInterval]）或 cron 表达式（[WithSchedule]）执行
// [TickFunc]，每次执行递增实例本地的计数器。Stop 是协作式的：在两次执行之间生效，
// 并阻塞到执行 goroutine 退出。
//
// [Task.Lead] 可直接作为 xelect 的领导回调：成为 leader 后启动任务，
// 失去领导权时停止：
//
//	task, _ := xtask.New("worker-1", nil, xtask.WithInterval(5*time.Second))
//	e, _ := xelect.New(client, "/service/leader", task.Lead)
package xtask
