// Package xdlock 基于协调服务临时顺序节点的分布式锁与信号量。
//
// 每次获取在锁路径下创建一个临时顺序节点，按序号排队：
// 序号排在前 capacity 位的竞争者持有锁。未持有时只监听决定自己能否前进的节点，
// 节点删除后重新检查，不会产生惊群。
//
//	m, err := xdlock.New(client, "/locks/report")
//	ok, err := m.Acquire(ctx, 5*time.Second)
//	if ok {
//	    defer m.Release(ctx)
//	}
//
// 超时或 ctx 取消时删除本次创建的节点，不影响后续获取。锁不可重入；
// 会话丢失后 [Mutex.IsHeld] 变为 false，节点已由协调服务删除。
//
// WithCapacity(n) 使同一路径最多 n 个持有者，即分布式信号量。
package xdlock
