// Package xcoord 协调服务客户端：会话、临时顺序节点、一次性 Watch。
//
// [Client] 是 xdlock（分布式锁/信号量）与 xelect（选主）依赖的唯一接口，
// 语义对齐 ZooKeeper 风格的协调服务：
//
//   - 会话（[Session]）绑定到一次连接周期，会话失效后其创建的所有节点被删除
//   - [Client.CreateEphemeralSequential] 在路径下创建带严格递增序号的临时节点
//   - [Client.Children] 按序号升序列出路径下的存活节点
//   - [Client.Watch] 一次性监听节点删除；会话丢失时同样触发（[EventSessionLost]）
//   - [Client.OnSessionLost] 注册会话丢失回调
//
// 三种后端：
//
//   - memory：进程内 [MemoryServer]，用于测试和演示，可通过 [MemoryServer.Expire] 模拟会话过期
//   - etcd：租约即会话，key 挂在租约上，序号取 CreateRevision
//   - redis：带 TTL 的会话 key + 心跳续期，INCR 生成序号，Lua 脚本保证原子性
//
// 后端调用的瞬时故障（[ErrCoordination]）按 xretry 指数退避重试，可选 xbreaker 熔断；
// 会话丢失（[ErrSessionLost]）不重试，直接返回给调用方。
package xcoord
