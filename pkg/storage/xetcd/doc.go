// Package xetcd etcd v3 客户端封装。
//
// 除连接管理外，提供协调原语需要的最小 KV 面：
//   - [Client.NewSession]：基于 concurrency.Session 的租约会话，进程失联后租约过期，
//     挂在租约上的 key 自动删除（即“临时节点”）
//   - [Client.PutWithLease] / [Client.List] / [Client.Get] / [Client.Delete]：
//     List 按 CreateRevision 升序返回，CreateRevision 即节点的创建序号
//   - [Client.Watch]：把 clientv3 的 WatchChan 转换为 [Event] 流
//
// 配置：
//
//	cfg := xetcd.DefaultConfig()
//	cfg.Endpoints = []string{"127.0.0.1:2379"}
//	c, err := xetcd.NewClient(cfg, xetcd.WithHealthCheck(true, 3*time.Second))
package xetcd
