// Package storage 提供协调服务后端的连接封装。
//
// 子包列表：
//   - xetcd: etcd 客户端封装，KV、Watch 与租约会话
//   - xredis: 按配置创建 go-redis 客户端并检查连通性
package storage
