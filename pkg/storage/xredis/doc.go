// Package xredis 根据配置创建 go-redis 客户端。
//
// 单个地址创建单机客户端，多个地址创建集群客户端；配置了 MasterName 时使用哨兵。
// 创建后立即 PING，连接不可用时返回错误而不是延迟到首次调用。
package xredis
