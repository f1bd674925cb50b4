// Package coordination 提供协调服务客户端。
//
// 子包列表：
//   - xcoord: 会话、临时顺序节点、删除监听的统一接口，带重试与熔断
package coordination
