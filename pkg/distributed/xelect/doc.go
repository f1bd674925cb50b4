// Package xelect 基于临时顺序节点的选主。
//
// 每个 [Elector] 在选举路径下创建临时顺序节点，序号最小者成为 leader 并同步执行
// [LeadershipFunc]；其余参与者只监听紧邻的前一个节点。回调返回即放弃领导权：
// 删除自己的节点，重新排到队尾（总是重新排队，直到 [Elector.Stop]）。
//
// 领导期间自己的节点被删除或会话丢失时，回调的 ctx 被取消，回调应尽快返回。
// 会话丢失后等待客户端建立新会话再参与选举；协调服务故障在客户端重试耗尽后
// 终止选举，通过 [Elector.Err] 和 [Elector.Done] 暴露。
//
// 同一选举路径上，协调服务的节点列表保证任一时刻最多一个 leader；
// 网络分区下的短暂双主受会话超时约束。
package xelect
