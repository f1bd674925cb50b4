// Package distributed 提供基于 xcoord 的分布式协调原语。
//
// 子包列表：
//   - xdlock: 有限等待的分布式互斥锁，容量大于 1 时为信号量
//   - xelect: 选主，回调返回即放弃领导权并重新排队
//   - xtask: 可取消的周期任务，可直接作为选主回调
//
// 三者都只依赖 xcoord.Client 接口，后端（memory、etcd、redis）由调用方选择。
package distributed
