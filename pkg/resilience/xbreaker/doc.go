// Package xbreaker 基于 sony/gobreaker/v2 的熔断器。
//
// xcoord 客户端在后端调用外层包裹 [Breaker]：协调服务持续故障时快速失败，
// 熔断错误 [BreakerError] 实现 Retryable() == false，xretry 不会对其退避重试。
//
//	b := xbreaker.NewBreaker("xcoord-etcd",
//		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(5)),
//		xbreaker.WithTimeout(10*time.Second),
//	)
//	err := b.Do(ctx, func() error { ... })
package xbreaker
