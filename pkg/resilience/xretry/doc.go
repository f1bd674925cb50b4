// Package xretry 基于 avast/retry-go/v5 的重试执行器。
//
// [Retryer] 组合 [RetryPolicy]（是否继续重试）与 [BackoffPolicy]（等待多久），
// xcoord 客户端用它实现“指数退避、有界重试次数”的重连与瞬时故障重试：
//
//	r := xretry.NewRetryer(
//		xretry.WithRetryPolicy(xretry.NewFixedRetry(3)),
//		xretry.WithBackoffPolicy(xretry.NewExponentialBackoff(
//			xretry.WithInitialDelay(time.Second),
//		)),
//	)
//	err := r.Do(ctx, func(ctx context.Context) error { ... })
//
// 错误分类：[PermanentError] 立即停止重试，[TemporaryError] 与未分类错误继续重试。
package xretry
