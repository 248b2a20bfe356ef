// internal/service/payment/domain/repository.go
package domain

import "context"

// AttemptRepository 持久化支付尝试。
//
// MarkStatus 是幂等守卫的落点：只有当记录仍处于 from 状态时才写入 to，
// 返回值表示本次调用是否真正完成了状态变更。两次并发投递同一通知时，
// 至多一次返回 true，副作用只跟着这一次执行。
type AttemptRepository interface {
	Save(ctx context.Context, attempt *PaymentAttempt) error
	FindBySessionID(ctx context.Context, sessionID string) (*PaymentAttempt, error)
	ListByOrderID(ctx context.Context, orderID string) ([]*PaymentAttempt, error)
	MarkStatus(ctx context.Context, sessionID string, from, to AttemptStatus) (bool, error)
}
