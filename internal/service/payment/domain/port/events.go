package port

import "context"

// EventPublisher 把支付结果事件发布给下游消费者。
// 发布是尽力而为的：失败只记日志，不影响状态机推进。
type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, orderID, sessionID string) error
	PublishOrderCancelled(ctx context.Context, orderID, sessionID string) error
}
