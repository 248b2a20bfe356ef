package port

import (
	"context"

	"atlas/internal/service/order/domain"
)

// EventPublisher 把订单生命周期事件发布给下游消费者（通知、分析）。
// 发布是尽力而为的：失败只记日志，不影响主流程。
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}
