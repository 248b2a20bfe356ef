package saga

import (
	"atlas/internal/pkg/logger"
)

// EventsHandler 在订单落库后发布 order.placed 事件。
// 发布失败不影响已创建的订单，只记日志。
type EventsHandler struct {
	NextHandler
}

func (h *EventsHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PublishOrderPlaced")
	defer span.End()

	if orderCtx.Events != nil && orderCtx.Order != nil {
		if err := orderCtx.Events.PublishOrderPlaced(ctx, orderCtx.Order); err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Warn().Err(err).
				Str("order_id", orderCtx.Order.ID).
				Msg("failed to publish order placed event")
		}
	}
	return h.executeNext(orderCtx)
}
