package saga

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"atlas/internal/pkg/identity"
	"atlas/internal/pkg/logger"
)

// ReserveHandler 负责库存预占步骤。
// 条目按顺序串行预占：失败时需要补偿的范围被限制在已处理的条目内，
// 代价是延迟随条目数线性增长。不存在跨条目的全局锁，并发下单对
// 同一商品的竞争完全交给台账的原子 Reserve 裁决。
type ReserveHandler struct {
	NextHandler
}

func (h *ReserveHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ReserveStock")
	defer span.End()

	for _, item := range orderCtx.Items {
		if err := orderCtx.Inventory.Reserve(ctx, item.ProductID, item.Quantity, orderCtx.UserID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "inventory reservation failed")
			// 原始错误种类原样向上传递：调用方必须能区分
			// "库存不足"（可减量重试）与内部故障
			return err
		}

		// 预占成功才注册补偿，保证释放次数与成功预占次数严格相等
		productID, quantity := item.ProductID, item.Quantity
		orderCtx.AddCompensation(func(compCtx context.Context) {
			compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.ReleaseStock")
			defer compSpan.End()
			compSpan.SetAttributes(
				attribute.String("product.id", productID),
				attribute.Int64("quantity", quantity),
			)

			if err := orderCtx.Inventory.Release(compCtx, productID, quantity, identity.ActorSystem); err != nil {
				// 补偿失败需要人工介入，记录后继续，不中断其他补偿
				compSpan.RecordError(err)
				logger.Ctx(compCtx).Error().Err(err).
					Str("product_id", productID).
					Int64("quantity", quantity).
					Msg("compensating release failed, manual reconciliation required")
			}
		})
	}

	span.AddEvent("all items reserved")
	return h.executeNext(orderCtx)
}
