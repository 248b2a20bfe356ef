package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"atlas/internal/service/order/domain"
)

// PricingHandler 负责定价步骤：从商品目录取当前价格并冻结为价格快照。
// 这一步发生在任何预占之前，失败直接中止，无需补偿。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PriceItems")
	defer span.End()

	items := make([]domain.LineItem, 0, len(orderCtx.RawItems))
	for _, raw := range orderCtx.RawItems {
		product, err := orderCtx.Catalog.GetProduct(ctx, raw.ProductID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog lookup failed")
			return err
		}
		items = append(items, domain.LineItem{
			ProductID:     raw.ProductID,
			Quantity:      raw.Quantity,
			PriceSnapshot: product.Price,
		})
	}

	orderCtx.Items = items
	span.SetAttributes(
		attribute.Int("items.count", len(items)),
		attribute.Float64("order.total", domain.ComputeTotal(items)),
	)
	return h.executeNext(orderCtx)
}
