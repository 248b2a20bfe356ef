package saga

import (
	"go.opentelemetry.io/otel/codes"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/order/domain"
)

// PersistHandler 负责把订单以 PENDING 状态落库。
// 走到这一步意味着全部预占已成功；持久化失败对调用方表现为
// 统一的 ErrSagaFailed——底层原因是存储故障而非库存冲突，
// 调用方不应带着同样的条目盲目重试预占。
type PersistHandler struct {
	NextHandler
	repo domain.OrderRepository
}

func NewPersistHandler(repo domain.OrderRepository) *PersistHandler {
	return &PersistHandler{repo: repo}
}

func (h *PersistHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	order := domain.NewOrder(orderCtx.UserID, orderCtx.Items)
	if err := h.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist pending order")
		// 真实原因只进日志，不透给调用方
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to save pending order")
		return domain.ErrSagaFailed
	}

	orderCtx.Order = order
	span.AddEvent("pending order saved")
	return h.executeNext(orderCtx)
}
