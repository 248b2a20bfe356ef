// internal/service/order/application/service.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/order/application/saga"
	"atlas/internal/service/order/domain"
	"atlas/internal/service/order/domain/port"
)

// OrderApplicationService 负责订单相关的业务流程编排。
type OrderApplicationService struct {
	orderRepo domain.OrderRepository
	tracer    trace.Tracer

	catalog   port.CatalogService
	inventory port.InventoryService
	events    port.EventPublisher
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	tracer trace.Tracer,
	catalog port.CatalogService,
	inventory port.InventoryService,
	events port.EventPublisher,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo: orderRepo,
		tracer:    tracer,
		catalog:   catalog,
		inventory: inventory,
		events:    events,
	}
}

// CreateOrder 执行下单编排：定价 → 串行预占 → 落库 PENDING → 发布事件。
// 任何一步失败，本次调用已经成功的预占会在返回前全部触发补偿释放，
// 对外表现为"要么得到一个库存全部预占好的 PENDING 订单，要么毫无净变化"。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, userID string, items []domain.ItemRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("items.count", len(items)))

	// 校验失败没有任何副作用
	if err := domain.ValidateItems(userID, items); err != nil {
		span.RecordError(err)
		return nil, err
	}

	orderCtx := &saga.OrderContext{
		Ctx:       ctx,
		Tracer:    s.tracer,
		UserID:    userID,
		RawItems:  items,
		Catalog:   s.catalog,
		Inventory: s.inventory,
		Events:    s.events,
	}

	if err := s.buildChain().Handle(orderCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order saga failed")
		logger.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("order saga failed, compensating")

		// 同步执行补偿后再返回：调用方拿到结果时库存已无净变化
		orderCtx.TriggerCompensation(ctx)
		sagaTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	sagaTotal.WithLabelValues("success").Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", orderCtx.Order.ID).
		Str("user_id", userID).
		Float64("total", orderCtx.Order.TotalAmount).
		Msg("order created, awaiting payment")
	return orderCtx.Order, nil
}

// GetOrder 查询单个订单并校验归属：用户只能读自己的订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		// 不泄露他人订单的存在性
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetOrderInternal 是服务间查询，不做归属校验。接口层负责拒绝终端用户。
func (s *OrderApplicationService) GetOrderInternal(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, orderID)
}

// ListOrders 按过滤条件查询订单。
func (s *OrderApplicationService) ListOrders(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	return s.orderRepo.List(ctx, filter)
}

// UpdateStatus 执行终态转换，仅供支付结果处理器调用。
// 底层是"当前仍为 PENDING 才写入"的条件更新；重复应用同一终态是空操作，
// 与已有的另一终态冲突则报错。
func (s *OrderApplicationService) UpdateStatus(ctx context.Context, orderID string, to domain.Status) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("status.target", string(to)))

	applied, err := s.orderRepo.UpdateStatus(ctx, orderID, domain.StatusPending, to)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !applied {
		if order.Status == to {
			// 同一终态的重复应用：空操作
			logger.Ctx(ctx).Info().Str("order_id", orderID).Str("status", string(to)).
				Msg("order already in target status, skipping")
			return order, nil
		}
		span.SetStatus(codes.Error, "conflicting terminal status")
		return nil, domain.ErrStatusConflict
	}

	logger.Ctx(ctx).Info().Str("order_id", orderID).Str("status", string(to)).Msg("order status updated")
	return order, nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.PricingHandler)
	chain.
		SetNext(new(saga.ReserveHandler)).
		SetNext(saga.NewPersistHandler(s.orderRepo)).
		SetNext(new(saga.EventsHandler))
	return chain
}
