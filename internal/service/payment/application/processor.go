// internal/service/payment/application/processor.go
package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/payment/domain"
	"atlas/internal/service/payment/domain/port"
)

// OutcomeProcessor 把网关通知转换为订单的终态转换。
// 网关至少送达一次且可能乱序，所有副作用都由 MarkStatus 的条件更新守卫：
// 只有真正把尝试从 INITIATED 推进到终态的那次投递才执行副作用。
type OutcomeProcessor struct {
	attempts  domain.AttemptRepository
	orders    port.OrderClient
	inventory port.StockReleaser
	events    port.EventPublisher
	tracer    trace.Tracer
}

func NewOutcomeProcessor(
	attempts domain.AttemptRepository,
	orders port.OrderClient,
	inventory port.StockReleaser,
	events port.EventPublisher,
	tracer trace.Tracer,
) *OutcomeProcessor {
	return &OutcomeProcessor{
		attempts:  attempts,
		orders:    orders,
		inventory: inventory,
		events:    events,
		tracer:    tracer,
	}
}

// Process 处理一条已通过签名校验的通知。
// 返回错误只用于记录与观测，接口层对已认证的通知一律回 200，
// 避免网关反复重投。
func (p *OutcomeProcessor) Process(ctx context.Context, n *domain.Notification) error {
	ctx, span := p.tracer.Start(ctx, "app.ProcessNotification")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification.type", n.Type),
		attribute.String("session.id", n.Session.ID),
	)

	switch n.Type {
	case domain.EventCheckoutCompleted:
		if !n.Paid() {
			// completed 但未付款（例如异步支付方式）：等后续通知
			logger.Ctx(ctx).Info().Str("session_id", n.Session.ID).
				Str("payment_status", n.Session.PaymentStatus).
				Msg("checkout completed without payment, ignoring")
			notificationsTotal.WithLabelValues(n.Type, "ignored").Inc()
			return nil
		}
		return p.finish(ctx, span, n, domain.AttemptSuccess)
	case domain.EventCheckoutExpired, domain.EventPaymentFailed:
		return p.finish(ctx, span, n, domain.AttemptFailed)
	default:
		logger.Ctx(ctx).Info().Str("type", n.Type).Msg("unrecognized notification type, ignoring")
		notificationsTotal.WithLabelValues(n.Type, "ignored").Inc()
		return nil
	}
}

// finish 推进支付尝试到终态，并在首次推进时执行对应的副作用。
func (p *OutcomeProcessor) finish(ctx context.Context, span trace.Span, n *domain.Notification, target domain.AttemptStatus) error {
	sessionID := n.Session.ID

	applied, err := p.attempts.MarkStatus(ctx, sessionID, domain.AttemptInitiated, target)
	if err != nil {
		span.RecordError(err)
		notificationsTotal.WithLabelValues(n.Type, "error").Inc()
		return errors.Wrapf(err, "failed to mark attempt %s as %s", sessionID, target)
	}
	if !applied {
		// 重复投递或乱序投递：查出当前终态，区分空操作与异常
		attempt, err := p.attempts.FindBySessionID(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			notificationsTotal.WithLabelValues(n.Type, "error").Inc()
			return errors.Wrapf(err, "attempt %s not transitioned and not readable", sessionID)
		}
		if attempt.Status == target {
			logger.Ctx(ctx).Info().Str("session_id", sessionID).Str("status", string(target)).
				Msg("notification already processed, skipping")
			notificationsTotal.WithLabelValues(n.Type, "duplicate").Inc()
			return nil
		}
		// 成功与失败通知先后到达同一会话：记录异常，不自动对账
		span.SetStatus(codes.Error, "conflicting notification outcome")
		logger.Ctx(ctx).Error().Str("session_id", sessionID).
			Str("recorded", string(attempt.Status)).Str("incoming", string(target)).
			Msg("conflicting payment outcome for session, manual reconciliation required")
		notificationsTotal.WithLabelValues(n.Type, "conflict").Inc()
		return nil
	}

	orderID := n.Session.Metadata.OrderID
	if orderID == "" {
		attempt, err := p.attempts.FindBySessionID(ctx, sessionID)
		if err != nil {
			notificationsTotal.WithLabelValues(n.Type, "error").Inc()
			return errors.Wrapf(err, "session %s carries no order reference", sessionID)
		}
		orderID = attempt.OrderID
	}
	span.SetAttributes(attribute.String("order.id", orderID))

	if target == domain.AttemptSuccess {
		err = p.confirm(ctx, orderID, sessionID)
	} else {
		err = p.cancel(ctx, orderID, sessionID)
	}
	if err != nil {
		span.RecordError(err)
		notificationsTotal.WithLabelValues(n.Type, "error").Inc()
		return err
	}
	notificationsTotal.WithLabelValues(n.Type, "processed").Inc()
	return nil
}

// confirm 把订单推进到 CONFIRMED。预占在下单时已经扣减，确认即转正，
// 不触碰库存。
func (p *OutcomeProcessor) confirm(ctx context.Context, orderID, sessionID string) error {
	if err := p.orders.SetStatus(ctx, orderID, port.OrderStatusConfirmed); err != nil {
		return errors.Wrapf(err, "failed to confirm order %s", orderID)
	}
	logger.Ctx(ctx).Info().Str("order_id", orderID).Str("session_id", sessionID).Msg("order confirmed")

	if err := p.events.PublishOrderConfirmed(ctx, orderID, sessionID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("failed to publish order.confirmed event")
	}
	return nil
}

// cancel 释放订单的每一个行项并把订单推进到 CANCELLED。
// 释放按行项并发执行、逐项尽力而为：单项失败记日志后继续，
// 不让一个商品的释放失败拖垮整个取消流程。
func (p *OutcomeProcessor) cancel(ctx context.Context, orderID, sessionID string) error {
	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch order %s for cancellation", orderID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range order.Items {
		item := item
		g.Go(func() error {
			if err := p.inventory.Release(gctx, item.ProductID, item.Quantity); err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Str("order_id", orderID).
					Str("product_id", item.ProductID).
					Int64("quantity", item.Quantity).
					Msg("failed to release stock during cancellation, manual reconciliation required")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := p.orders.SetStatus(ctx, orderID, port.OrderStatusCancelled); err != nil {
		return errors.Wrapf(err, "failed to cancel order %s", orderID)
	}
	logger.Ctx(ctx).Info().Str("order_id", orderID).Str("session_id", sessionID).Msg("order cancelled, stock released")

	if err := p.events.PublishOrderCancelled(ctx, orderID, sessionID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", orderID).Msg("failed to publish order.cancelled event")
	}
	return nil
}
