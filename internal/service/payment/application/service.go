// internal/service/payment/application/service.go
package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/payment/domain"
	"atlas/internal/service/payment/domain/port"
)

// PaymentApplicationService 负责支付发起与查询。
type PaymentApplicationService struct {
	attempts domain.AttemptRepository
	orders   port.OrderClient
	gateway  port.PaymentGateway
	tracer   trace.Tracer
	currency string
}

func NewPaymentApplicationService(
	attempts domain.AttemptRepository,
	orders port.OrderClient,
	gateway port.PaymentGateway,
	tracer trace.Tracer,
	currency string,
) *PaymentApplicationService {
	return &PaymentApplicationService{
		attempts: attempts,
		orders:   orders,
		gateway:  gateway,
		tracer:   tracer,
		currency: currency,
	}
}

// InitiateCheckout 为一个 PENDING 订单创建托管支付会话。
// 已有 INITIATED 尝试时直接复用，避免同一订单挂出多个有效会话；
// 已有成功尝试则拒绝。
func (s *PaymentApplicationService) InitiateCheckout(ctx context.Context, orderID, userID string) (*domain.PaymentAttempt, error) {
	ctx, span := s.tracer.Start(ctx, "app.InitiateCheckout")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("user.id", userID))

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "failed to fetch order %s", orderID)
	}
	if order.UserID != userID {
		// 不泄露他人订单的存在性
		return nil, domain.ErrOrderNotFound
	}

	existing, err := s.attempts.ListByOrderID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, attempt := range existing {
		switch attempt.Status {
		case domain.AttemptSuccess:
			return nil, domain.ErrAlreadyPaid
		case domain.AttemptInitiated:
			logger.Ctx(ctx).Info().Str("order_id", orderID).Str("session_id", attempt.SessionID).
				Msg("reusing open checkout session")
			return attempt, nil
		}
	}

	if order.Status != port.OrderStatusPending {
		return nil, errors.Wrapf(domain.ErrOrderNotPending, "order %s is %s", orderID, order.Status)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, port.CheckoutRequest{
		OrderID:  orderID,
		UserID:   userID,
		Amount:   order.TotalAmount,
		Currency: s.currency,
	})
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to create checkout session")
	}

	attempt := domain.NewAttempt(session.ID, orderID, userID, order.TotalAmount, s.currency, session.URL)
	if err := s.attempts.Save(ctx, attempt); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to persist payment attempt")
	}

	logger.Ctx(ctx).Info().
		Str("order_id", orderID).
		Str("session_id", session.ID).
		Float64("amount", order.TotalAmount).
		Msg("checkout session created")
	return attempt, nil
}

// AttemptsByOrder 返回某订单的全部支付尝试，新的在前。
// 归属校验：普通用户只能看自己订单的尝试。
func (s *PaymentApplicationService) AttemptsByOrder(ctx context.Context, orderID, userID string, privileged bool) ([]*domain.PaymentAttempt, error) {
	attempts, err := s.attempts.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !privileged {
		for _, attempt := range attempts {
			if attempt.UserID != userID {
				return nil, domain.ErrAttemptNotFound
			}
		}
	}
	return attempts, nil
}
