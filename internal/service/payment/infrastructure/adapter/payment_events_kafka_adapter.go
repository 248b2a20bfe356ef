package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"atlas/internal/pkg/mq"
)

// 支付结果事件类型。
const (
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
)

// PaymentEventsKafkaAdapter 把支付结果事件写入 Kafka。
type PaymentEventsKafkaAdapter struct {
	writer *kafka.Writer
}

func NewPaymentEventsKafkaAdapter(writer *kafka.Writer) *PaymentEventsKafkaAdapter {
	return &PaymentEventsKafkaAdapter{writer: writer}
}

type outcomeEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	SessionID  string    `json:"sessionId"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (a *PaymentEventsKafkaAdapter) PublishOrderConfirmed(ctx context.Context, orderID, sessionID string) error {
	return a.publish(ctx, EventOrderConfirmed, orderID, sessionID)
}

func (a *PaymentEventsKafkaAdapter) PublishOrderCancelled(ctx context.Context, orderID, sessionID string) error {
	return a.publish(ctx, EventOrderCancelled, orderID, sessionID)
}

func (a *PaymentEventsKafkaAdapter) publish(ctx context.Context, eventType, orderID, sessionID string) error {
	payload, err := json.Marshal(outcomeEvent{
		Type:       eventType,
		OrderID:    orderID,
		SessionID:  sessionID,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}
	// 与下单事件共用分区键，同一订单的事件保持有序。
	return mq.ProduceMessage(ctx, a.writer, []byte(orderID), payload)
}
