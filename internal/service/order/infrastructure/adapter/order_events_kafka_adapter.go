package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"atlas/internal/pkg/mq"
	"atlas/internal/service/order/domain"
)

// EventOrderPlaced 是订单创建成功后发布的事件类型。
const EventOrderPlaced = "order.placed"

// OrderEventsKafkaAdapter 把订单事件写入 Kafka，供通知、分析等下游消费。
type OrderEventsKafkaAdapter struct {
	writer *kafka.Writer
}

func NewOrderEventsKafkaAdapter(writer *kafka.Writer) *OrderEventsKafkaAdapter {
	return &OrderEventsKafkaAdapter{writer: writer}
}

type orderEvent struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"orderId"`
	UserID      string            `json:"userId"`
	TotalAmount float64           `json:"totalAmount"`
	Status      string            `json:"status"`
	Items       []domain.LineItem `json:"items"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

func (a *OrderEventsKafkaAdapter) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	event := orderEvent{
		Type:        EventOrderPlaced,
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		Items:       order.Items,
		OccurredAt:  time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// 以订单 ID 作为分区键，同一订单的事件保持有序。
	return mq.ProduceMessage(ctx, a.writer, []byte(order.ID), payload)
}
