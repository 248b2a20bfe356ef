package infrastructure

import (
	"time"

	"atlas/internal/service/order/domain"
)

// OrderModel 对应数据库中的 orders 表。
type OrderModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"size:64;index"`
	TotalAmount float64 `gorm:"type:decimal(12,2)"`
	Status      string  `gorm:"size:16;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表。
type OrderItemModel struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	OrderID       string `gorm:"size:36;index"`
	ProductID     string `gorm:"size:64"`
	Quantity      int64
	PriceSnapshot float64 `gorm:"type:decimal(12,2)"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

func toOrderModel(order *domain.Order) *OrderModel {
	model := &OrderModel{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		model.Items = append(model.Items, OrderItemModel{
			OrderID:       order.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			PriceSnapshot: item.PriceSnapshot,
		})
	}
	return model
}

func toDomainOrder(model *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:          model.ID,
		UserID:      model.UserID,
		TotalAmount: model.TotalAmount,
		Status:      domain.Status(model.Status),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	for _, item := range model.Items {
		order.Items = append(order.Items, domain.LineItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			PriceSnapshot: item.PriceSnapshot,
		})
	}
	return order
}
