// internal/service/order/domain/order.go
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// LineItem 是订单中的一行商品。
// PriceSnapshot 是下单时刻从商品目录取到的单价，冻结进订单，
// 之后目录价格变动不影响已创建的订单。
type LineItem struct {
	ProductID     string  `json:"productId"`
	Quantity      int64   `json:"quantity"`
	PriceSnapshot float64 `json:"priceSnapshot"`
}

// Order 是订单聚合的根实体。
type Order struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ItemRequest 是创建订单时调用方给出的原始条目（尚未定价）。
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// ValidateItems 校验订单条目。失败时调用方不得产生任何副作用。
func ValidateItems(userID string, items []ItemRequest) error {
	if userID == "" {
		return ErrInvalidOrder
	}
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			return ErrInvalidOrder
		}
	}
	return nil
}

// NewOrder 用已定价的条目构建一个新订单。总价为各行快照价×数量之和，
// 四舍五入到两位小数。
func NewOrder(userID string, items []LineItem) *Order {
	now := time.Now()
	return &Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		Items:       items,
		TotalAmount: ComputeTotal(items),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ComputeTotal 计算条目总价，保留两位小数。
func ComputeTotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.PriceSnapshot * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}
