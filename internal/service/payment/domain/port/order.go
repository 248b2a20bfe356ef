package port

import "context"

// 订单服务状态机中与支付相关的取值。
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// OrderItem 是订单行项在支付视角下的最小投影，取消时据此逐项释放库存。
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// OrderSnapshot 是从订单服务取回的订单快照。
type OrderSnapshot struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
}

// OrderClient 是订单服务的出站端口。
// SetStatus 走订单服务的条件更新，重复设置同一终态是安全的空操作。
type OrderClient interface {
	GetOrder(ctx context.Context, orderID string) (*OrderSnapshot, error)
	SetStatus(ctx context.Context, orderID, status string) error
}
