package port

import "context"

// CheckoutRequest 描述发起一次托管支付流程所需的信息。
// OrderID/UserID 会写进会话元数据，异步通知依赖它们找回订单。
type CheckoutRequest struct {
	OrderID  string
	UserID   string
	Amount   float64
	Currency string
}

// CheckoutSession 是网关创建的托管支付会话。
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentGateway 是外部支付网关的出站端口。
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}
