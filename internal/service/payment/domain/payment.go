// internal/service/payment/domain/payment.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus 定义了支付尝试的状态。
// INITIATED 是唯一的非终态，终态变更必须走仓储的条件更新。
type AttemptStatus string

const (
	AttemptInitiated AttemptStatus = "INITIATED"
	AttemptSuccess   AttemptStatus = "SUCCESS"
	AttemptFailed    AttemptStatus = "FAILED"
)

// PaymentAttempt 记录一次托管支付流程，以网关会话 ID 为幂等键。
// 网关的通知至少送达一次且可能乱序，终态一经写入不再变更。
type PaymentAttempt struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId"`
	OrderID     string        `json:"orderId"`
	UserID      string        `json:"userId"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Status      AttemptStatus `json:"status"`
	CheckoutURL string        `json:"checkoutUrl,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NewAttempt 创建一条 INITIATED 状态的支付尝试。
func NewAttempt(sessionID, orderID, userID string, amount float64, currency, checkoutURL string) *PaymentAttempt {
	now := time.Now()
	return &PaymentAttempt{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		OrderID:     orderID,
		UserID:      userID,
		Amount:      amount,
		Currency:    currency,
		Status:      AttemptInitiated,
		CheckoutURL: checkoutURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
