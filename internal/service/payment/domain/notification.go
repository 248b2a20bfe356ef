// internal/service/payment/domain/notification.go
package domain

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// 网关通知的事件类型。completed 需要结合 payment_status 判断是否已付款，
// expired 与 payment_failed 都走取消分支，其余类型记日志后忽略。
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"

	PaymentStatusPaid = "paid"
)

// Notification 是解析后的网关通知。
type Notification struct {
	Type    string
	Session CheckoutObject
}

// CheckoutObject 是通知载荷中的会话对象。
// Metadata 由发起结账时写入，把会话关联回订单。
type CheckoutObject struct {
	ID            string             `json:"id"`
	PaymentStatus string             `json:"payment_status"`
	Metadata      CheckoutObjectMeta `json:"metadata"`
}

type CheckoutObjectMeta struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

type notificationEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Object CheckoutObject `json:"object"`
	} `json:"data"`
}

// ParseNotification 解析已通过签名校验的通知体。
func ParseNotification(payload []byte) (*Notification, error) {
	var env notificationEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Wrap(err, "malformed notification payload")
	}
	if env.Type == "" || env.Data.Object.ID == "" {
		return nil, errors.New("notification missing type or session id")
	}
	return &Notification{Type: env.Type, Session: env.Data.Object}, nil
}

// Paid 判断一条 completed 通知是否确认已付款。
func (n *Notification) Paid() bool {
	return n.Type == EventCheckoutCompleted && n.Session.PaymentStatus == PaymentStatusPaid
}
