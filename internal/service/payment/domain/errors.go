// internal/service/payment/domain/errors.go
package domain

import "github.com/pkg/errors"

var (
	ErrAttemptNotFound = errors.New("payment attempt not found")

	// ErrOrderNotFound 表示订单服务中不存在该订单。
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotPending 表示订单不处于可发起支付的状态。
	ErrOrderNotPending = errors.New("order is not pending payment")

	// ErrAlreadyPaid 表示该订单已有一次成功的支付尝试。
	ErrAlreadyPaid = errors.New("order already paid")
)
