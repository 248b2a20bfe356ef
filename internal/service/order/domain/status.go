// internal/service/order/domain/status.go
package domain

// Status 定义了订单的生命周期状态。
type Status string

const (
	StatusPending   Status = "PENDING"   // 库存已预占，等待支付结果
	StatusConfirmed Status = "CONFIRMED" // 支付成功，预占转为正式扣减（终态）
	StatusCancelled Status = "CANCELLED" // 支付失败或过期，库存已释放（终态）
	StatusFailed    Status = "FAILED"    // 保留给编排内部的持久化故障（终态）
)

// IsTerminal 判断状态是否为终态。订单至多进入终态一次。
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusFailed
}

// ValidStatus 校验外部传入的状态值。
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusFailed:
		return true
	}
	return false
}
