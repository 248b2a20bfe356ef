// internal/service/inventory/domain/errors.go
package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidQuantity 表示入参数量不合法（初始化为负、预占/释放非正、调整为零）。
	ErrInvalidQuantity = errors.New("quantity is invalid")

	// ErrNotInitialized 表示该商品的库存记录尚不存在。
	// 库存记录缺失与数量为零是两种不同的状态。
	ErrNotInitialized = errors.New("product inventory not initialized")

	// ErrNegativeStock 表示负向调整会使库存低于零。
	ErrNegativeStock = errors.New("adjustment would result in negative stock")
)

// InsufficientStockError 表示预占数量超过当前库存。
// 携带可用量与请求量，便于调用方向用户反馈。
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}
