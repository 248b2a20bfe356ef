// internal/service/order/domain/errors.go
package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyOrder   = errors.New("order must contain at least one item")
	ErrInvalidOrder = errors.New("each item must have a productId and positive quantity")

	// ErrProductNotFound 表示商品目录中不存在该商品。
	ErrProductNotFound = errors.New("product not found")

	// ErrStockNotInitialized 表示库存台账中不存在该商品的记录。
	ErrStockNotInitialized = errors.New("product inventory not initialized")

	ErrOrderNotFound = errors.New("order not found")

	// ErrStatusConflict 表示订单已处于另一个终态，拒绝本次状态变更。
	ErrStatusConflict = errors.New("order already in a conflicting terminal status")

	// ErrSagaFailed 表示预占全部成功后持久化失败。返回给调用方之前，
	// 编排器保证所有已预占的库存均已触发补偿释放。调用方不应盲目重试。
	ErrSagaFailed = errors.New("order creation failed, reserved inventory rolled back")
)

// InsufficientStockError 镜像库存服务的同名冲突，向上保留可用量信息，
// 让用户看到的是"哪个商品、还剩多少"，而不是一个笼统的失败。
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}
