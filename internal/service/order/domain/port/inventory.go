package port

import "context"

// InventoryService 是库存台账的出站端口。
type InventoryService interface {
	// Reserve 为单个商品预占库存。库存不足时返回 *domain.InsufficientStockError，
	// 记录缺失时返回 domain.ErrStockNotInitialized，保留原始错误种类。
	Reserve(ctx context.Context, productID string, quantity int64, userID string) error

	// Release 是 Reserve 的补偿操作。编排器保证对每次成功的预占
	// 恰好调用一次：Release 本身不是幂等的。
	Release(ctx context.Context, productID string, quantity int64, actor string) error
}
