package port

import "context"

// StockReleaser 向库存台账归还预占。释放本身不幂等，
// 调用方必须保证同一笔预占至多释放一次。
type StockReleaser interface {
	Release(ctx context.Context, productID string, quantity int64) error
}
