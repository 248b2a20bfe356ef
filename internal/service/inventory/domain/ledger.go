// internal/service/inventory/domain/ledger.go
package domain

import (
	"context"
	"time"
)

// 审计日志的变更原因。
const (
	ReasonInit    = "init"
	ReasonReserve = "reserve"
	ReasonRelease = "release"
	ReasonAdjust  = "adjust"
)

// AuditEntry 是一次库存变更的只追加审计记录。
type AuditEntry struct {
	ID          string
	ProductID   string
	Change      int64 // 带符号的数量变化
	Reason      string
	PerformedBy string // 用户 ID 或 "system"
	CreatedAt   time.Time
}

// StockStore 是库存计数器的出站端口。
// Reserve 必须是服务端原子的检查减操作：并发预占同一商品时，
// 任何两次成功都不可能共同超卖。绝不允许调用方先读后写。
type StockStore interface {
	// Set 创建或重置一个库存记录。
	Set(ctx context.Context, productID string, quantity int64) error

	// Get 返回当前库存，记录不存在时返回 ErrNotInitialized。
	Get(ctx context.Context, productID string) (int64, error)

	// Reserve 原子地检查并扣减库存，成功时返回剩余量。
	// 未初始化返回 ErrNotInitialized，库存不足返回 *InsufficientStockError。
	Reserve(ctx context.Context, productID string, quantity int64) (int64, error)

	// Release 原子地加回库存，返回新库存。是 Reserve 的补偿操作，
	// 必须允许 at-least-once 调用。
	Release(ctx context.Context, productID string, quantity int64) (int64, error)

	// Adjust 原子地应用带符号的增量，负向增量不允许把库存降到零以下。
	Adjust(ctx context.Context, productID string, delta int64) (int64, error)
}

// AuditLog 是审计日志的出站端口。写入失败不回滚库存变更：
// 计数器是库存的事实来源，审计日志只作参考。
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]AuditEntry, error)
}
