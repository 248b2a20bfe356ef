// internal/service/order/domain/repository.go
package domain

import "context"

// ListFilter 约束订单列表查询。
type ListFilter struct {
	UserID string
	Status Status
}

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
type OrderRepository interface {
	// Save 持久化一个新订单及其全部条目。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单，未找到返回 ErrOrderNotFound。
	FindByID(ctx context.Context, id string) (*Order, error)

	// List 按过滤条件查询订单，按创建时间倒序。
	List(ctx context.Context, filter ListFilter) ([]*Order, error)

	// UpdateStatus 是条件状态更新：仅当当前状态等于 from 时写入 to。
	// 返回是否实际发生了写入。两次并发的终态转换至多一次成功。
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}
