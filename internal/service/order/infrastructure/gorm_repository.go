package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"atlas/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 在一个事务里写入订单与全部条目。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(toOrderModel(order)).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}

	var models []OrderModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toDomainOrder(&models[i]))
	}
	return orders, nil
}

// UpdateStatus 以 WHERE status = ? 做条件更新，把转换守卫下推到数据库，
// 两个并发的终态转换至多一个能命中行。
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
