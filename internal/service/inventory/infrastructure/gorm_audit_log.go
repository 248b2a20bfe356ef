// internal/service/inventory/infrastructure/gorm_audit_log.go
package infrastructure

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"atlas/internal/service/inventory/domain"
)

// InventoryLogModel 对应数据库中的 inventory_logs 表。
type InventoryLogModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	ProductID   string `gorm:"size:64;index:idx_product_created,priority:1"`
	Change      int64
	Reason      string `gorm:"size:16"`
	PerformedBy string `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"index:idx_product_created,priority:2,sort:desc"`
}

func (InventoryLogModel) TableName() string {
	return "inventory_logs"
}

// GormAuditLog 是 domain.AuditLog 的 GORM 实现。
type GormAuditLog struct {
	db *gorm.DB
}

func NewGormAuditLog(db *gorm.DB) *GormAuditLog {
	return &GormAuditLog{db: db}
}

func (r *GormAuditLog) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := InventoryLogModel{
		ID:          entry.ID,
		ProductID:   entry.ProductID,
		Change:      entry.Change,
		Reason:      entry.Reason,
		PerformedBy: entry.PerformedBy,
		CreatedAt:   entry.CreatedAt,
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormAuditLog) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.AuditEntry, error) {
	var models []InventoryLogModel
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, domain.AuditEntry{
			ID:          m.ID,
			ProductID:   m.ProductID,
			Change:      m.Change,
			Reason:      m.Reason,
			PerformedBy: m.PerformedBy,
			CreatedAt:   m.CreatedAt,
		})
	}
	return entries, nil
}
