// internal/service/payment/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"atlas/internal/service/payment/domain"
)

// PaymentAttemptModel 对应数据库中的 payment_attempts 表。
// session_id 上的唯一索引保证同一网关会话只有一条记录，
// 幂等守卫的条件更新就落在这条记录上。
type PaymentAttemptModel struct {
	ID          string  `gorm:"primaryKey;size:36"`
	SessionID   string  `gorm:"size:128;uniqueIndex"`
	OrderID     string  `gorm:"size:36;index"`
	UserID      string  `gorm:"size:64"`
	Amount      float64 `gorm:"type:decimal(12,2)"`
	Currency    string  `gorm:"size:8"`
	Status      string  `gorm:"size:16"`
	CheckoutURL string  `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PaymentAttemptModel) TableName() string {
	return "payment_attempts"
}

// GormAttemptRepository 是 domain.AttemptRepository 的 GORM 实现。
type GormAttemptRepository struct {
	db *gorm.DB
}

func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

func (r *GormAttemptRepository) Save(ctx context.Context, attempt *domain.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(toAttemptModel(attempt)).Error
}

func (r *GormAttemptRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.PaymentAttempt, error) {
	var model PaymentAttemptModel
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAttemptNotFound
		}
		return nil, err
	}
	return toDomainAttempt(&model), nil
}

func (r *GormAttemptRepository) ListByOrderID(ctx context.Context, orderID string) ([]*domain.PaymentAttempt, error) {
	var models []PaymentAttemptModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]*domain.PaymentAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, toDomainAttempt(&models[i]))
	}
	return attempts, nil
}

// MarkStatus 以 WHERE status = ? 做条件更新。两次并发投递同一通知时，
// 至多一次命中行并返回 true。
func (r *GormAttemptRepository) MarkStatus(ctx context.Context, sessionID string, from, to domain.AttemptStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&PaymentAttemptModel{}).
		Where("session_id = ? AND status = ?", sessionID, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func toAttemptModel(attempt *domain.PaymentAttempt) *PaymentAttemptModel {
	return &PaymentAttemptModel{
		ID:          attempt.ID,
		SessionID:   attempt.SessionID,
		OrderID:     attempt.OrderID,
		UserID:      attempt.UserID,
		Amount:      attempt.Amount,
		Currency:    attempt.Currency,
		Status:      string(attempt.Status),
		CheckoutURL: attempt.CheckoutURL,
		CreatedAt:   attempt.CreatedAt,
		UpdatedAt:   attempt.UpdatedAt,
	}
}

func toDomainAttempt(model *PaymentAttemptModel) *domain.PaymentAttempt {
	return &domain.PaymentAttempt{
		ID:          model.ID,
		SessionID:   model.SessionID,
		OrderID:     model.OrderID,
		UserID:      model.UserID,
		Amount:      model.Amount,
		Currency:    model.Currency,
		Status:      domain.AttemptStatus(model.Status),
		CheckoutURL: model.CheckoutURL,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
