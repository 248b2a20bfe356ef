// internal/service/inventory/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/inventory/domain"
)

// LedgerService 是库存台账的应用服务。
// 所有库存变更都经由这里：先走计数器的原子原语，再同步追加审计记录。
type LedgerService struct {
	store  domain.StockStore
	audit  domain.AuditLog
	tracer trace.Tracer
}

func NewLedgerService(store domain.StockStore, audit domain.AuditLog, tracer trace.Tracer) *LedgerService {
	return &LedgerService{store: store, audit: audit, tracer: tracer}
}

// Initialize 创建或重置一个商品的库存记录。quantity 允许为零。
func (s *LedgerService) Initialize(ctx context.Context, productID string, quantity int64, actor string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Initialize")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int64("quantity", quantity))

	if quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}

	if err := s.store.Set(ctx, productID, quantity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set stock")
		return 0, err
	}

	s.appendAudit(ctx, productID, quantity, domain.ReasonInit, actor)
	return quantity, nil
}

// GetStock 返回当前库存。
func (s *LedgerService) GetStock(ctx context.Context, productID string) (int64, error) {
	return s.store.Get(ctx, productID)
}

// Reserve 原子地预占库存，返回剩余量。
// 这是真正存在竞争的操作：并发下的检查与扣减由存储端一次完成。
func (s *LedgerService) Reserve(ctx context.Context, productID string, quantity int64, actor string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Reserve")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int64("quantity", quantity))

	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	remaining, err := s.store.Reserve(ctx, productID, quantity)
	if err != nil {
		span.RecordError(err)
		reserveTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return 0, err
	}

	reserveTotal.WithLabelValues("success").Inc()
	s.appendAudit(ctx, productID, -quantity, domain.ReasonReserve, actor)
	return remaining, nil
}

// Release 加回库存。作为补偿操作，调用方可能在未观察到预占结果时重试，
// 因此这里不做任何幂等保护，次数控制是调用方的责任。
func (s *LedgerService) Release(ctx context.Context, productID string, quantity int64, actor string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Release")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int64("quantity", quantity))

	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	current, err := s.store.Release(ctx, productID, quantity)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.appendAudit(ctx, productID, quantity, domain.ReasonRelease, actor)
	return current, nil
}

// Adjust 应用带符号的库存调整，负向调整不允许击穿零。
func (s *LedgerService) Adjust(ctx context.Context, productID string, delta int64, actor, reason string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Adjust")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int64("delta", delta))

	if delta == 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if reason == "" {
		reason = domain.ReasonAdjust
	}

	current, err := s.store.Adjust(ctx, productID, delta)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	s.appendAudit(ctx, productID, delta, reason, actor)
	return current, nil
}

// Movements 返回一个商品最近的审计记录。
func (s *LedgerService) Movements(ctx context.Context, productID string, limit int) ([]domain.AuditEntry, error) {
	return s.audit.ListByProduct(ctx, productID, limit)
}

// appendAudit 追加一条审计记录。计数器才是库存的事实来源，
// 审计写入失败只记日志，不回滚已生效的变更。
func (s *LedgerService) appendAudit(ctx context.Context, productID string, change int64, reason, actor string) {
	if actor == "" {
		actor = "system"
	}
	entry := domain.AuditEntry{
		ID:          uuid.New().String(),
		ProductID:   productID,
		Change:      change,
		Reason:      reason,
		PerformedBy: actor,
		CreatedAt:   time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("product_id", productID).
			Int64("change", change).
			Str("reason", reason).
			Msg("failed to append inventory audit entry")
	}
}
