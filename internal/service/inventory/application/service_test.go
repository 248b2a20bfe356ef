package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"atlas/internal/service/inventory/domain"
)

type fakeStore struct {
	stock map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{stock: make(map[string]int64)}
}

func (f *fakeStore) Set(_ context.Context, productID string, quantity int64) error {
	f.stock[productID] = quantity
	return nil
}

func (f *fakeStore) Get(_ context.Context, productID string) (int64, error) {
	current, ok := f.stock[productID]
	if !ok {
		return 0, domain.ErrNotInitialized
	}
	return current, nil
}

func (f *fakeStore) Reserve(_ context.Context, productID string, quantity int64) (int64, error) {
	current, ok := f.stock[productID]
	if !ok {
		return 0, domain.ErrNotInitialized
	}
	if current < quantity {
		return 0, &domain.InsufficientStockError{ProductID: productID, Available: current, Requested: quantity}
	}
	f.stock[productID] = current - quantity
	return f.stock[productID], nil
}

func (f *fakeStore) Release(_ context.Context, productID string, quantity int64) (int64, error) {
	if _, ok := f.stock[productID]; !ok {
		return 0, domain.ErrNotInitialized
	}
	f.stock[productID] += quantity
	return f.stock[productID], nil
}

func (f *fakeStore) Adjust(_ context.Context, productID string, delta int64) (int64, error) {
	current, ok := f.stock[productID]
	if !ok {
		return 0, domain.ErrNotInitialized
	}
	if current+delta < 0 {
		return 0, domain.ErrNegativeStock
	}
	f.stock[productID] = current + delta
	return f.stock[productID], nil
}

type fakeAudit struct {
	entries []domain.AuditEntry
	err     error
}

func (f *fakeAudit) Append(_ context.Context, entry domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListByProduct(_ context.Context, productID string, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range f.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestService(store domain.StockStore, audit domain.AuditLog) *LedgerService {
	return NewLedgerService(store, audit, otel.Tracer("test"))
}

func TestInitializeRejectsNegativeQuantity(t *testing.T) {
	store := newFakeStore()
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	_, err := svc.Initialize(context.Background(), "p1", -1, "admin")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Empty(t, store.stock)
	assert.Empty(t, audit.entries)
}

func TestReserveWritesAuditTrail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	_, err := svc.Initialize(ctx, "p1", 10, "admin")
	require.NoError(t, err)

	remaining, err := svc.Reserve(ctx, "p1", 4, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), remaining)

	require.Len(t, audit.entries, 2)
	reserve := audit.entries[1]
	assert.Equal(t, int64(-4), reserve.Change)
	assert.Equal(t, domain.ReasonReserve, reserve.Reason)
	assert.Equal(t, "user-1", reserve.PerformedBy)
}

func TestReserveInvalidQuantityHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	_, err := svc.Initialize(ctx, "p1", 10, "admin")
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "p1", 0, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Reserve(ctx, "p1", -3, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	assert.Equal(t, int64(10), store.stock["p1"])
	assert.Len(t, audit.entries, 1) // 只有 init 一条
}

// 审计写入失败不回滚计数器：计数器才是库存的事实来源。
func TestAuditFailureDoesNotRollBackCounter(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	audit := &fakeAudit{err: errors.New("audit db down")}
	svc := newTestService(store, audit)

	_, err := svc.Initialize(ctx, "p1", 10, "admin")
	require.NoError(t, err)

	remaining, err := svc.Reserve(ctx, "p1", 4, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), remaining)
	assert.Equal(t, int64(6), store.stock["p1"])
}

func TestReleaseRestoresStock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	_, err := svc.Initialize(ctx, "p1", 5, "admin")
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, "p1", 5, "user-1")
	require.NoError(t, err)

	current, err := svc.Release(ctx, "p1", 5, "order-service")
	require.NoError(t, err)
	assert.Equal(t, int64(5), current)

	release := audit.entries[len(audit.entries)-1]
	assert.Equal(t, int64(5), release.Change)
	assert.Equal(t, domain.ReasonRelease, release.Reason)
	assert.Equal(t, "order-service", release.PerformedBy)
}
