package application

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"atlas/internal/service/order/domain"
	"atlas/internal/service/order/domain/port"
)

type fakeCatalog struct {
	prices map[string]float64
	err    error
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*port.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	price, ok := f.prices[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &port.Product{ID: productID, Name: "product " + productID, Price: price}, nil
}

// fakeInventory 记录每一次预占与释放，并可对指定商品注入失败。
type fakeInventory struct {
	mu       sync.Mutex
	stock    map[string]int64
	reserves []string
	releases []string
	failOn   string
	failWith error
}

func newFakeInventory(stock map[string]int64) *fakeInventory {
	return &fakeInventory{stock: stock}
}

func (f *fakeInventory) Reserve(_ context.Context, productID string, quantity int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if productID == f.failOn {
		return f.failWith
	}
	current, ok := f.stock[productID]
	if !ok {
		return domain.ErrStockNotInitialized
	}
	if current < quantity {
		return &domain.InsufficientStockError{ProductID: productID, Available: current, Requested: quantity}
	}
	f.stock[productID] = current - quantity
	f.reserves = append(f.reserves, productID)
	return nil
}

func (f *fakeInventory) Release(_ context.Context, productID string, quantity int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[productID] += quantity
	f.releases = append(f.releases, productID)
	return nil
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	saveErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) List(_ context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Order
	for _, o := range f.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, from, to domain.Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

type nopEvents struct{}

func (nopEvents) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }

func newOrderService(repo domain.OrderRepository, catalog port.CatalogService, inventory port.InventoryService) *OrderApplicationService {
	return NewOrderApplicationService(repo, otel.Tracer("test"), catalog, inventory, nopEvents{})
}

func TestCreateOrderSuccess(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10, "p2": 2.5}}
	inventory := newFakeInventory(map[string]int64{"p1": 5, "p2": 5})
	repo := newFakeOrderRepo()
	svc := newOrderService(repo, catalog, inventory)

	order, err := svc.CreateOrder(ctx, "user-1", []domain.ItemRequest{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, 35.0, order.TotalAmount)
	assert.Equal(t, int64(2), inventory.stock["p1"])
	assert.Equal(t, int64(3), inventory.stock["p2"])
	assert.Empty(t, inventory.releases)

	saved, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, saved.Items[0].PriceSnapshot)
}

// 第 k 项预占失败时，此前成功的预占各释放恰好一次，订单不落库。
func TestCreateOrderCompensatesOnMidSagaFailure(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10, "p2": 2.5, "p3": 1}}
	inventory := newFakeInventory(map[string]int64{"p1": 5, "p2": 5, "p3": 0})
	repo := newFakeOrderRepo()
	svc := newOrderService(repo, catalog, inventory)

	_, err := svc.CreateOrder(ctx, "user-1", []domain.ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p3", Quantity: 1},
	})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "p3", insufficient.ProductID)

	// 净库存变化为零
	assert.Equal(t, int64(5), inventory.stock["p1"])
	assert.Equal(t, int64(5), inventory.stock["p2"])
	// 释放次数 == 成功预占次数，且只释放失败项之前的条目
	assert.ElementsMatch(t, []string{"p1", "p2"}, inventory.releases)
	assert.Empty(t, repo.orders)
}

func TestCreateOrderCatalogFailureReservesNothing(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10}}
	inventory := newFakeInventory(map[string]int64{"p1": 5})
	repo := newFakeOrderRepo()
	svc := newOrderService(repo, catalog, inventory)

	_, err := svc.CreateOrder(ctx, "user-1", []domain.ItemRequest{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	// 定价在任何预占之前完成，失败时没有任何库存变更
	assert.Empty(t, inventory.reserves)
	assert.Empty(t, inventory.releases)
	assert.Empty(t, repo.orders)
}

func TestCreateOrderPersistFailureReleasesEverything(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10, "p2": 2.5}}
	inventory := newFakeInventory(map[string]int64{"p1": 5, "p2": 5})
	repo := newFakeOrderRepo()
	repo.saveErr = errors.New("mysql gone away")
	svc := newOrderService(repo, catalog, inventory)

	_, err := svc.CreateOrder(ctx, "user-1", []domain.ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 3},
	})

	// 存储故障对调用方收敛为 ErrSagaFailed，不泄露底层原因
	assert.ErrorIs(t, err, domain.ErrSagaFailed)
	assert.Equal(t, int64(5), inventory.stock["p1"])
	assert.Equal(t, int64(5), inventory.stock["p2"])
	assert.ElementsMatch(t, []string{"p1", "p2"}, inventory.releases)
}

func TestCreateOrderInvalidInputHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	catalog := &fakeCatalog{prices: map[string]float64{"p1": 10}}
	inventory := newFakeInventory(map[string]int64{"p1": 5})
	repo := newFakeOrderRepo()
	svc := newOrderService(repo, catalog, inventory)

	_, err := svc.CreateOrder(ctx, "user-1", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	_, err = svc.CreateOrder(ctx, "user-1", []domain.ItemRequest{{ProductID: "p1", Quantity: -1}})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	assert.Empty(t, inventory.reserves)
	assert.Empty(t, inventory.releases)
	assert.Empty(t, repo.orders)
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOrderRepo()
	order := domain.NewOrder("owner", []domain.LineItem{{ProductID: "p1", Quantity: 1, PriceSnapshot: 1}})
	require.NoError(t, repo.Save(ctx, order))
	svc := newOrderService(repo, &fakeCatalog{}, newFakeInventory(nil))

	got, err := svc.GetOrder(ctx, order.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// 他人订单表现为不存在，而不是 403
	_, err = svc.GetOrder(ctx, order.ID, "intruder")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusIdempotentAndConflicting(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOrderRepo()
	order := domain.NewOrder("user-1", []domain.LineItem{{ProductID: "p1", Quantity: 1, PriceSnapshot: 1}})
	require.NoError(t, repo.Save(ctx, order))
	svc := newOrderService(repo, &fakeCatalog{}, newFakeInventory(nil))

	updated, err := svc.UpdateStatus(ctx, order.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	// 同一终态的重复应用是空操作
	updated, err = svc.UpdateStatus(ctx, order.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	// 与已有终态冲突的转换被拒绝
	_, err = svc.UpdateStatus(ctx, order.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}
