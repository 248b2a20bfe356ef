package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"atlas/internal/service/payment/domain"
	"atlas/internal/service/payment/domain/port"
)

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*domain.PaymentAttempt
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]*domain.PaymentAttempt)}
}

func (f *fakeAttempts) Save(_ context.Context, attempt *domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[attempt.SessionID] = attempt
	return nil
}

func (f *fakeAttempts) FindBySessionID(_ context.Context, sessionID string) (*domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[sessionID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttempts) ListByOrderID(_ context.Context, orderID string) ([]*domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PaymentAttempt
	for _, a := range f.attempts {
		if a.OrderID == orderID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeAttempts) MarkStatus(_ context.Context, sessionID string, from, to domain.AttemptStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[sessionID]
	if !ok || attempt.Status != from {
		return false, nil
	}
	attempt.Status = to
	return true, nil
}

// fakeOrders 记录状态转换次数，模拟订单侧的条件更新语义。
type fakeOrders struct {
	mu          sync.Mutex
	snapshot    *port.OrderSnapshot
	transitions []string
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (*port.OrderSnapshot, error) {
	if f.snapshot == nil || f.snapshot.ID != orderID {
		return nil, domain.ErrOrderNotFound
	}
	copied := *f.snapshot
	return &copied, nil
}

func (f *fakeOrders) SetStatus(_ context.Context, orderID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, status)
	f.snapshot.Status = status
	return nil
}

type fakeReleaser struct {
	mu       sync.Mutex
	released map[string]int64
}

func newFakeReleaser() *fakeReleaser {
	return &fakeReleaser{released: make(map[string]int64)}
}

func (f *fakeReleaser) Release(_ context.Context, productID string, quantity int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[productID] += quantity
	return nil
}

type nopEvents struct{}

func (nopEvents) PublishOrderConfirmed(context.Context, string, string) error { return nil }
func (nopEvents) PublishOrderCancelled(context.Context, string, string) error { return nil }

func successNotification(sessionID, orderID string) *domain.Notification {
	return &domain.Notification{
		Type: domain.EventCheckoutCompleted,
		Session: domain.CheckoutObject{
			ID:            sessionID,
			PaymentStatus: domain.PaymentStatusPaid,
			Metadata:      domain.CheckoutObjectMeta{OrderID: orderID, UserID: "user-1"},
		},
	}
}

func failureNotification(sessionID, orderID string) *domain.Notification {
	return &domain.Notification{
		Type: domain.EventCheckoutExpired,
		Session: domain.CheckoutObject{
			ID:       sessionID,
			Metadata: domain.CheckoutObjectMeta{OrderID: orderID, UserID: "user-1"},
		},
	}
}

func setup(t *testing.T) (*fakeAttempts, *fakeOrders, *fakeReleaser, *OutcomeProcessor) {
	t.Helper()
	attempts := newFakeAttempts()
	orders := &fakeOrders{snapshot: &port.OrderSnapshot{
		ID:     "order-1",
		UserID: "user-1",
		Status: port.OrderStatusPending,
		Items: []port.OrderItem{
			{ProductID: "A", Quantity: 3},
			{ProductID: "B", Quantity: 2},
		},
	}}
	releaser := newFakeReleaser()
	processor := NewOutcomeProcessor(attempts, orders, releaser, nopEvents{}, otel.Tracer("test"))

	require.NoError(t, attempts.Save(context.Background(),
		domain.NewAttempt("sess-1", "order-1", "user-1", 35, "usd", "")))
	return attempts, orders, releaser, processor
}

// 重复投递成功通知：恰好一次 CONFIRMED 转换，库存不被触碰。
func TestDuplicateSuccessNotificationAppliesOnce(t *testing.T) {
	ctx := context.Background()
	attempts, orders, releaser, processor := setup(t)

	require.NoError(t, processor.Process(ctx, successNotification("sess-1", "order-1")))
	require.NoError(t, processor.Process(ctx, successNotification("sess-1", "order-1")))

	assert.Equal(t, []string{port.OrderStatusConfirmed}, orders.transitions)
	assert.Empty(t, releaser.released)

	attempt, err := attempts.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptSuccess, attempt.Status)
}

// 取消恰好释放订单的各行项一次，与投递次数无关。
func TestCancellationReleasesOrderItemsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	attempts, orders, releaser, processor := setup(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, processor.Process(ctx, failureNotification("sess-1", "order-1")))
	}

	assert.Equal(t, []string{port.OrderStatusCancelled}, orders.transitions)
	assert.Equal(t, map[string]int64{"A": 3, "B": 2}, releaser.released)

	attempt, err := attempts.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptFailed, attempt.Status)
}

// 失败之后到达的成功通知是异常：记录后跳过，不重新确认已取消的订单。
func TestSuccessAfterFailureIsNotReconciled(t *testing.T) {
	ctx := context.Background()
	attempts, orders, releaser, processor := setup(t)

	require.NoError(t, processor.Process(ctx, failureNotification("sess-1", "order-1")))
	require.NoError(t, processor.Process(ctx, successNotification("sess-1", "order-1")))

	assert.Equal(t, []string{port.OrderStatusCancelled}, orders.transitions)
	assert.Equal(t, map[string]int64{"A": 3, "B": 2}, releaser.released)

	attempt, err := attempts.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptFailed, attempt.Status)
}

func TestUnknownNotificationTypeIgnored(t *testing.T) {
	ctx := context.Background()
	attempts, orders, releaser, processor := setup(t)

	n := &domain.Notification{Type: "invoice.created", Session: domain.CheckoutObject{ID: "sess-1"}}
	require.NoError(t, processor.Process(ctx, n))

	assert.Empty(t, orders.transitions)
	assert.Empty(t, releaser.released)
	attempt, err := attempts.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptInitiated, attempt.Status)
}

// completed 但 payment_status 不是 paid：等待后续通知，不做任何转换。
func TestCompletedWithoutPaymentIsIgnored(t *testing.T) {
	ctx := context.Background()
	attempts, orders, _, processor := setup(t)

	n := successNotification("sess-1", "order-1")
	n.Session.PaymentStatus = "unpaid"
	require.NoError(t, processor.Process(ctx, n))

	assert.Empty(t, orders.transitions)
	attempt, err := attempts.FindBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptInitiated, attempt.Status)
}

// 并发投递同一通知：恰好一次转换拿到副作用。
func TestConcurrentDeliveriesApplyOnce(t *testing.T) {
	ctx := context.Background()
	_, orders, releaser, processor := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = processor.Process(ctx, failureNotification("sess-1", "order-1"))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{port.OrderStatusCancelled}, orders.transitions)
	assert.Equal(t, map[string]int64{"A": 3, "B": 2}, releaser.released)
}
