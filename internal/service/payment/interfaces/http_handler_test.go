package interfaces

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"atlas/internal/service/payment/application"
	"atlas/internal/service/payment/domain"
	"atlas/internal/service/payment/domain/port"
)

const testSecret = "whsec_test"

type memAttempts struct {
	attempts map[string]*domain.PaymentAttempt
}

func (m *memAttempts) Save(_ context.Context, a *domain.PaymentAttempt) error {
	m.attempts[a.SessionID] = a
	return nil
}

func (m *memAttempts) FindBySessionID(_ context.Context, sessionID string) (*domain.PaymentAttempt, error) {
	a, ok := m.attempts[sessionID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (m *memAttempts) ListByOrderID(_ context.Context, orderID string) ([]*domain.PaymentAttempt, error) {
	var out []*domain.PaymentAttempt
	for _, a := range m.attempts {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAttempts) MarkStatus(_ context.Context, sessionID string, from, to domain.AttemptStatus) (bool, error) {
	a, ok := m.attempts[sessionID]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

type memOrders struct {
	status string
}

func (m *memOrders) GetOrder(context.Context, string) (*port.OrderSnapshot, error) {
	return &port.OrderSnapshot{ID: "order-1", UserID: "user-1", Status: m.status}, nil
}

func (m *memOrders) SetStatus(_ context.Context, _, status string) error {
	m.status = status
	return nil
}

type memReleaser struct{}

func (memReleaser) Release(context.Context, string, int64) error { return nil }

type memEvents struct{}

func (memEvents) PublishOrderConfirmed(context.Context, string, string) error { return nil }
func (memEvents) PublishOrderCancelled(context.Context, string, string) error { return nil }

func newWebhookHandler(t *testing.T) (*PaymentHandler, *memAttempts, *memOrders) {
	t.Helper()
	attempts := &memAttempts{attempts: make(map[string]*domain.PaymentAttempt)}
	attempts.attempts["sess-1"] = domain.NewAttempt("sess-1", "order-1", "user-1", 35, "usd", "")
	orders := &memOrders{status: port.OrderStatusPending}

	tracer := otel.Tracer("test")
	processor := application.NewOutcomeProcessor(attempts, orders, memReleaser{}, memEvents{}, tracer)
	service := application.NewPaymentApplicationService(attempts, orders, nil, tracer, "usd")
	return NewPaymentHandler(service, processor, testSecret), attempts, orders
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(handler *PaymentHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func notificationPayload(eventType, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"type": %q,
		"data": {"object": {
			"id": "sess-1",
			"payment_status": %q,
			"metadata": {"orderId": "order-1", "userId": "user-1"}
		}}
	}`, eventType, paymentStatus))
}

func TestWebhookRejectsUnverifiableNotifications(t *testing.T) {
	handler, _, orders := newWebhookHandler(t)
	payload := notificationPayload(domain.EventCheckoutCompleted, "paid")

	rec := postWebhook(handler, payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(handler, payload, "deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 被拒的通知不产生任何处理
	assert.Equal(t, port.OrderStatusPending, orders.status)
}

func TestWebhookConfirmsOrderOnPaidSession(t *testing.T) {
	handler, attempts, orders := newWebhookHandler(t)
	payload := notificationPayload(domain.EventCheckoutCompleted, "paid")

	rec := postWebhook(handler, payload, sign(testSecret, payload))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, port.OrderStatusConfirmed, orders.status)
	assert.Equal(t, domain.AttemptSuccess, attempts.attempts["sess-1"].Status)
}

func TestWebhookCancelsOrderOnFailure(t *testing.T) {
	handler, attempts, orders := newWebhookHandler(t)
	payload := notificationPayload(domain.EventPaymentFailed, "")

	rec := postWebhook(handler, payload, sign(testSecret, payload))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, port.OrderStatusCancelled, orders.status)
	assert.Equal(t, domain.AttemptFailed, attempts.attempts["sess-1"].Status)
}

// 已认证的通知即使类型未知也回 200，避免网关重投风暴。
func TestWebhookAcksUnknownTypes(t *testing.T) {
	handler, _, orders := newWebhookHandler(t)
	payload := notificationPayload("invoice.created", "")

	rec := postWebhook(handler, payload, sign(testSecret, payload))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, port.OrderStatusPending, orders.status)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	handler, _, _ := newWebhookHandler(t)
	payload := []byte(`{"type": ""}`)

	rec := postWebhook(handler, payload, sign(testSecret, payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte("hello")

	assert.True(t, VerifySignature("secret", payload, sign("secret", payload)))
	assert.False(t, VerifySignature("secret", payload, sign("other", payload)))
	assert.False(t, VerifySignature("", payload, sign("", payload)))
	assert.False(t, VerifySignature("secret", payload, ""))
}

func TestParseNotification(t *testing.T) {
	payload := notificationPayload(domain.EventCheckoutCompleted, "paid")
	n, err := domain.ParseNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.EventCheckoutCompleted, n.Type)
	assert.Equal(t, "sess-1", n.Session.ID)
	assert.Equal(t, "order-1", n.Session.Metadata.OrderID)
	assert.True(t, n.Paid())

	_, err = domain.ParseNotification([]byte("not json"))
	assert.Error(t, err)
}
