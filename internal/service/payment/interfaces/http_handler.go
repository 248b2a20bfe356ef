// internal/service/payment/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"atlas/internal/pkg/identity"
	"atlas/internal/pkg/logger"
	"atlas/internal/service/payment/application"
	"atlas/internal/service/payment/domain"
)

// maxNotificationBytes 限制通知体大小，网关的通知远小于此。
const maxNotificationBytes = 64 << 10

// PaymentHandler 封装了支付服务的 HTTP 处理器。
type PaymentHandler struct {
	service       *application.PaymentApplicationService
	processor     *application.OutcomeProcessor
	webhookSecret string
}

func NewPaymentHandler(service *application.PaymentApplicationService, processor *application.OutcomeProcessor, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{service: service, processor: processor, webhookSecret: webhookSecret}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
// webhook 不走身份头，靠签名认证。
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payments/checkout", h.handleCheckout)
	mux.HandleFunc("POST /payments/webhook", h.handleWebhook)
	mux.HandleFunc("GET /payments/order/{orderId}", h.handleAttemptsByOrder)
}

type checkoutRequest struct {
	OrderID string `json:"orderId"`
}

func (h *PaymentHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if caller.UserID == "" {
		writeError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	attempt, err := h.service.InitiateCheckout(ctx, req.OrderID, caller.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":   attempt.SessionID,
		"checkoutUrl": attempt.CheckoutURL,
		"amount":      attempt.Amount,
		"currency":    attempt.Currency,
	})
}

// handleWebhook 接收网关的异步通知。
// 签名不可验证的请求拒收（400），通过校验的请求在尝试处理后一律回 200：
// 处理失败记日志供人工排查，不触发网关的重投风暴。
func (h *PaymentHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !VerifySignature(h.webhookSecret, payload, r.Header.Get(SignatureHeader)) {
		logger.Ctx(ctx).Warn().Str("remote", r.RemoteAddr).Msg("webhook signature verification failed")
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	notification, err := domain.ParseNotification(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.processor.Process(ctx, notification); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("type", notification.Type).
			Str("session_id", notification.Session.ID).
			Msg("notification processing failed, manual review required")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) handleAttemptsByOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if !caller.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return
	}

	orderID := r.PathValue("orderId")
	privileged := caller.IsAdmin() || caller.IsInternal()
	attempts, err := h.service.AttemptsByOrder(ctx, orderID, caller.UserID, privileged)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orderId": orderID, "attempts": attempts})
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
func (h *PaymentHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotPending), errors.Is(err, domain.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("payment request failed")
		writeError(w, http.StatusInternalServerError, "failed to process payment request")
	}
}

func extractCtx(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
