// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"atlas/internal/pkg/identity"
	"atlas/internal/pkg/logger"
	"atlas/internal/service/order/application"
	"atlas/internal/service/order/domain"
)

// OrderHandler 封装了订单服务的 HTTP 处理器。
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
// /orders/all 仅限管理员；internal 与 status 仅限服务间调用。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.handleCreate)
	mux.HandleFunc("GET /orders", h.handleListMine)
	mux.HandleFunc("GET /orders/all", h.handleListAll)
	mux.HandleFunc("GET /orders/{id}", h.handleGet)
	mux.HandleFunc("GET /orders/{id}/internal", h.handleGetInternal)
	mux.HandleFunc("PATCH /orders/{id}/status", h.handleUpdateStatus)
}

type createOrderRequest struct {
	Items []domain.ItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if caller.UserID == "" {
		writeError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.CreateOrder(ctx, caller.UserID, req.Items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"order": order})
}

func (h *OrderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if caller.UserID == "" {
		writeError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	orders, err := h.service.ListOrders(ctx, domain.ListFilter{
		UserID: caller.UserID,
		Status: domain.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	if !identity.FromRequest(r).IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	orders, err := h.service.ListOrders(ctx, domain.ListFilter{
		UserID: r.URL.Query().Get("userId"),
		Status: domain.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if caller.UserID == "" {
		writeError(w, http.StatusUnauthorized, "user identity required")
		return
	}

	order, err := h.service.GetOrder(ctx, r.PathValue("id"), caller.UserID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}

// handleGetInternal 跳过归属校验，供支付等内部服务查询任意订单。
func (h *OrderHandler) handleGetInternal(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	if !identity.FromRequest(r).IsInternal() {
		writeError(w, http.StatusForbidden, "internal service calls only")
		return
	}

	order, err := h.service.GetOrderInternal(ctx, r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	if !identity.FromRequest(r).IsInternal() {
		writeError(w, http.StatusForbidden, "internal service calls only")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to := domain.Status(req.Status)
	if !domain.ValidStatus(req.Status) || to == domain.StatusPending {
		writeError(w, http.StatusBadRequest, "status must be a terminal order status")
		return
	}

	order, err := h.service.UpdateStatus(ctx, r.PathValue("id"), to)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
// 补偿已经在应用层完成，这里只负责向调用方描述失败原因。
func (h *OrderHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, domain.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrStockNotInitialized):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, domain.ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("order request failed")
		writeError(w, http.StatusInternalServerError, "failed to process order")
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
