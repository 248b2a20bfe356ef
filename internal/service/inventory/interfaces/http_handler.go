// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"atlas/internal/pkg/identity"
	"atlas/internal/pkg/logger"
	"atlas/internal/service/inventory/application"
	"atlas/internal/service/inventory/domain"
)

// LedgerHandler 封装了库存服务的 HTTP 处理器。
type LedgerHandler struct {
	service *application.LedgerService
}

func NewLedgerHandler(service *application.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
// init/adjust/stock/logs 仅限管理员；reserve 允许服务间调用或已认证用户；
// release 是补偿入口，仅限服务间调用。
func (h *LedgerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /inventory/init", h.handleInit)
	mux.HandleFunc("GET /inventory/stock/{productId}", h.handleGetStock)
	mux.HandleFunc("POST /inventory/adjust", h.handleAdjust)
	mux.HandleFunc("POST /inventory/reserve", h.handleReserve)
	mux.HandleFunc("POST /inventory/release", h.handleRelease)
	mux.HandleFunc("GET /inventory/logs/{productId}", h.handleMovements)
}

type stockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type adjustRequest struct {
	ProductID string `json:"productId"`
	Change    int64  `json:"change"`
	Reason    string `json:"reason"`
}

func (h *LedgerHandler) handleInit(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if !caller.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	stock, err := h.service.Initialize(ctx, req.ProductID, req.Quantity, caller.Actor())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"productId": req.ProductID, "stock": stock})
}

func (h *LedgerHandler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	if !identity.FromRequest(r).IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	productID := r.PathValue("productId")
	stock, err := h.service.GetStock(ctx, productID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"productId": productID, "stock": stock})
}

func (h *LedgerHandler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if !caller.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId and change are required")
		return
	}

	stock, err := h.service.Adjust(ctx, req.ProductID, req.Change, caller.Actor(), req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"productId": req.ProductID, "change": req.Change, "stock": stock})
}

func (h *LedgerHandler) handleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if !caller.IsAuthenticated() {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	remaining, err := h.service.Reserve(ctx, req.ProductID, req.Quantity, caller.Actor())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"productId":      req.ProductID,
		"reserved":       req.Quantity,
		"remainingStock": remaining,
	})
}

func (h *LedgerHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	caller := identity.FromRequest(r)
	if !caller.IsInternal() {
		writeError(w, http.StatusForbidden, "internal service calls only")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	current, err := h.service.Release(ctx, req.ProductID, req.Quantity, caller.Actor())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"productId":    req.ProductID,
		"released":     req.Quantity,
		"currentStock": current,
	})
}

func (h *LedgerHandler) handleMovements(w http.ResponseWriter, r *http.Request) {
	ctx := extractCtx(r)
	if !identity.FromRequest(r).IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}

	productID := r.PathValue("productId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	entries, err := h.service.Movements(ctx, productID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"productId": productID, "movements": entries})
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
func (h *LedgerHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotInitialized):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, domain.ErrNegativeStock):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("inventory request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
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
