package application

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"atlas/internal/service/inventory/domain"
)

var reserveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inventory_reserve_total",
	Help: "Reserve attempts by outcome.",
}, []string{"outcome"})

func outcomeLabel(err error) string {
	var insufficient *domain.InsufficientStockError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrNotInitialized):
		return "not_initialized"
	default:
		return "error"
	}
}
