package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sagaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "order_saga_total",
	Help: "Order creation sagas by result.",
}, []string{"result"})
