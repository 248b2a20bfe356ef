package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payment_notifications_total",
	Help: "Gateway notifications by type and processing outcome.",
}, []string{"type", "outcome"})
