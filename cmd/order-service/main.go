// cmd/order-service/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"atlas/internal/pkg/bootstrap"
	"atlas/internal/pkg/httpclient"
	"atlas/internal/pkg/mq"
	"atlas/internal/service/order/application"
	"atlas/internal/service/order/infrastructure"
	"atlas/internal/service/order/infrastructure/adapter"
	"atlas/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8081
)

// main 是组装根：创建并组装所有依赖项，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.OrderModel{}, &infrastructure.OrderItemModel{}); err != nil {
		log.Fatalf("FATAL: failed to migrate order schema: %v", err)
	}

	eventsWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)
	tracer := otel.Tracer(serviceName)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			var resolver httpclient.Resolver = httpclient.StaticResolver(cfg.Services)
			if appCtx.Nacos != nil {
				resolver = &httpclient.NacosResolver{Client: appCtx.Nacos}
			}
			client := httpclient.NewClient(tracer, resolver, time.Duration(cfg.Timeouts.HTTPCallMs)*time.Millisecond)

			service := application.NewOrderApplicationService(
				infrastructure.NewGormOrderRepository(db),
				tracer,
				adapter.NewCatalogHTTPAdapter(client),
				adapter.NewInventoryHTTPAdapter(client),
				adapter.NewOrderEventsKafkaAdapter(eventsWriter),
			)
			handler := interfaces.NewOrderHandler(service)

			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := eventsWriter.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
		},
	})
}
