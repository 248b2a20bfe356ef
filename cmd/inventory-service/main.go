// cmd/inventory-service/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"atlas/internal/pkg/bootstrap"
	"atlas/internal/pkg/redis"
	"atlas/internal/service/inventory/application"
	"atlas/internal/service/inventory/infrastructure"
	"atlas/internal/service/inventory/interfaces"
)

const (
	serviceName = "inventory-service"
	servicePort = 8082
)

// main 是组装根：创建并组装所有依赖项，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password, cfg.Infra.Redis.DB)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to redis: %v", err)
	}

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.InventoryLogModel{}); err != nil {
		log.Fatalf("FATAL: failed to migrate inventory schema: %v", err)
	}

	store, err := infrastructure.NewRedisStockStore(redisClient)
	if err != nil {
		log.Fatalf("FATAL: failed to load stock scripts: %v", err)
	}

	tracer := otel.Tracer(serviceName)
	service := application.NewLedgerService(store, infrastructure.NewGormAuditLog(db), tracer)
	handler := interfaces.NewLedgerHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		},
	})
}
