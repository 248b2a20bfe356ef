// cmd/payment-service/main.go
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
	"atlas/internal/service/payment/application"
	"atlas/internal/service/payment/infrastructure"
	"atlas/internal/service/payment/infrastructure/adapter"
	"atlas/internal/service/payment/interfaces"
)

const (
	serviceName = "payment-service"
	servicePort = 8083
)

// main 是组装根：创建并组装所有依赖项，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.PaymentAttemptModel{}); err != nil {
		log.Fatalf("FATAL: failed to migrate payment schema: %v", err)
	}

	eventsWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)
	tracer := otel.Tracer(serviceName)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 网关是外部系统，地址始终来自配置；内部服务可走 Nacos
			addrs := make(httpclient.StaticResolver, len(cfg.Services)+1)
			for name, addr := range cfg.Services {
				addrs[name] = addr
			}
			addrs[adapter.GatewayServiceName] = cfg.Payment.GatewayURL

			var resolver httpclient.Resolver = addrs
			if appCtx.Nacos != nil {
				resolver = &fallbackResolver{
					primary:  &httpclient.NacosResolver{Client: appCtx.Nacos},
					fallback: addrs,
				}
			}
			client := httpclient.NewClient(tracer, resolver, time.Duration(cfg.Timeouts.HTTPCallMs)*time.Millisecond)

			attempts := infrastructure.NewGormAttemptRepository(db)
			orders := adapter.NewOrderHTTPAdapter(client)
			events := adapter.NewPaymentEventsKafkaAdapter(eventsWriter)

			service := application.NewPaymentApplicationService(
				attempts, orders, adapter.NewGatewayHTTPAdapter(client), tracer, cfg.Payment.Currency)
			processor := application.NewOutcomeProcessor(
				attempts, orders, adapter.NewInventoryHTTPAdapter(client), events, tracer)
			handler := interfaces.NewPaymentHandler(service, processor, cfg.Payment.WebhookSecret)

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

// fallbackResolver 先查服务发现，查不到的逻辑名（如支付网关）退回静态地址表。
type fallbackResolver struct {
	primary  httpclient.Resolver
	fallback httpclient.Resolver
}

func (r *fallbackResolver) Resolve(service string) (string, error) {
	if addr, err := r.primary.Resolve(service); err == nil {
		return addr, nil
	}
	return r.fallback.Resolve(service)
}
