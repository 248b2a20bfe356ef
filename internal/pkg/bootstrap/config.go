// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 汇总了所有服务共享的基础设施与业务配置。
// 通过 CONFIG_PATH 指定 yaml 文件加载，个别敏感项允许环境变量覆盖。
type Config struct {
	Infra struct {
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			OrderEventsTopic string   `yaml:"orderEventsTopic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	// Services 是静态的服务地址表，Nacos 关闭时由 httpclient 使用。
	Services map[string]string `yaml:"services"`

	Payment struct {
		WebhookSecret string `yaml:"webhookSecret"`
		GatewayURL    string `yaml:"gatewayUrl"`
		Currency      string `yaml:"currency"`
	} `yaml:"payment"`

	Timeouts struct {
		HTTPCallMs int `yaml:"httpCallMs"`
	} `yaml:"timeouts"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置。必须在 StartService 之前调用。
func Init() {
	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
	} else {
		log.Printf("WARN: config file %s not found, using defaults", path)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init must be called before GetCurrentConfig")
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/atlas?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.OrderEventsTopic = "order-events-topic"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Services = map[string]string{
		"inventory-service": "http://localhost:8082",
		"order-service":     "http://localhost:8081",
		"payment-service":   "http://localhost:8083",
		"catalog-service":   "http://localhost:8084",
	}
	cfg.Payment.Currency = "usd"
	cfg.Timeouts.HTTPCallMs = 3000
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.Enabled = true
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
	if v := os.Getenv("PAYMENT_WEBHOOK_SECRET"); v != "" {
		cfg.Payment.WebhookSecret = v
	}
	if v := os.Getenv("PAYMENT_GATEWAY_URL"); v != "" {
		cfg.Payment.GatewayURL = v
	}
}
