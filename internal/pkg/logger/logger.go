// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

// Init 初始化全局日志器，并附带 service 字段。
// LOG_FORMAT=console 时输出人类可读格式，默认输出 JSON。
func Init(serviceName string) {
	var l zerolog.Logger
	if os.Getenv("LOG_FORMAT") == "console" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		l = zerolog.New(os.Stderr)
	}
	base = l.With().Timestamp().Str("service", serviceName).Logger()
}

// Logger 返回全局日志器。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个关联了当前追踪上下文的日志器。
// 如果 ctx 中存在有效的 Span，日志会自动带上 trace_id / span_id，
// 便于在 Jaeger 与日志系统之间互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
