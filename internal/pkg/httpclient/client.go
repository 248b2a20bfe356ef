// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"atlas/internal/pkg/nacos"
)

// Resolver 把逻辑服务名解析为基础 URL。
type Resolver interface {
	Resolve(service string) (string, error)
}

// StaticResolver 基于配置的静态地址表解析服务名。
type StaticResolver map[string]string

func (r StaticResolver) Resolve(service string) (string, error) {
	base, ok := r[service]
	if !ok {
		return "", fmt.Errorf("no address configured for service '%s'", service)
	}
	return base, nil
}

// NacosResolver 通过 Nacos 做服务发现。
type NacosResolver struct {
	Client *nacos.Client
}

func (r *NacosResolver) Resolve(service string) (string, error) {
	ip, port, err := r.Client.DiscoverServiceInstance(service)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}

// StatusError 表示下游返回了非 2xx 状态码。
// 调用方可以用 errors.As 取出状态码和响应体，转换为自己的领域错误。
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned status %d: %s", e.StatusCode, string(e.Body))
}

// Client 是一个可追踪的、可注入的 HTTP 客户端。
// 所有跨服务调用都带有限定超时，超时被视为传输错误。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Resolver   Resolver
	Timeout    time.Duration
}

// NewClient 创建一个新的客户端实例。
// 不给 http.Client 设置 Timeout 字段，超时完全由每次请求的 context 控制。
func NewClient(tracer trace.Tracer, resolver Resolver, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		Resolver:   resolver,
		Timeout:    timeout,
	}
}

// CallJSON 向指定服务发送一次 JSON 请求。
// body 为 nil 时不带请求体；out 为 nil 时丢弃响应体。
// 非 2xx 响应返回 *StatusError，网络/超时错误按原样返回。
func (c *Client) CallJSON(ctx context.Context, method, service, path string, headers http.Header, body, out interface{}) error {
	base, err := c.Resolver.Resolve(service)
	if err != nil {
		return err
	}

	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s", service), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reqBody)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	span.SetAttributes(
		attribute.String("http.url", base+path),
		attribute.String("http.method", method),
		attribute.String("peer.service", service),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: respBody}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response from %s%s: %w", service, path, err)
		}
	}
	return nil
}
