package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"atlas/internal/pkg/httpclient"
	"atlas/internal/pkg/identity"
	"atlas/internal/service/payment/domain"
	"atlas/internal/service/payment/domain/port"
)

const (
	orderServiceName   = "order-service"
	paymentServiceName = "payment-service"
)

// OrderHTTPAdapter 是 port.OrderClient 的 HTTP 实现。
// 走订单服务的内部接口，携带本服务身份。
type OrderHTTPAdapter struct {
	client *httpclient.Client
}

func NewOrderHTTPAdapter(client *httpclient.Client) *OrderHTTPAdapter {
	return &OrderHTTPAdapter{client: client}
}

type orderResponse struct {
	Order port.OrderSnapshot `json:"order"`
}

func (a *OrderHTTPAdapter) GetOrder(ctx context.Context, orderID string) (*port.OrderSnapshot, error) {
	headers := http.Header{}
	identity.Service(paymentServiceName).SetHeaders(headers)

	var resp orderResponse
	err := a.client.CallJSON(ctx, http.MethodGet, orderServiceName, "/orders/"+orderID+"/internal", headers, nil, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(domain.ErrOrderNotFound, "order %s", orderID)
		}
		return nil, errors.Wrapf(err, "failed to fetch order %s", orderID)
	}
	return &resp.Order, nil
}

// SetStatus 调用订单服务的条件状态转换。订单侧对同一终态的重复应用
// 是空操作，冲突的终态返回 409。
func (a *OrderHTTPAdapter) SetStatus(ctx context.Context, orderID, status string) error {
	headers := http.Header{}
	identity.Service(paymentServiceName).SetHeaders(headers)

	err := a.client.CallJSON(ctx, http.MethodPatch, orderServiceName, "/orders/"+orderID+"/status", headers,
		map[string]string{"status": status}, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to set order %s status to %s", orderID, status)
	}
	return nil
}
