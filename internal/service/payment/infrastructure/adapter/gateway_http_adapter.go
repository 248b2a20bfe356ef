package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"atlas/internal/pkg/httpclient"
	"atlas/internal/service/payment/domain/port"
)

// GatewayServiceName 是支付网关在地址表里的逻辑名。
// 网关是外部系统，地址来自配置而不是服务发现。
const GatewayServiceName = "payment-gateway"

// GatewayHTTPAdapter 是 port.PaymentGateway 的 HTTP 实现。
type GatewayHTTPAdapter struct {
	client *httpclient.Client
}

func NewGatewayHTTPAdapter(client *httpclient.Client) *GatewayHTTPAdapter {
	return &GatewayHTTPAdapter{client: client}
}

type createSessionRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CreateCheckoutSession 在网关创建一个托管支付会话。
// 金额以最小货币单位（分）传给网关；orderId/userId 写进会话元数据，
// 异步通知靠它们找回订单。
func (a *GatewayHTTPAdapter) CreateCheckoutSession(ctx context.Context, req port.CheckoutRequest) (*port.CheckoutSession, error) {
	var session port.CheckoutSession
	err := a.client.CallJSON(ctx, http.MethodPost, GatewayServiceName, "/v1/checkout/sessions", nil,
		createSessionRequest{
			Amount:   int64(req.Amount*100 + 0.5),
			Currency: req.Currency,
			Metadata: map[string]string{
				"orderId": req.OrderID,
				"userId":  req.UserID,
			},
		}, &session)
	if err != nil {
		return nil, errors.Wrap(err, "gateway refused checkout session")
	}
	if session.ID == "" {
		return nil, errors.New("gateway returned session without id")
	}
	return &session, nil
}
