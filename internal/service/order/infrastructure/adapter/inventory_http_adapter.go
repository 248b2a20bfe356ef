package adapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"atlas/internal/pkg/httpclient"
	"atlas/internal/pkg/identity"
	"atlas/internal/service/order/domain"
)

const (
	inventoryServiceName = "inventory-service"
	orderServiceName     = "order-service"
)

// InventoryHTTPAdapter 是 port.InventoryService 的 HTTP 实现。
// 库存服务的 409 响应会被还原为领域错误，调用方据此决定是否补偿。
type InventoryHTTPAdapter struct {
	client *httpclient.Client
}

func NewInventoryHTTPAdapter(client *httpclient.Client) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client}
}

type stockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type insufficientStockResponse struct {
	Error     string `json:"error"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, productID string, quantity int64, userID string) error {
	headers := http.Header{}
	identity.Identity{UserID: userID, Service: orderServiceName}.SetHeaders(headers)

	err := a.client.CallJSON(ctx, http.MethodPost, inventoryServiceName, "/inventory/reserve", headers,
		stockRequest{ProductID: productID, Quantity: quantity}, nil)
	if err == nil {
		return nil
	}

	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return errors.Wrapf(domain.ErrStockNotInitialized, "product %s", productID)
		case http.StatusConflict:
			var body insufficientStockResponse
			if jsonErr := json.Unmarshal(statusErr.Body, &body); jsonErr == nil && body.Requested > 0 {
				return &domain.InsufficientStockError{
					ProductID: productID,
					Available: body.Available,
					Requested: body.Requested,
				}
			}
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity}
		}
	}
	return errors.Wrapf(err, "failed to reserve stock for product %s", productID)
}

// Release 归还库存。释放接口只接受服务间调用，因此固定携带本服务身份。
func (a *InventoryHTTPAdapter) Release(ctx context.Context, productID string, quantity int64, actor string) error {
	headers := http.Header{}
	id := identity.Service(orderServiceName)
	if actor != "" && actor != identity.ActorSystem {
		id.UserID = actor
	}
	id.SetHeaders(headers)

	err := a.client.CallJSON(ctx, http.MethodPost, inventoryServiceName, "/inventory/release", headers,
		stockRequest{ProductID: productID, Quantity: quantity}, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to release stock for product %s", productID)
	}
	return nil
}
