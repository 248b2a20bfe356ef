package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"atlas/internal/pkg/httpclient"
	"atlas/internal/pkg/identity"
)

const inventoryServiceName = "inventory-service"

// InventoryHTTPAdapter 是 port.StockReleaser 的 HTTP 实现。
type InventoryHTTPAdapter struct {
	client *httpclient.Client
}

func NewInventoryHTTPAdapter(client *httpclient.Client) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client}
}

type releaseRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

func (a *InventoryHTTPAdapter) Release(ctx context.Context, productID string, quantity int64) error {
	headers := http.Header{}
	identity.Service(paymentServiceName).SetHeaders(headers)

	err := a.client.CallJSON(ctx, http.MethodPost, inventoryServiceName, "/inventory/release", headers,
		releaseRequest{ProductID: productID, Quantity: quantity}, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to release stock for product %s", productID)
	}
	return nil
}
