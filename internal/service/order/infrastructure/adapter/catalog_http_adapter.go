package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"atlas/internal/pkg/httpclient"
	"atlas/internal/service/order/domain"
	"atlas/internal/service/order/domain/port"
)

const catalogServiceName = "catalog-service"

// CatalogHTTPAdapter 是 port.CatalogService 的 HTTP 实现，
// 对接外部商品目录服务。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
}

func NewCatalogHTTPAdapter(client *httpclient.Client) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client}
}

type productResponse struct {
	Product struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"product"`
}

func (a *CatalogHTTPAdapter) GetProduct(ctx context.Context, productID string) (*port.Product, error) {
	var resp productResponse
	err := a.client.CallJSON(ctx, http.MethodGet, catalogServiceName, "/products/"+productID, nil, nil, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(domain.ErrProductNotFound, "product %s", productID)
		}
		return nil, errors.Wrapf(err, "failed to fetch product %s", productID)
	}
	return &port.Product{
		ID:    resp.Product.ID,
		Name:  resp.Product.Name,
		Price: resp.Product.Price,
	}, nil
}
