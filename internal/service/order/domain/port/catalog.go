package port

import "context"

// Product 是商品目录返回的定价视图。
type Product struct {
	ID    string
	Name  string
	Price float64
}

// CatalogService 是商品目录的出站端口。
// 目录查询失败（商品不存在或传输错误）发生在任何预占之前，
// 编排器可以直接中止，无需补偿。
type CatalogService interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}
