// internal/service/order/application/saga/saga.go
package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"atlas/internal/pkg/logger"
	"atlas/internal/service/order/domain"
	"atlas/internal/service/order/domain/port"
)

// OrderContext 在一次下单编排中传递上下文数据。
// 每次编排拥有自己独立的实例，预占清单与补偿队列都只属于本次调用，
// 不跨请求共享，因此除补偿队列自身的锁外不需要任何同步。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	UserID   string
	RawItems []domain.ItemRequest // 调用方给出的原始条目
	Items    []domain.LineItem    // 定价后的条目（价格快照已冻结）
	Order    *domain.Order        // 持久化成功后由 PersistHandler 填充

	Catalog   port.CatalogService
	Inventory port.InventoryService
	Events    port.EventPublisher

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿动作。每次成功的预占恰好注册一次。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append(c.compensations, comp)
}

// TriggerCompensation 执行全部已注册的补偿动作。
// 各补偿相互独立且尽力而为，因此并发执行；失败在补偿内部记日志，
// 不向外抛出，避免掩盖触发补偿的原始错误。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	if len(comps) == 0 {
		return
	}
	logger.Ctx(ctx).Info().Int("count", len(comps)).Msg("executing saga compensations")

	var g errgroup.Group
	for _, comp := range comps {
		comp := comp
		g.Go(func() error {
			comp(ctx)
			return nil
		})
	}
	g.Wait()
}

// Handler 是编排链上的一个步骤。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
