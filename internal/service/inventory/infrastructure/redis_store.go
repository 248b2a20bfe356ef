// internal/service/inventory/infrastructure/redis_store.go
package infrastructure

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"atlas/internal/pkg/redis"
	"atlas/internal/service/inventory/domain"
)

const (
	inventoryKeyPrefix = "inventory:"

	reserveScriptName = "inventory_reserve"
	adjustScriptName  = "inventory_adjust"

	// 脚本返回值约定：-1 未初始化，-2 数量不满足，其余为变更后的数值。
	codeNotInitialized = -1
	codeInsufficient   = -2
)

// RedisStockStore 是 domain.StockStore 的 Redis 实现。
// 预占与负向调整都以 Lua 脚本在服务端原子执行。
type RedisStockStore struct {
	redisClient *redis.Client
}

// NewRedisStockStore 创建库存存储适配器，并在创建时加载所需脚本。
func NewRedisStockStore(redisClient *redis.Client) (*RedisStockStore, error) {
	if err := redisClient.LoadScriptFromContent(reserveScriptName, reserveScript); err != nil {
		return nil, fmt.Errorf("failed to load critical reserve script: %w", err)
	}
	if err := redisClient.LoadScriptFromContent(adjustScriptName, adjustScript); err != nil {
		return nil, fmt.Errorf("failed to load adjust script: %w", err)
	}
	return &RedisStockStore{redisClient: redisClient}, nil
}

func stockKey(productID string) string {
	return inventoryKeyPrefix + productID
}

func (s *RedisStockStore) Set(ctx context.Context, productID string, quantity int64) error {
	return s.redisClient.GetClient().Set(ctx, stockKey(productID), quantity, 0).Err()
}

func (s *RedisStockStore) Get(ctx context.Context, productID string) (int64, error) {
	val, err := s.redisClient.GetClient().Get(ctx, stockKey(productID)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, domain.ErrNotInitialized
		}
		return 0, err
	}
	return val, nil
}

// Reserve 执行原子的检查减操作。
func (s *RedisStockStore) Reserve(ctx context.Context, productID string, quantity int64) (int64, error) {
	result, err := s.redisClient.RunScript(ctx, reserveScriptName, []string{stockKey(productID)}, quantity)
	if err != nil {
		return 0, fmt.Errorf("reserve script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from reserve script: %T", result)
	}

	switch {
	case code == codeNotInitialized:
		return 0, domain.ErrNotInitialized
	case code == codeInsufficient:
		// 诊断信息用的可用量是脚本之外读到的，允许轻微滞后
		available, _ := s.Get(ctx, productID)
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Available: available,
			Requested: quantity,
		}
	default:
		return code, nil
	}
}

func (s *RedisStockStore) Release(ctx context.Context, productID string, quantity int64) (int64, error) {
	rdb := s.redisClient.GetClient()
	exists, err := rdb.Exists(ctx, stockKey(productID)).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, domain.ErrNotInitialized
	}
	return rdb.IncrBy(ctx, stockKey(productID), quantity).Result()
}

// Adjust 应用带符号增量，负向增量的下界检查与写入在脚本内原子完成。
func (s *RedisStockStore) Adjust(ctx context.Context, productID string, delta int64) (int64, error) {
	result, err := s.redisClient.RunScript(ctx, adjustScriptName, []string{stockKey(productID)}, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from adjust script: %T", result)
	}

	switch {
	case code == codeNotInitialized:
		return 0, domain.ErrNotInitialized
	case code == codeInsufficient:
		return 0, domain.ErrNegativeStock
	default:
		return code, nil
	}
}

var reserveScript = `
-- KEYS[1]: 库存计数器, 例如 inventory:product-123
-- ARGV[1]: 请求预占的数量

local current = redis.call('GET', KEYS[1])
if not current then
    return -1
end
current = tonumber(current)
local requested = tonumber(ARGV[1])
if current < requested then
    return -2
end
redis.call('DECRBY', KEYS[1], requested)
return current - requested
`

var adjustScript = `
-- KEYS[1]: 库存计数器
-- ARGV[1]: 带符号的调整量

local current = redis.call('GET', KEYS[1])
if not current then
    return -1
end
current = tonumber(current)
local delta = tonumber(ARGV[1])
if current + delta < 0 then
    return -2
end
return redis.call('INCRBY', KEYS[1], delta)
`
