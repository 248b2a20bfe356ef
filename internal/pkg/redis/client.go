// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 客户端，并维护一个命名 Lua 脚本注册表。
// 需要原子性的计数器操作（预占、负向调整）都以脚本形式在服务端执行。
type Client struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	scripts map[string]*goredis.Script
}

// NewClient 创建客户端并验证连通性。
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Client{rdb: rdb, scripts: make(map[string]*goredis.Script)}, nil
}

// NewClientFromRedis 基于已有连接构建，测试时配合 miniredis 使用。
func NewClientFromRedis(rdb *goredis.Client) *Client {
	return &Client{rdb: rdb, scripts: make(map[string]*goredis.Script)}
}

// GetClient 暴露底层客户端，用于脚本之外的普通命令。
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// LoadScriptFromContent 注册一段命名脚本。重复注册会覆盖旧脚本。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script '%s' has empty content", name)
	}
	c.mu.Lock()
	c.scripts[name] = goredis.NewScript(content)
	c.mu.Unlock()
	return nil
}

// RunScript 执行一段已注册的脚本。
// go-redis 的 Script.Run 会优先 EVALSHA，脚本未缓存时自动退回 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script '%s' is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
