package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 封装 redis 客户端；目前只承担限流计数
type Cache struct {
	RDB    *redis.Client
	prefix string
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb, prefix: "ons:rl:"}
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }

// Hit 固定窗口计数：首次命中时设置过期，返回当前计数和窗口剩余时间
func (c *Cache) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := c.prefix + key
	pipe := c.RDB.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	left := ttl.Val()
	// 新 key 或丢了过期时间的 key（PTTL 返回 -1）
	if left <= 0 {
		if err := c.RDB.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		left = window
	}
	return incr.Val(), left, nil
}

// Undo 撤销一次计数（成功请求不计入时使用）
func (c *Cache) Undo(ctx context.Context, key string) error {
	return c.RDB.Decr(ctx, c.prefix+key).Err()
}
