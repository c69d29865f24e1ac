package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	freshnessKey = "trendsiam:data_last_updated"
	runLockKey   = "trendsiam:run_lock"
)

// RedisSignal реализует domain.FreshnessSignal и domain.RunLock через Redis.
type RedisSignal struct {
	client *redis.Client
}

// NewRedis создаёт сигнал свежести.
func NewRedis(client *redis.Client) *RedisSignal {
	return &RedisSignal{client: client}
}

// Touch обновляет ключ свежести; потребители сбрасывают свои кэши по нему.
func (c *RedisSignal) Touch(ctx context.Context, at time.Time) error {
	return c.client.Set(ctx, freshnessKey, at.UTC().Format(time.RFC3339), 0).Err()
}

// Acquire берёт блокировку запуска. Возвращает false, если конвейер уже работает.
func (c *RedisSignal) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, runLockKey, "1", ttl).Result()
}

// Release снимает блокировку запуска.
func (c *RedisSignal) Release(ctx context.Context) error {
	return c.client.Del(ctx, runLockKey).Err()
}
