package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/view"
	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when a cached entry is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// releaseScript deletes a lock key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func orderKey(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

// CacheOrder stores the order view for redis.order_ttl.
func (r *RedisRepository) CacheOrder(ctx context.Context, order *view.Order) error {
	return r.SetJSON(ctx, orderKey(order.ID), order, r.config.OrderTTL)
}

func (r *RedisRepository) GetCachedOrder(ctx context.Context, orderID string) (*view.Order, error) {
	var order view.Order
	if err := r.GetJSON(ctx, orderKey(orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.client.Del(ctx, orderKey(orderID)).Err()
}

// AcquireLock sets key to token if it is free. The key expires after ttl so
// a crashed holder cannot block the owner forever.
func (r *RedisRepository) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, token, ttl).Result()
}

// ReleaseLock removes key if it is still held by token.
func (r *RedisRepository) ReleaseLock(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
