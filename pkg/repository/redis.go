package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/port"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	sessionCartKey = "cart:session:%s"
	mergeClaimKey  = "cart:merge:%s"
	orderKey       = "order:%s"
	userKey        = "user:%s"

	// optimistic transaction attempts on a session cart before giving up
	sessionCartAttempts = 5
)

// RedisRepository holds the session carts, the merge ledger and the order and
// user caches.
type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
	carts  config.CartConfig
}

func NewRedisRepository(cfg *config.RedisConfig, carts config.CartConfig) *RedisRepository {
	return NewRedisRepositoryWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg, carts)
}

func NewRedisRepositoryWithClient(client *redis.Client, cfg *config.RedisConfig, carts config.CartConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg, carts: carts}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// getJSON reports false on a missing key.
func (r *RedisRepository) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// Session carts. Each cart is one JSON document whose TTL slides on every
// read and write.

func (r *RedisRepository) LoadLines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	data, err := r.client.GetEx(ctx, fmt.Sprintf(sessionCartKey, sessionID), r.carts.SessionTTL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session cart: %w", err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("decode session cart: %w", err)
	}
	return lines, nil
}

// UpdateLines runs fn under WATCH so that two tabs of the same session never
// overwrite each other's lines.
func (r *RedisRepository) UpdateLines(ctx context.Context, sessionID string, fn func([]models.CartLine) ([]models.CartLine, error)) error {
	key := fmt.Sprintf(sessionCartKey, sessionID)

	txf := func(tx *redis.Tx) error {
		var lines []models.CartLine
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &lines); err != nil {
				return fmt.Errorf("decode session cart: %w", err)
			}
		}

		updated, err := fn(lines)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(updated) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			encoded, err := json.Marshal(updated)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, encoded, r.carts.SessionTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < sessionCartAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("session cart %s: %w", sessionID, redis.TxFailedErr)
}

func (r *RedisRepository) DeleteLines(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, fmt.Sprintf(sessionCartKey, sessionID)).Err()
}

// Claim implements the merge ledger with SETNX.
func (r *RedisRepository) Claim(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, fmt.Sprintf(mergeClaimKey, key), time.Now().UTC().Format(time.RFC3339), r.carts.MergeKeyTTL).Result()
}

// Order cache.

func (r *RedisRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	found, err := r.getJSON(ctx, fmt.Sprintf(orderKey, orderID), &o)
	if err != nil || !found {
		return nil, err
	}
	return &o, nil
}

func (r *RedisRepository) PutOrder(ctx context.Context, order *models.Order) error {
	return r.setJSON(ctx, fmt.Sprintf(orderKey, order.ID), order, r.config.OrderCacheTTL)
}

func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.client.Del(ctx, fmt.Sprintf(orderKey, orderID)).Err()
}

// UserCache is the cached identity of an account.
type UserCache struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
	Role  models.Role `json:"role"`
}

func (r *RedisRepository) CacheUser(ctx context.Context, user *UserCache) error {
	return r.setJSON(ctx, fmt.Sprintf(userKey, user.ID), user, r.config.UserCacheTTL)
}

// GetUserCache returns nil, nil on a miss.
func (r *RedisRepository) GetUserCache(ctx context.Context, userID string) (*UserCache, error) {
	var user UserCache
	found, err := r.getJSON(ctx, fmt.Sprintf(userKey, userID), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// CachedUsers reads accounts through the Redis user cache. Cache failures fall
// back to the directory.
type CachedUsers struct {
	next   port.UserDirectory
	cache  *RedisRepository
	logger *zap.Logger
}

func NewCachedUsers(next port.UserDirectory, cache *RedisRepository, logger *zap.Logger) *CachedUsers {
	return &CachedUsers{next: next, cache: cache, logger: logger}
}

func (c *CachedUsers) GetUser(ctx context.Context, userID string) (*models.User, error) {
	cached, err := c.cache.GetUserCache(ctx, userID)
	if err != nil {
		c.logger.Warn("User cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	if cached != nil {
		return &models.User{
			ID:       cached.ID,
			FullName: cached.Name,
			Email:    cached.Email,
			Phone:    cached.Phone,
			Role:     cached.Role,
		}, nil
	}

	u, err := c.next.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.CacheUser(ctx, &UserCache{
		ID:    u.ID,
		Name:  u.FullName,
		Email: u.Email,
		Phone: u.Phone,
		Role:  u.Role,
	}); err != nil {
		c.logger.Warn("Failed to cache user", zap.String("user_id", userID), zap.Error(err))
	}
	return u, nil
}
