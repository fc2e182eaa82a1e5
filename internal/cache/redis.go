package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// First-delivery guard for provider webhook notifications.
	keyWebhookDedup = "webhook:dedup:%s"

	// Cached {paymentStatus, orderStatus} body for the polling endpoint.
	keyPaymentStatus = "payment:status:%s"
)

var (
	TTLWebhookDedup  = 48 * time.Hour
	TTLPaymentStatus = 5 * time.Minute
)

type Cache struct {
	client *redis.Client
}

func New(addr string) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// AlreadyDelivered reports whether this notification id was fully applied
// before. Used as a best-effort dedup shortcut; the durable idempotency
// guard is the order's stock flag.
func (c *Cache) AlreadyDelivered(ctx context.Context, notificationID string) (bool, error) {
	key := fmt.Sprintf(keyWebhookDedup, notificationID)
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}

// MarkDelivered records a notification id as applied. Callers mark only after
// the order update persisted; marking up front would let a transient failure
// swallow every retry of the same transition for the key's lifetime.
func (c *Cache) MarkDelivered(ctx context.Context, notificationID string) error {
	key := fmt.Sprintf(keyWebhookDedup, notificationID)
	return c.client.Set(ctx, key, "1", TTLWebhookDedup).Err()
}

func (c *Cache) SetPaymentStatus(ctx context.Context, orderID string, body []byte) error {
	key := fmt.Sprintf(keyPaymentStatus, orderID)
	return c.client.Set(ctx, key, body, TTLPaymentStatus).Err()
}

// GetPaymentStatus returns the cached status body, or nil on a miss.
func (c *Cache) GetPaymentStatus(ctx context.Context, orderID string) ([]byte, error) {
	key := fmt.Sprintf(keyPaymentStatus, orderID)
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *Cache) InvalidatePaymentStatus(ctx context.Context, orderID string) error {
	return c.client.Del(ctx, fmt.Sprintf(keyPaymentStatus, orderID)).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
