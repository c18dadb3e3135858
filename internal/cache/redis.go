// Package cache provides the optional Redis-backed order projection cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

const defaultTTL = 30 * time.Second

// OrderCache serves order read projections out of Redis. Every method is
// best effort: connection and codec problems degrade to cache misses, so
// the relational store stays authoritative.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache wraps an existing Redis client. A non-positive TTL falls
// back to the default.
func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &OrderCache{client: client, ttl: ttl}
}

// NewClient builds a Redis client with the pool sizing the engine expects.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

func orderKey(orderID string) string {
	return "order:" + orderID
}

func investorKey(investor string) string {
	return "orders:investor:" + investor
}

// GetOrder returns a cached order projection.
func (c *OrderCache) GetOrder(ctx context.Context, orderID string) (domain.Order, bool) {
	data, err := c.client.Get(ctx, orderKey(orderID)).Bytes()
	if err != nil {
		return domain.Order{}, false
	}
	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return domain.Order{}, false
	}
	return order, true
}

// SetOrder stores an order projection until the TTL expires.
func (c *OrderCache) SetOrder(ctx context.Context, order domain.Order) {
	if order.ID == "" {
		return
	}
	data, err := json.Marshal(order)
	if err != nil {
		return
	}
	c.client.Set(ctx, orderKey(order.ID), data, c.ttl)
}

// GetInvestorOrders returns a cached investor listing.
func (c *OrderCache) GetInvestorOrders(ctx context.Context, investor string) ([]domain.Order, bool) {
	data, err := c.client.Get(ctx, investorKey(investor)).Bytes()
	if err != nil {
		return nil, false
	}
	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, false
	}
	return orders, true
}

// SetInvestorOrders stores an investor listing until the TTL expires.
func (c *OrderCache) SetInvestorOrders(ctx context.Context, investor string, orders []domain.Order) {
	if investor == "" {
		return
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return
	}
	c.client.Set(ctx, investorKey(investor), data, c.ttl)
}

// Invalidate drops the projections touched by a lifecycle change.
func (c *OrderCache) Invalidate(ctx context.Context, orderID, investor string) {
	keys := make([]string, 0, 2)
	if orderID != "" {
		keys = append(keys, orderKey(orderID))
	}
	if investor != "" {
		keys = append(keys, investorKey(investor))
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}
