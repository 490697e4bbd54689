// Package cache provides the Redis-backed aggregate cache for the
// valuation engine. Entries are keyed per view by the canonical filter
// serialization; invalidation clears whole view namespaces so the two
// independently edited stores can never serve stale reconciled aggregates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldsales_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// View names. A mutation invalidates all four: the reconciled aggregates
// depend on both stores regardless of which one was edited.
const (
	ViewFunnel        = "funnel"
	ViewActivities    = "activities"
	ViewClients       = "clients"
	ViewOpportunities = "opportunities"
)

// AllViews lists every cached view, in invalidation order.
var AllViews = []string{ViewFunnel, ViewActivities, ViewClients, ViewOpportunities}

const keyPrefix = "agg:"

// Store is a Redis-backed cache for engine aggregates. Cache failures are
// deliberately soft: a read error behaves as a miss and a write error is
// only logged, so a Redis outage degrades performance, never correctness,
// and never corrupts previously computed results.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a cache store from an existing Redis client.
func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{client: client, ttl: ttl, log: log}
}

// NewFromURL connects to Redis and returns a cache store.
func NewFromURL(url string, ttl time.Duration, log *logger.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return New(client, ttl, log), nil
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) key(view, filterKey string) string {
	return keyPrefix + view + ":" + filterKey
}

// Get loads a cached aggregate into dest. Returns false on a miss or on
// any cache failure.
func (s *Store) Get(ctx context.Context, view, filterKey string, dest interface{}) bool {
	if s == nil || s.client == nil {
		return false
	}

	key := s.key(view, filterKey)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.log.CacheEvent("miss", view, filterKey)
		return false
	}
	if err != nil {
		s.log.CacheEvent("read_error", view, filterKey)
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		s.log.CacheEvent("decode_error", view, filterKey)
		return false
	}

	s.log.CacheEvent("hit", view, filterKey)
	return true
}

// Set stores an aggregate under the view and filter key.
func (s *Store) Set(ctx context.Context, view, filterKey string, value interface{}) {
	if s == nil || s.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.log.CacheEvent("encode_error", view, filterKey)
		return
	}

	if err := s.client.Set(ctx, s.key(view, filterKey), data, s.ttl).Err(); err != nil {
		s.log.CacheEvent("write_error", view, filterKey)
		return
	}

	s.log.CacheEvent("set", view, filterKey)
}

// Invalidate removes every entry of the given views.
func (s *Store) Invalidate(ctx context.Context, views ...string) {
	if s == nil || s.client == nil {
		return
	}

	for _, view := range views {
		pattern := keyPrefix + view + ":*"
		iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				s.log.CacheEvent("invalidate_error", view, iter.Val())
			}
		}
		if err := iter.Err(); err != nil {
			s.log.CacheEvent("invalidate_error", view, pattern)
			continue
		}
		s.log.CacheEvent("invalidate", view, pattern)
	}
}

// InvalidateAll clears every cached view.
func (s *Store) InvalidateAll(ctx context.Context) {
	s.Invalidate(ctx, AllViews...)
}
