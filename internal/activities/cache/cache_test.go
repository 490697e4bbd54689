package cache

import (
	"context"
	"testing"
	"time"

	"fieldsales_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Minute, logger.New("development")), mr
}

type testAggregate struct {
	Count int   `json:"count"`
	Value int64 `json:"value"`
}

func TestSetAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, ViewFunnel, "k1", testAggregate{Count: 3, Value: 1200})

	var got testAggregate
	if !store.Get(ctx, ViewFunnel, "k1", &got) {
		t.Fatalf("expected cache hit")
	}
	if got.Count != 3 || got.Value != 1200 {
		t.Fatalf("unexpected cached value: %+v", got)
	}
}

func TestGetMiss(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()

	var got testAggregate
	if store.Get(context.Background(), ViewFunnel, "absent", &got) {
		t.Fatalf("expected cache miss")
	}
}

func TestViewsAreIsolated(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, ViewFunnel, "k", testAggregate{Count: 1})
	store.Set(ctx, ViewClients, "k", testAggregate{Count: 2})

	var got testAggregate
	if !store.Get(ctx, ViewClients, "k", &got) || got.Count != 2 {
		t.Fatalf("expected clients view entry, got %+v", got)
	}
}

func TestInvalidateClearsOnlyNamedViews(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, ViewFunnel, "k1", testAggregate{Count: 1})
	store.Set(ctx, ViewFunnel, "k2", testAggregate{Count: 2})
	store.Set(ctx, ViewOpportunities, "k1", testAggregate{Count: 3})

	store.Invalidate(ctx, ViewFunnel)

	var got testAggregate
	if store.Get(ctx, ViewFunnel, "k1", &got) || store.Get(ctx, ViewFunnel, "k2", &got) {
		t.Fatalf("expected funnel entries invalidated")
	}
	if !store.Get(ctx, ViewOpportunities, "k1", &got) {
		t.Fatalf("expected opportunities entry untouched")
	}
}

func TestInvalidateAll(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	for _, view := range AllViews {
		store.Set(ctx, view, "k", testAggregate{Count: 1})
	}

	store.InvalidateAll(ctx)

	var got testAggregate
	for _, view := range AllViews {
		if store.Get(ctx, view, "k", &got) {
			t.Fatalf("expected view %s cleared", view)
		}
	}
}

func TestEntriesExpire(t *testing.T) {
	store, mr := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, ViewFunnel, "k", testAggregate{Count: 1})
	mr.FastForward(2 * time.Minute)

	var got testAggregate
	if store.Get(ctx, ViewFunnel, "k", &got) {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisOutageBehavesAsMiss(t *testing.T) {
	store, mr := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, ViewFunnel, "k", testAggregate{Count: 1})
	mr.Close()

	var got testAggregate
	if store.Get(ctx, ViewFunnel, "k", &got) {
		t.Fatalf("expected read failure to behave as a miss")
	}
	// Writes during an outage must not panic or error the caller.
	store.Set(ctx, ViewFunnel, "k2", testAggregate{Count: 2})
	store.InvalidateAll(ctx)
}
