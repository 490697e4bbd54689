package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/repository"
	"fieldsales_backend/internal/events"
	"fieldsales_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.New(client, time.Minute, logger.New("development"))
}

func newTestService(t *testing.T, repo *fakeRepo, opps *fakeOpps, store *cache.Store) (*Service, events.Bus) {
	t.Helper()
	log := logger.New("development")
	bus := newSyncBus()
	svc := New(repo, opps, normalize.New("BR"), store, bus, log, 2)
	return svc, bus
}

// syncBus delivers Publish synchronously so tests never race against
// handler goroutines.
type syncBus struct {
	mu       sync.Mutex
	handlers map[string][]events.Handler
	events   []events.Event
}

func newSyncBus() *syncBus {
	return &syncBus{handlers: make(map[string][]events.Handler)}
}

func (b *syncBus) Subscribe(name string, h events.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *syncBus) Publish(ctx context.Context, ev events.Event) {
	_ = b.PublishSync(ctx, ev)
}

func (b *syncBus) PublishSync(ctx context.Context, ev events.Event) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	handlers := b.handlers[ev.EventName()]
	b.mu.Unlock()
	for _, h := range handlers {
		if err := h.Handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (b *syncBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

func (r *fakeRepo) allCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listAllCalls
}

func TestFunnelServedFromCache(t *testing.T) {
	repo := &fakeRepo{rows: taskRows(3)}
	svc, _ := newTestService(t, repo, &fakeOpps{}, newTestCache(t))
	ctx := context.Background()
	f := domain.Filter{Branch: "sp-01"}

	first, err := svc.Funnel(ctx, f)
	if err != nil {
		t.Fatalf("first funnel: %v", err)
	}
	second, err := svc.Funnel(ctx, f)
	if err != nil {
		t.Fatalf("second funnel: %v", err)
	}

	if repo.allCalls() != 1 {
		t.Fatalf("second funnel must come from cache, got %d store reads", repo.allCalls())
	}
	if first.Visits.Count != second.Visits.Count {
		t.Fatalf("cached funnel diverges: %+v vs %+v", first, second)
	}
}

func TestActivitiesModeSemantics(t *testing.T) {
	repo := &fakeRepo{rows: taskRows(4)}
	svc, _ := newTestService(t, repo, &fakeOpps{}, newTestCache(t))
	ctx := context.Background()
	f := domain.Filter{Branch: "sp-01"}

	snap, err := svc.Activities(ctx, f, ModeFirst)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if len(snap.Items) != 2 || !snap.HasMore {
		t.Fatalf("first page: %+v", snap)
	}

	// A repeated first request serves current state without advancing.
	again, err := svc.Activities(ctx, f, ModeFirst)
	if err != nil {
		t.Fatalf("repeat first: %v", err)
	}
	if len(again.Items) != 2 {
		t.Fatalf("repeated first request advanced the feed: %d items", len(again.Items))
	}

	more, err := svc.Activities(ctx, f, ModeMore)
	if err != nil {
		t.Fatalf("more: %v", err)
	}
	if len(more.Items) != 4 || !more.Complete {
		t.Fatalf("second page: %+v", more)
	}

	reset, err := svc.Activities(ctx, f, ModeReset)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(reset.Items) != 2 || !reset.HasMore {
		t.Fatalf("reset should restart from the first page: %+v", reset)
	}
}

func TestCompletedActivitiesSnapshotServedFromCacheAcrossSessions(t *testing.T) {
	store := newTestCache(t)
	repo := &fakeRepo{rows: taskRows(2)}
	svc, _ := newTestService(t, repo, &fakeOpps{}, store)
	ctx := context.Background()
	f := domain.Filter{Branch: "sp-01"}

	snap, err := svc.Activities(ctx, f, ModeFirst)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Complete {
		t.Fatalf("small set should complete in one page: %+v", snap)
	}

	// A fresh service sharing the cache must not touch the stores.
	broken := &fakeRepo{}
	broken.setErr(context.DeadlineExceeded)
	svc2, _ := newTestService(t, broken, &fakeOpps{err: context.DeadlineExceeded}, store)

	cached, err := svc2.Activities(ctx, f, ModeFirst)
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if !cached.Complete || len(cached.Items) != 2 {
		t.Fatalf("cached snapshot mismatch: %+v", cached)
	}
}

func TestClientsViewRollsUpFeed(t *testing.T) {
	rows := taskRows(3)
	rows[0].Client = "acme"
	rows[1].Client = "acme"
	rows[2].Client = "globex"
	repo := &fakeRepo{rows: rows}
	svc, _ := newTestService(t, repo, &fakeOpps{}, newTestCache(t))
	ctx := context.Background()
	f := domain.Filter{}

	snap, err := svc.Clients(ctx, f, ModeFirst)
	if err != nil {
		t.Fatalf("clients: %v", err)
	}
	if snap.Complete {
		t.Fatalf("page size 2 of 3 rows should not be complete")
	}
	if snap.TotalCount != 2 {
		t.Fatalf("incomplete view should use the store's distinct count, got %d", snap.TotalCount)
	}

	snap, err = svc.Clients(ctx, f, ModeMore)
	if err != nil {
		t.Fatalf("clients more: %v", err)
	}
	if !snap.Complete || len(snap.Clients) != 2 {
		t.Fatalf("complete rollup: %+v", snap)
	}
}

func TestUpdateStatusPublishesChange(t *testing.T) {
	repo := &fakeRepo{change: repository.StatusChange{
		TaskID:     uuid.New(),
		Branch:     "sp-01",
		OldOutcome: "",
		NewOutcome: "lost",
	}}
	svc, bus := newTestService(t, repo, &fakeOpps{}, newTestCache(t))

	no := false
	_, err := svc.UpdateStatus(context.Background(), repo.change.TaskID, &no, domain.OutcomeLost)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	published := bus.(*syncBus).published()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}
	ev, ok := published[0].(events.TaskStatusChanged)
	if !ok {
		t.Fatalf("unexpected event type %T", published[0])
	}
	if ev.Branch != "sp-01" || ev.NewOutcome != "lost" {
		t.Fatalf("event payload: %+v", ev)
	}
}

func TestInvalidateForDropsCachedFunnel(t *testing.T) {
	repo := &fakeRepo{rows: taskRows(1)}
	svc, _ := newTestService(t, repo, &fakeOpps{}, newTestCache(t))
	ctx := context.Background()
	f := domain.Filter{Branch: "sp-01"}

	fn, err := svc.Funnel(ctx, f)
	if err != nil {
		t.Fatalf("funnel: %v", err)
	}
	if fn.Visits.Count != 1 {
		t.Fatalf("initial funnel: %+v", fn)
	}

	repo.setRows(taskRows(3))
	svc.InvalidateFor(ctx, "sp-01")

	waitFor(t, func() bool {
		fn, err := svc.Funnel(ctx, f)
		return err == nil && fn.Visits.Count == 3
	})
}
