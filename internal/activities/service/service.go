package service

import (
	"context"
	"sync"
	"time"

	"fieldsales_backend/internal/activities/cache"
	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/ports"
	"fieldsales_backend/internal/activities/repository"
	"fieldsales_backend/internal/events"
	"fieldsales_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Mode selects how a feed request is served.
type Mode string

const (
	// ModeFirst serves the current state, loading the first page or the
	// cached complete aggregate when the session is new.
	ModeFirst Mode = "first"
	// ModeMore advances the feed by one page.
	ModeMore Mode = "more"
	// ModeReset abandons the session and reloads from the first page.
	ModeReset Mode = "reset"
)

const invalidateTimeout = time.Minute

// Service coordinates the engine: it owns the feed sessions, computes
// funnels and client rollups, maintains the aggregate cache and reacts
// to mutations in either store.
type Service struct {
	repo     repository.Repository
	opps     ports.OpportunityReader
	rec      *Reconciler
	cache    *cache.Store
	bus      events.Bus
	log      *logger.Logger
	pageSize int

	mu      sync.Mutex
	feeds   map[string]*Feed
	funnels map[string]domain.Filter
}

// New creates the engine service.
func New(
	repo repository.Repository,
	opps ports.OpportunityReader,
	norm *normalize.Normalizer,
	cacheStore *cache.Store,
	bus events.Bus,
	log *logger.Logger,
	pageSize int,
) *Service {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Service{
		repo:     repo,
		opps:     opps,
		rec:      NewReconciler(norm, log),
		cache:    cacheStore,
		bus:      bus,
		log:      log,
		pageSize: pageSize,
		feeds:    make(map[string]*Feed),
		funnels:  make(map[string]domain.Filter),
	}
}

// feedKey scopes feed sessions per view: the flat activity list and the
// client rollup page independently over the same filter.
func feedKey(view string, f domain.Filter) string {
	return view + "|" + f.CacheKey()
}

// feedFor returns the feed session for a view and filter, creating one
// when needed, and reports whether it already existed.
func (s *Service) feedFor(view string, f domain.Filter) (*Feed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := feedKey(view, f)
	fd, ok := s.feeds[key]
	if !ok {
		fd = newFeed(f, s.pageSize, s.repo, s.opps, s.rec)
		s.feeds[key] = fd
	}
	return fd, ok
}

// feedSnapshot drives one view's feed session through the requested mode
// and returns the resulting state.
func (s *Service) feedSnapshot(ctx context.Context, view string, f domain.Filter, mode Mode) (Snapshot, error) {
	fd, existed := s.feedFor(view, f)
	switch mode {
	case ModeReset:
		fd.Reset()
	case ModeFirst:
		// A repeated first request serves current state without
		// advancing an already primed session.
		if existed && fd.Primed() && fd.Err() == nil {
			return fd.Snapshot(), nil
		}
	case ModeMore:
	}

	if err := fd.FetchNextPage(ctx); err != nil {
		return Snapshot{}, err
	}
	return fd.Snapshot(), nil
}

// Activities serves the paginated activity feed for a filter.
//
// A new session first consults the cache: a previously completed
// aggregate for the same filter is served as-is without touching the
// stores. Otherwise the feed session loads pages on demand; once a
// session completes, its snapshot is cached for the next session.
func (s *Service) Activities(ctx context.Context, f domain.Filter, mode Mode) (Snapshot, error) {
	key := f.CacheKey()

	if mode == ModeFirst {
		s.mu.Lock()
		_, ok := s.feeds[feedKey(cache.ViewActivities, f)]
		s.mu.Unlock()
		if !ok {
			var cached Snapshot
			if s.cache.Get(ctx, cache.ViewActivities, key, &cached) && cached.Complete {
				return cached, nil
			}
		}
	}

	snap, err := s.feedSnapshot(ctx, cache.ViewActivities, f, mode)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Complete {
		s.cache.Set(ctx, cache.ViewActivities, key, snap)
	}
	return snap, nil
}

// ClientsSnapshot is the clients view built from a feed session.
type ClientsSnapshot struct {
	Clients    []ClientRollup `json:"clients"`
	TotalCount int            `json:"totalCount"`
	HasMore    bool           `json:"hasMore"`
	Complete   bool           `json:"complete"`

	SkippedRecords int `json:"skippedRecords"`
	Conflicts      int `json:"conflicts"`
}

// Clients serves the per-client rollup view. It pages independently from
// the flat activity feed over its own session. While the session is
// incomplete the total falls back to the store's distinct client count.
func (s *Service) Clients(ctx context.Context, f domain.Filter, mode Mode) (ClientsSnapshot, error) {
	key := f.CacheKey()

	if mode == ModeFirst {
		s.mu.Lock()
		_, ok := s.feeds[feedKey(cache.ViewClients, f)]
		s.mu.Unlock()
		if !ok {
			var cached ClientsSnapshot
			if s.cache.Get(ctx, cache.ViewClients, key, &cached) && cached.Complete {
				return cached, nil
			}
		}
	}

	snap, err := s.feedSnapshot(ctx, cache.ViewClients, f, mode)
	if err != nil {
		return ClientsSnapshot{}, err
	}

	rollups := BuildClientRollups(snap.Items)
	total := snap.ClientTotal
	if snap.Complete {
		total = len(rollups)
	}

	out := ClientsSnapshot{
		Clients:        rollups,
		TotalCount:     total,
		HasMore:        snap.HasMore,
		Complete:       snap.Complete,
		SkippedRecords: snap.SkippedRecords,
		Conflicts:      snap.Conflicts,
	}
	if out.Complete {
		s.cache.Set(ctx, cache.ViewClients, key, out)
	}
	return out, nil
}

// Funnel serves the funnel reduction for a filter, from cache when
// possible. Every served filter is remembered so invalidation can warm
// it again.
func (s *Service) Funnel(ctx context.Context, f domain.Filter) (Funnel, error) {
	key := f.CacheKey()

	s.mu.Lock()
	s.funnels[key] = f
	s.mu.Unlock()

	var fn Funnel
	if s.cache.Get(ctx, cache.ViewFunnel, key, &fn) {
		return fn, nil
	}
	return s.computeFunnel(ctx, f)
}

// WarmFunnel recomputes and caches the funnel for a filter, bypassing
// any cached value. Used by the scheduler and after invalidation.
func (s *Service) WarmFunnel(ctx context.Context, f domain.Filter) (Funnel, error) {
	return s.computeFunnel(ctx, f)
}

func (s *Service) computeFunnel(ctx context.Context, f domain.Filter) (Funnel, error) {
	var (
		taskRows []normalize.TaskRow
		oppRows  []normalize.OpportunityRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		taskRows, err = s.repo.ListAllTasks(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		oppRows, err = s.opps.ListByBranchPeriod(gctx, f.Branch, f.From, f.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return Funnel{}, err
	}

	res := s.rec.Reconcile(taskRows, oppRows)
	all := append(res.Tasks, res.Standalone...)
	fn := ComputeFunnel(all, res.Skipped, res.Conflicts)

	s.cache.Set(ctx, cache.ViewFunnel, f.CacheKey(), fn)
	return fn, nil
}

// UpdateStatus edits the sales state of a task and publishes the change
// synchronously, so caches are coherent before the call returns.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, confirmed *bool, outcome domain.Outcome) (repository.StatusChange, error) {
	change, err := s.repo.UpdateTaskStatus(ctx, id, confirmed, outcome)
	if err != nil {
		return repository.StatusChange{}, err
	}

	ev := events.TaskStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		TaskID:     change.TaskID,
		Branch:     change.Branch,
		OldOutcome: change.OldOutcome,
		NewOutcome: change.NewOutcome,
	}
	if err := s.bus.PublishSync(ctx, ev); err != nil {
		s.log.Error("publish task status change", "taskId", change.TaskID, "error", err)
	}
	return change, nil
}

// Delete removes a task-backed activity and publishes the deletion
// synchronously.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	branch, err := s.repo.DeleteTask(ctx, id)
	if err != nil {
		return err
	}

	ev := events.ActivityDeleted{
		BaseEvent:  events.NewBaseEvent(),
		ActivityID: id,
		Branch:     branch,
	}
	if err := s.bus.PublishSync(ctx, ev); err != nil {
		s.log.Error("publish activity deletion", "activityId", id, "error", err)
	}
	return nil
}

// InvalidateFor reacts to a mutation scoped to a branch: every cached
// view is dropped, feed sessions whose filter can see the branch reload
// up to their current position, and served funnels are recomputed, all
// in the background.
func (s *Service) InvalidateFor(ctx context.Context, branch string) {
	s.cache.InvalidateAll(ctx)

	s.mu.Lock()
	var feeds []*Feed
	for _, fd := range s.feeds {
		if fd.Filter().MatchesBranch(branch) {
			feeds = append(feeds, fd)
		}
	}
	var funnels []domain.Filter
	for _, f := range s.funnels {
		if f.MatchesBranch(branch) {
			funnels = append(funnels, f)
		}
	}
	s.mu.Unlock()

	for _, fd := range feeds {
		go func(fd *Feed) {
			bg, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
			defer cancel()
			if err := fd.Refresh(bg); err != nil {
				s.log.StoreError("refresh feed after invalidation", err)
			}
		}(fd)
	}
	for _, f := range funnels {
		go func(f domain.Filter) {
			bg, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
			defer cancel()
			if _, err := s.computeFunnel(bg, f); err != nil {
				s.log.StoreError("warm funnel after invalidation", err)
			}
		}(f)
	}
}
