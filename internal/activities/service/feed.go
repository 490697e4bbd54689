package service

import (
	"context"
	"sync"
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/ports"
	"fieldsales_backend/internal/activities/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const loadTimeout = 30 * time.Second

// Snapshot is the externally visible state of a feed at one point in
// time. TotalCount is exact once Complete; before that it approximates
// the final total as server-reported task total plus the standalone
// opportunities not yet claimed by a loaded task.
type Snapshot struct {
	Items       []domain.Activity `json:"items"`
	TotalCount  int               `json:"totalCount"`
	ClientTotal int               `json:"clientTotal"`
	HasMore     bool              `json:"hasMore"`
	Complete    bool              `json:"complete"`

	SkippedRecords int `json:"skippedRecords"`
	Conflicts      int `json:"conflicts"`
}

// Feed is a stateful paginated aggregation session for one filter. The
// task side loads page by page; the opportunity side loads in full with
// the first page. Standalone opportunities only join the item list after
// the task side is exhausted, because deduplication needs the complete
// task id set.
//
// Loads run one at a time per feed. A Reset bumps the generation counter
// and any load still in flight for a previous generation discards its
// results on completion.
type Feed struct {
	filter   domain.Filter
	pageSize int
	repo     repository.Repository
	opps     ports.OpportunityReader
	rec      *Reconciler

	mu       sync.Mutex
	epoch    int
	inFlight bool
	done     chan struct{}
	primed   bool

	offset      int
	taskTotal   int
	clientTotal int
	exhausted   bool

	tasks      []domain.Activity
	taskIDs    map[uuid.UUID]struct{}
	oppRows    []normalize.OpportunityRow
	standalone []domain.Activity

	skipped   int
	conflicts int
	lastErr   error
}

func newFeed(filter domain.Filter, pageSize int, repo repository.Repository, opps ports.OpportunityReader, rec *Reconciler) *Feed {
	return &Feed{
		filter:   filter,
		pageSize: pageSize,
		repo:     repo,
		opps:     opps,
		rec:      rec,
		taskIDs:  make(map[uuid.UUID]struct{}),
	}
}

// Filter returns the filter this feed serves.
func (f *Feed) Filter() domain.Filter { return f.filter }

// Primed reports whether the current generation has successfully loaded
// its first page.
func (f *Feed) Primed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.primed
}

// Err returns the error of the most recent completed load, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// begin starts a load if none is running and the feed is not exhausted.
// It returns whether a new load was started and the channel that closes
// when the current load (new or already running) completes.
func (f *Feed) begin() (bool, chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight {
		return false, f.done
	}
	if f.exhausted {
		return false, nil
	}

	f.inFlight = true
	f.done = make(chan struct{})
	go f.load(f.epoch, f.offset, !f.primed, f.done)
	return true, f.done
}

// TryFetchNextPage starts the next page load in the background. It is a
// no-op returning false when a load is already running or the feed is
// exhausted, which makes repeated requests for the same page idempotent.
func (f *Feed) TryFetchNextPage() bool {
	started, _ := f.begin()
	return started
}

// FetchNextPage advances the feed by one page and waits for the result.
// If a load is already in flight it waits for that one instead of
// starting another. Returns nil without loading when the feed is already
// exhausted.
func (f *Feed) FetchNextPage(ctx context.Context) error {
	_, done := f.begin()
	if done == nil {
		return f.Err()
	}
	select {
	case <-done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Feed) load(epoch, offset int, first bool, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	var (
		page        repository.TaskPage
		oppRows     []normalize.OpportunityRow
		clientTotal int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = f.repo.ListTasks(gctx, f.filter, offset, f.pageSize)
		return err
	})
	if first {
		g.Go(func() error {
			var err error
			oppRows, err = f.opps.ListByBranchPeriod(gctx, f.filter.Branch, f.filter.From, f.filter.To)
			return err
		})
		g.Go(func() error {
			var err error
			clientTotal, err = f.repo.CountDistinctClients(gctx, f.filter)
			return err
		})
	}
	err := g.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch {
		// A reset happened while loading; these results belong to an
		// abandoned generation.
		return
	}
	f.inFlight = false

	if err != nil {
		f.lastErr = err
		return
	}
	f.lastErr = nil

	acts, skipped := f.rec.NormalizeTasks(page.Rows)
	f.tasks = append(f.tasks, acts...)
	for _, a := range acts {
		f.taskIDs[a.ID] = struct{}{}
	}
	f.skipped += skipped
	f.offset += len(page.Rows)
	f.taskTotal = page.Total
	if first {
		f.oppRows = oppRows
		f.clientTotal = clientTotal
		f.primed = true
	}

	if len(page.Rows) < f.pageSize || f.offset >= f.taskTotal {
		f.exhausted = true
		standalone, oppSkipped, conflicts := f.rec.ResolveStandalone(f.taskIDs, f.oppRows)
		f.standalone = standalone
		f.skipped += oppSkipped
		f.conflicts = conflicts
	}
}

// Reset abandons all loaded state and starts a new generation. A load in
// flight keeps running but its results are discarded when it completes.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epoch++
	f.inFlight = false
	f.done = nil
	f.primed = false
	f.offset = 0
	f.taskTotal = 0
	f.clientTotal = 0
	f.exhausted = false
	f.tasks = nil
	f.taskIDs = make(map[uuid.UUID]struct{})
	f.oppRows = nil
	f.standalone = nil
	f.skipped = 0
	f.conflicts = 0
	f.lastErr = nil
}

// Refresh resets the feed and reloads pages up to the position the
// caller had reached, so an invalidated session resumes where it was
// with fresh data.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	target := f.offset
	f.mu.Unlock()

	f.Reset()
	for {
		if err := f.FetchNextPage(ctx); err != nil {
			return err
		}
		f.mu.Lock()
		caughtUp := f.exhausted || f.offset >= target
		f.mu.Unlock()
		if caughtUp {
			return nil
		}
	}
}

// Snapshot returns the current aggregated state. Task-backed items keep
// store order; standalone opportunities are appended only once the task
// side is exhausted.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]domain.Activity, len(f.tasks))
	copy(items, f.tasks)

	unclaimed := len(f.standalone)
	if f.exhausted {
		items = append(items, f.standalone...)
	} else {
		unclaimed = f.countUnclaimedLocked()
	}

	return Snapshot{
		Items:          items,
		TotalCount:     f.taskTotal + unclaimed,
		ClientTotal:    f.clientTotal,
		HasMore:        !f.exhausted,
		Complete:       f.exhausted,
		SkippedRecords: f.skipped,
		Conflicts:      f.conflicts,
	}
}

// countUnclaimedLocked approximates the standalone count against the
// task ids loaded so far. It can only shrink as more pages claim their
// opportunities.
func (f *Feed) countUnclaimedLocked() int {
	n := 0
	for _, row := range f.oppRows {
		if row.ID == uuid.Nil {
			continue
		}
		if row.TaskID != nil {
			if _, claimed := f.taskIDs[*row.TaskID]; claimed {
				continue
			}
		}
		n++
	}
	return n
}
