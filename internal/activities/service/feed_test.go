package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/activities/repository"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu           sync.Mutex
	rows         []normalize.TaskRow
	listCalls    int
	listAllCalls int
	gate         chan struct{}
	err          error
	change       repository.StatusChange
	deleteBranch string
}

func (r *fakeRepo) ListTasks(ctx context.Context, f domain.Filter, offset, limit int) (repository.TaskPage, error) {
	r.mu.Lock()
	r.listCalls++
	gate, err, rows := r.gate, r.err, r.rows
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return repository.TaskPage{}, err
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return repository.TaskPage{Rows: rows[offset:end], Total: len(rows)}, nil
}

func (r *fakeRepo) ListAllTasks(ctx context.Context, f domain.Filter) ([]normalize.TaskRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listAllCalls++
	if r.err != nil {
		return nil, r.err
	}
	return r.rows, nil
}

func (r *fakeRepo) CountDistinctClients(ctx context.Context, f domain.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	seen := make(map[string]struct{})
	for _, row := range r.rows {
		seen[row.Client] = struct{}{}
	}
	return len(seen), nil
}

func (r *fakeRepo) UpdateTaskStatus(ctx context.Context, id uuid.UUID, confirmed *bool, outcome domain.Outcome) (repository.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return repository.StatusChange{}, r.err
	}
	return r.change, nil
}

func (r *fakeRepo) DeleteTask(ctx context.Context, id uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return r.deleteBranch, nil
}

func (r *fakeRepo) setRows(rows []normalize.TaskRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = rows
}

func (r *fakeRepo) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

type fakeOpps struct {
	mu   sync.Mutex
	rows []normalize.OpportunityRow
	err  error
}

func (o *fakeOpps) ListByBranchPeriod(ctx context.Context, branch string, from, to time.Time) ([]normalize.OpportunityRow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return o.rows, nil
}

func taskRows(n int) []normalize.TaskRow {
	rows := make([]normalize.TaskRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, normalize.TaskRow{
			ID:       uuid.New(),
			TaskType: "prospection",
			Client:   "client",
		})
	}
	return rows
}

func newTestFeed(repo *fakeRepo, opps *fakeOpps, pageSize int) *Feed {
	return newFeed(domain.Filter{}, pageSize, repo, opps, testReconciler())
}

func TestFeedPaginatesAndDefersStandalone(t *testing.T) {
	rows := taskRows(3)
	claimed := rows[0].ID
	repo := &fakeRepo{rows: rows}
	opps := &fakeOpps{rows: []normalize.OpportunityRow{
		{ID: uuid.New(), TaskID: &claimed, StatusLabel: normalize.LabelFullSale},
		{ID: uuid.New(), StatusLabel: normalize.LabelPartialSale},
	}}
	fd := newTestFeed(repo, opps, 2)
	ctx := context.Background()

	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("first page: %v", err)
	}
	snap := fd.Snapshot()
	if len(snap.Items) != 2 {
		t.Fatalf("standalone must not appear before exhaustion, got %d items", len(snap.Items))
	}
	if !snap.HasMore || snap.Complete {
		t.Fatalf("feed should report more pages: %+v", snap)
	}
	if snap.TotalCount != 4 {
		t.Fatalf("expected approximate total 4 (3 tasks + 1 unclaimed), got %d", snap.TotalCount)
	}

	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("second page: %v", err)
	}
	snap = fd.Snapshot()
	if !snap.Complete || snap.HasMore {
		t.Fatalf("feed should be complete: %+v", snap)
	}
	if len(snap.Items) != 4 {
		t.Fatalf("expected 3 tasks + 1 standalone, got %d", len(snap.Items))
	}
	if !snap.Items[3].Standalone() {
		t.Fatalf("standalone item must come after all task items")
	}
	if snap.TotalCount != 4 {
		t.Fatalf("expected exact total 4, got %d", snap.TotalCount)
	}
}

func TestFeedDuplicateFetchIsNoOp(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{rows: taskRows(4), gate: gate}
	fd := newTestFeed(repo, &fakeOpps{}, 2)

	if !fd.TryFetchNextPage() {
		t.Fatalf("first fetch should start")
	}
	if fd.TryFetchNextPage() {
		t.Fatalf("second fetch must be a no-op while one is in flight")
	}

	close(gate)
	waitFor(t, func() bool { return len(fd.Snapshot().Items) == 2 })
	if repo.calls() != 1 {
		t.Fatalf("duplicate fetch must not hit the store, got %d calls", repo.calls())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedResetDiscardsInFlightResults(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{rows: taskRows(4), gate: gate}
	fd := newTestFeed(repo, &fakeOpps{}, 2)
	ctx := context.Background()

	if !fd.TryFetchNextPage() {
		t.Fatalf("fetch should start")
	}
	fd.Reset()
	close(gate)

	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("first page after reset: %v", err)
	}
	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("second page after reset: %v", err)
	}

	snap := fd.Snapshot()
	if len(snap.Items) != 4 {
		t.Fatalf("stale results must be discarded, got %d items", len(snap.Items))
	}
	seen := make(map[uuid.UUID]struct{})
	for _, a := range snap.Items {
		if _, dup := seen[a.ID]; dup {
			t.Fatalf("duplicate item %s after reset", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
}

func TestFeedRefreshReloadsToPosition(t *testing.T) {
	repo := &fakeRepo{rows: taskRows(6)}
	fd := newTestFeed(repo, &fakeOpps{}, 2)
	ctx := context.Background()

	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("page 2: %v", err)
	}

	fresh := taskRows(6)
	fresh[0].Client = "renamed client"
	repo.setRows(fresh)

	if err := fd.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := fd.Snapshot()
	if len(snap.Items) != 4 {
		t.Fatalf("refresh should reload to previous position, got %d items", len(snap.Items))
	}
	if snap.Items[0].Client != "renamed client" {
		t.Fatalf("refresh must serve fresh data, got %q", snap.Items[0].Client)
	}
}

func TestFeedErrorIsSurfacedAndRetryable(t *testing.T) {
	repo := &fakeRepo{rows: taskRows(2)}
	repo.setErr(context.DeadlineExceeded)
	opps := &fakeOpps{rows: []normalize.OpportunityRow{{ID: uuid.New(), StatusLabel: normalize.LabelProspect}}}
	fd := newTestFeed(repo, opps, 5)
	ctx := context.Background()

	if err := fd.FetchNextPage(ctx); err == nil {
		t.Fatalf("expected load error")
	}
	if fd.Primed() {
		t.Fatalf("failed first load must not prime the feed")
	}

	repo.setErr(nil)
	if err := fd.FetchNextPage(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	snap := fd.Snapshot()
	if !snap.Complete || len(snap.Items) != 3 {
		t.Fatalf("retry should load tasks and standalone: %+v", snap)
	}
}
