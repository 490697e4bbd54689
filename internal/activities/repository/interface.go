package repository

import (
	"context"
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"

	"github.com/google/uuid"
)

// TaskPage is one offset-bounded slice of the task store plus the
// server-reported total for the filter.
type TaskPage struct {
	Rows  []normalize.TaskRow
	Total int
}

// StatusChange captures the before/after of a task status edit, for event
// publication.
type StatusChange struct {
	TaskID     uuid.UUID
	Branch     string
	OldOutcome string
	NewOutcome string
}

// Repository is the task-store contract the engine consumes.
type Repository interface {
	// ListTasks returns one page of task rows matching the filter plus
	// the total match count.
	ListTasks(ctx context.Context, f domain.Filter, offset, limit int) (TaskPage, error)

	// ListAllTasks returns the full match set, used by the funnel reducer.
	ListAllTasks(ctx context.Context, f domain.Filter) ([]normalize.TaskRow, error)

	// CountDistinctClients returns the number of distinct clients matching
	// the filter, the server-reported total for the client rollup view.
	CountDistinctClients(ctx context.Context, f domain.Filter) (int, error)

	// UpdateTaskStatus edits the sales state of a task and reports the
	// transition.
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, confirmed *bool, outcome domain.Outcome) (StatusChange, error)

	// DeleteTask soft-deletes a task and returns its branch for cache
	// scoping.
	DeleteTask(ctx context.Context, id uuid.UUID) (string, error)
}

// clampPeriod widens zero bounds to the store's full range.
func clampPeriod(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return from, to
}
