// Package repository implements the task-store access layer with PostgreSQL.
package repository

import (
	"context"
	"errors"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskNotFoundMessage = "task not found"
const taskStoreUnavailableMessage = "task store unavailable"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new task-store repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const taskColumns = `
	id, task_type, client_name, client_phone, responsible, consultant_id, branch,
	is_prospect, sales_confirmed, sales_outcome,
	total_value_cents, partial_value_cents, created_at, updated_at`

const taskFilterClause = `
	deleted_at IS NULL
	AND created_at >= $1 AND created_at <= $2
	AND ($3::text IS NULL OR consultant_id = $3)
	AND ($4::text IS NULL OR branch = $4)
	AND ($5::text IS NULL OR task_type = $5)`

func filterArgs(f domain.Filter) []interface{} {
	from, to := clampPeriod(f.From, f.To)

	var consultant interface{}
	if f.ConsultantID != "" {
		consultant = f.ConsultantID
	}
	var branch interface{}
	if f.Branch != "" {
		branch = f.Branch
	}
	var taskType interface{}
	if f.Kind != "" {
		taskType = taskTypeForKind(f.Kind)
	}

	return []interface{}{from, to, consultant, branch, taskType}
}

// taskTypeForKind inverts the normalizer's task-type mapping for filtering.
func taskTypeForKind(kind domain.Kind) string {
	switch kind {
	case domain.KindCall:
		return "ligacao"
	case domain.KindChecklist:
		return "checklist"
	default:
		return "prospection"
	}
}

// ListTasks returns one offset page of task rows plus the total match count.
func (r *Repo) ListTasks(ctx context.Context, f domain.Filter, offset, limit int) (TaskPage, error) {
	args := filterArgs(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM sales_tasks WHERE` + taskFilterClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return TaskPage{}, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("count tasks")
	}

	query := `SELECT` + taskColumns + ` FROM sales_tasks WHERE` + taskFilterClause + `
		ORDER BY created_at DESC, id
		LIMIT $6 OFFSET $7`

	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return TaskPage{}, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("list tasks")
	}
	defer rows.Close()

	taskRows, err := scanTaskRows(rows)
	if err != nil {
		return TaskPage{}, err
	}

	if err := r.attachItems(ctx, taskRows); err != nil {
		return TaskPage{}, err
	}

	return TaskPage{Rows: taskRows, Total: total}, nil
}

// ListAllTasks returns the full match set for the filter.
func (r *Repo) ListAllTasks(ctx context.Context, f domain.Filter) ([]normalize.TaskRow, error) {
	query := `SELECT` + taskColumns + ` FROM sales_tasks WHERE` + taskFilterClause + `
		ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, filterArgs(f)...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("list all tasks")
	}
	defer rows.Close()

	taskRows, err := scanTaskRows(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, taskRows); err != nil {
		return nil, err
	}

	return taskRows, nil
}

// CountDistinctClients returns the distinct client count for the filter.
func (r *Repo) CountDistinctClients(ctx context.Context, f domain.Filter) (int, error) {
	query := `SELECT COUNT(DISTINCT client_name) FROM sales_tasks WHERE` + taskFilterClause

	var total int
	if err := r.pool.QueryRow(ctx, query, filterArgs(f)...).Scan(&total); err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("count clients")
	}
	return total, nil
}

// UpdateTaskStatus edits the sales state of a task.
func (r *Repo) UpdateTaskStatus(ctx context.Context, id uuid.UUID, confirmed *bool, outcome domain.Outcome) (StatusChange, error) {
	var outcomeParam interface{}
	if outcome != "" {
		outcomeParam = string(outcome)
	}

	query := `
		UPDATE sales_tasks t
		SET sales_confirmed = $2::boolean,
			sales_outcome = $3::text,
			is_prospect = ($2::boolean IS NULL AND $3::text IS NULL),
			updated_at = now()
		FROM (
			SELECT id, COALESCE(sales_outcome, '') AS old_outcome
			FROM sales_tasks
			WHERE id = $1 AND deleted_at IS NULL
		) prev
		WHERE t.id = prev.id
		RETURNING t.id, t.branch, prev.old_outcome, COALESCE(t.sales_outcome, '')`

	var change StatusChange
	err := r.pool.QueryRow(ctx, query, id, confirmed, outcomeParam).Scan(
		&change.TaskID, &change.Branch, &change.OldOutcome, &change.NewOutcome,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StatusChange{}, apperr.NotFound(taskNotFoundMessage)
		}
		return StatusChange{}, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("update task status")
	}

	return change, nil
}

// DeleteTask soft-deletes a task and reports its branch.
func (r *Repo) DeleteTask(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		UPDATE sales_tasks
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING branch`

	var branch string
	err := r.pool.QueryRow(ctx, query, id).Scan(&branch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound(taskNotFoundMessage)
		}
		return "", apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("delete task")
	}

	return branch, nil
}

func scanTaskRows(rows pgx.Rows) ([]normalize.TaskRow, error) {
	taskRows := make([]normalize.TaskRow, 0)
	for rows.Next() {
		var tr normalize.TaskRow
		var confirmed *bool
		var outcome *string
		var consultantID *string

		err := rows.Scan(
			&tr.ID, &tr.TaskType, &tr.Client, &tr.ClientPhone, &tr.Responsible, &consultantID, &tr.Filial,
			&tr.IsProspect, &confirmed, &outcome,
			&tr.TotalValueCents, &tr.PartialValueCents, &tr.CreatedAt, &tr.UpdatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("scan task")
		}

		tr.SalesConfirmed = confirmed
		if outcome != nil {
			tr.SalesOutcome = *outcome
		}
		taskRows = append(taskRows, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("scan tasks")
	}
	return taskRows, nil
}

// attachItems loads product lines for a set of task rows in one query.
func (r *Repo) attachItems(ctx context.Context, taskRows []normalize.TaskRow) error {
	if len(taskRows) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(taskRows))
	index := make(map[uuid.UUID]int, len(taskRows))
	for i, tr := range taskRows {
		ids = append(ids, tr.ID)
		index[tr.ID] = i
	}

	query := `
		SELECT task_id, description, is_selected, quantity, unit_price_cents
		FROM task_items
		WHERE task_id = ANY($1)
		ORDER BY task_id, position`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("list task items")
	}
	defer rows.Close()

	for rows.Next() {
		var taskID uuid.UUID
		var item normalize.ItemRow
		if err := rows.Scan(&taskID, &item.Description, &item.Selected, &item.Quantity, &item.UnitPriceCents); err != nil {
			return apperr.Wrap(apperr.KindUnavailable, taskStoreUnavailableMessage, err).WithOp("scan task item")
		}
		if i, ok := index[taskID]; ok {
			taskRows[i].Items = append(taskRows[i].Items, item)
		}
	}
	return rows.Err()
}
