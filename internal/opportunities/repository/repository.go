// Package repository implements the standalone opportunity store access
// layer with PostgreSQL.
package repository

import (
	"context"
	"errors"
	"time"

	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const oppNotFoundMessage = "opportunity not found"
const oppStoreUnavailableMessage = "opportunity store unavailable"

// ItemRecord is one stored product line with its row identity, needed by
// the selection-update API.
type ItemRecord struct {
	ID             uuid.UUID
	Description    string
	Selected       bool
	Quantity       float64
	UnitPriceCents int64
}

// Record is one stored opportunity plus its identified line items. Row
// carries the same lines without ids for the reconciliation port.
type Record struct {
	Row   normalize.OpportunityRow
	Items []ItemRecord
}

// UpdateInput is the single mutation the opportunity store supports:
// a new status label, stored values and the set of selected lines.
// A nil SelectedItemIDs leaves the selection untouched.
type UpdateInput struct {
	StatusLabel       string
	TotalValueCents   int64
	PartialValueCents int64
	SelectedItemIDs   []uuid.UUID
}

// UpdateResult reports the transition for event publication.
type UpdateResult struct {
	OpportunityID  uuid.UUID
	TaskID         *uuid.UUID
	Branch         string
	OldStatusLabel string
	NewStatusLabel string
}

// Repo implements the opportunity store with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new opportunity-store repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const oppColumns = `
	id, task_id, client_name, client_phone, responsible, branch, status_label,
	total_value_cents, partial_value_cents, created_at, updated_at`

const oppFilterClause = `
	deleted_at IS NULL
	AND created_at >= $1 AND created_at <= $2
	AND ($3::text IS NULL OR branch = $3)`

func filterArgs(branch string, from, to time.Time) []interface{} {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	var branchParam interface{}
	if branch != "" {
		branchParam = branch
	}
	return []interface{}{from, to, branchParam}
}

// List returns the full match set for a branch and period, items
// included. The opportunity side is never paginated.
func (r *Repo) List(ctx context.Context, branch string, from, to time.Time) ([]Record, error) {
	query := `SELECT` + oppColumns + ` FROM opportunities WHERE` + oppFilterClause + `
		ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, filterArgs(branch, from, to)...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("list opportunities")
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByBranchPeriod implements the reconciliation port of the
// activities module.
func (r *Repo) ListByBranchPeriod(ctx context.Context, branch string, from, to time.Time) ([]normalize.OpportunityRow, error) {
	records, err := r.List(ctx, branch, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]normalize.OpportunityRow, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Row)
	}
	return out, nil
}

// Get loads one opportunity with its items.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	query := `SELECT` + oppColumns + ` FROM opportunities
		WHERE id = $1 AND deleted_at IS NULL`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return Record{}, apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("get opportunity")
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, apperr.NotFound(oppNotFoundMessage)
	}

	if err := r.attachItems(ctx, records); err != nil {
		return Record{}, err
	}
	return records[0], nil
}

// Update applies the status label, stored values and line selection in
// one transaction and reports the transition.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (UpdateResult, error) {
	var result UpdateResult

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE opportunities o
			SET status_label = $2,
				total_value_cents = $3,
				partial_value_cents = $4,
				updated_at = now()
			FROM (
				SELECT id, status_label AS old_label
				FROM opportunities
				WHERE id = $1 AND deleted_at IS NULL
			) prev
			WHERE o.id = prev.id
			RETURNING o.id, o.task_id, o.branch, prev.old_label, o.status_label`

		err := tx.QueryRow(ctx, query, id, in.StatusLabel, in.TotalValueCents, in.PartialValueCents).Scan(
			&result.OpportunityID, &result.TaskID, &result.Branch,
			&result.OldStatusLabel, &result.NewStatusLabel,
		)
		if err != nil {
			return err
		}

		if in.SelectedItemIDs != nil {
			_, err = tx.Exec(ctx, `
				UPDATE opportunity_items
				SET selected = (id = ANY($2))
				WHERE opportunity_id = $1`, id, in.SelectedItemIDs)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UpdateResult{}, apperr.NotFound(oppNotFoundMessage)
		}
		return UpdateResult{}, apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("update opportunity")
	}

	return result, nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	records := make([]Record, 0)
	for rows.Next() {
		var row normalize.OpportunityRow
		err := rows.Scan(
			&row.ID, &row.TaskID, &row.Client, &row.ClientPhone, &row.Responsible,
			&row.Branch, &row.StatusLabel,
			&row.TotalValueCents, &row.PartialValueCents, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("scan opportunity")
		}
		records = append(records, Record{Row: row})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("scan opportunities")
	}
	return records, nil
}

// attachItems loads line items for a set of records in one query.
func (r *Repo) attachItems(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	index := make(map[uuid.UUID]int, len(records))
	for i, rec := range records {
		ids = append(ids, rec.Row.ID)
		index[rec.Row.ID] = i
	}

	query := `
		SELECT opportunity_id, id, description, selected, quantity, unit_price_cents
		FROM opportunity_items
		WHERE opportunity_id = ANY($1)
		ORDER BY opportunity_id, position`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("list opportunity items")
	}
	defer rows.Close()

	for rows.Next() {
		var oppID uuid.UUID
		var item ItemRecord
		if err := rows.Scan(&oppID, &item.ID, &item.Description, &item.Selected, &item.Quantity, &item.UnitPriceCents); err != nil {
			return apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("scan opportunity item")
		}
		i, ok := index[oppID]
		if !ok {
			continue
		}
		records[i].Items = append(records[i].Items, item)
		records[i].Row.Items = append(records[i].Row.Items, normalize.ItemRow{
			Description:    item.Description,
			Selected:       item.Selected,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	if err := rows.Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, oppStoreUnavailableMessage, err).WithOp("scan opportunity items")
	}
	return nil
}
