// Package service implements the valuation engine use cases: reconciling
// the two record stores, paginated feed aggregation, the funnel reducer,
// client rollups and cache coordination.
package service

import (
	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/platform/logger"

	"github.com/google/uuid"
)

// Reconciler merges task rows and standalone opportunity rows into one
// deduplicated activity set. Task rows are authoritative: a standalone
// opportunity claimed by a loaded task is dropped, its task row already
// represents the engagement.
type Reconciler struct {
	norm *normalize.Normalizer
	log  *logger.Logger
}

// NewReconciler creates a reconciler using the given normalizer.
func NewReconciler(norm *normalize.Normalizer, log *logger.Logger) *Reconciler {
	return &Reconciler{norm: norm, log: log}
}

// ReconcileResult is the outcome of a full reconciliation pass. Tasks and
// Standalone preserve their input order; Skipped counts malformed rows
// dropped during normalization and Conflicts counts opportunities that
// claim a task absent from the loaded set.
type ReconcileResult struct {
	Tasks      []domain.Activity
	Standalone []domain.Activity
	Skipped    int
	Conflicts  int
}

// NormalizeTasks converts task rows to activities, skipping malformed
// rows. The skip count is returned alongside so aggregates can report
// how much input was dropped.
func (r *Reconciler) NormalizeTasks(rows []normalize.TaskRow) ([]domain.Activity, int) {
	out := make([]domain.Activity, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		a, err := r.norm.Task(row)
		if err != nil {
			skipped++
			r.log.SkippedRecord("task", row.ID.String(), err)
			continue
		}
		out = append(out, a)
	}
	return out, skipped
}

// ResolveStandalone filters opportunity rows against the complete set of
// loaded task ids. An unclaimed row (nil task id) is kept standalone. A
// row claiming a loaded task is dropped as a duplicate. A row claiming a
// task that is not in the loaded set is a conflict: the link is dangling,
// so the record is kept standalone rather than silently lost, and the
// conflict is logged and counted.
func (r *Reconciler) ResolveStandalone(taskIDs map[uuid.UUID]struct{}, rows []normalize.OpportunityRow) (standalone []domain.Activity, skipped, conflicts int) {
	standalone = make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		if row.TaskID != nil {
			if _, claimed := taskIDs[*row.TaskID]; claimed {
				continue
			}
			conflicts++
			r.log.ReconcileConflict(row.ID.String(), row.TaskID.String())
		}

		a, err := r.norm.Opportunity(row)
		if err != nil {
			skipped++
			r.log.SkippedRecord("opportunity", row.ID.String(), err)
			continue
		}
		standalone = append(standalone, a)
	}
	return standalone, skipped, conflicts
}

// Reconcile runs a full pass over complete row sets from both stores.
// Partial loads (the paginated feed) use NormalizeTasks per page and
// ResolveStandalone once, after the task side is exhausted.
func (r *Reconciler) Reconcile(tasks []normalize.TaskRow, opps []normalize.OpportunityRow) ReconcileResult {
	acts, skipped := r.NormalizeTasks(tasks)

	taskIDs := make(map[uuid.UUID]struct{}, len(acts))
	for _, a := range acts {
		taskIDs[a.ID] = struct{}{}
	}

	standalone, oppSkipped, conflicts := r.ResolveStandalone(taskIDs, opps)

	return ReconcileResult{
		Tasks:      acts,
		Standalone: standalone,
		Skipped:    skipped + oppSkipped,
		Conflicts:  conflicts,
	}
}
