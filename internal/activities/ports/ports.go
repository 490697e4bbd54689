// Package ports declares the interfaces the activities module needs from
// other modules, keeping the engine decoupled from their implementations.
package ports

import (
	"context"
	"time"

	"fieldsales_backend/internal/activities/normalize"
)

// OpportunityReader loads standalone opportunity rows for reconciliation.
// The opportunity side is never paginated: a call returns the full match
// set for the given branch and period.
type OpportunityReader interface {
	ListByBranchPeriod(ctx context.Context, branch string, from, to time.Time) ([]normalize.OpportunityRow, error)
}
