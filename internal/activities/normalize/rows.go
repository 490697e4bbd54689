// Package normalize converts the two raw store shapes (task rows and
// standalone opportunity rows) into the canonical Activity. Each variant
// has its own explicit normalization function; downstream code never sees
// a raw row.
package normalize

import (
	"time"

	"github.com/google/uuid"
)

// ItemRow is a raw product line as read from the store.
type ItemRow struct {
	Description    string
	Selected       bool
	Quantity       float64
	UnitPriceCents int64
}

// TaskRow is the raw shape of a consultant task record. TaskType and
// Filial carry the store's legacy vocabulary.
type TaskRow struct {
	ID          uuid.UUID
	TaskType    string
	Client      string
	ClientPhone string
	Responsible string
	Filial      string

	IsProspect     bool
	SalesConfirmed *bool
	SalesOutcome   string

	TotalValueCents   int64
	PartialValueCents int64

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []ItemRow
}

// OpportunityRow is the raw shape of a standalone opportunity record.
// TaskID links back to the task that spawned it, when one exists; the
// status is a display label from a closed vocabulary.
type OpportunityRow struct {
	ID     uuid.UUID
	TaskID *uuid.UUID

	Client      string
	ClientPhone string
	Responsible string
	Branch      string

	StatusLabel string

	TotalValueCents   int64
	PartialValueCents int64

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []ItemRow
}
