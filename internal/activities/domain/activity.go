// Package domain holds the canonical Activity model and the pure
// classification and valuation rules of the sales funnel engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the contact type of an activity.
type Kind string

const (
	KindVisit     Kind = "visit"
	KindCall      Kind = "call"
	KindChecklist Kind = "checklist"
)

// Outcome is the recorded sales outcome of a confirmed opportunity.
// The empty string means no outcome has been recorded yet.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomePartial Outcome = "partial"
	OutcomeLost    Outcome = "lost"
)

// LineItem is one priced product line attached to an activity.
// Selected marks lines the client actually committed to.
type LineItem struct {
	Description    string  `json:"description"`
	Selected       bool    `json:"selected"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unitPriceCents"`
}

// Activity is the canonical reconciled record representing one client
// opportunity touchpoint. Both task rows and standalone opportunity rows
// normalize into this shape; identity fields are never empty after
// normalization.
type Activity struct {
	ID            uuid.UUID  `json:"id"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`

	Client      string `json:"client"`
	ClientPhone string `json:"clientPhone"`
	Responsible string `json:"responsible"`
	Branch      string `json:"branch"`

	Kind Kind `json:"kind"`

	IsProspect     bool    `json:"isProspect"`
	SalesConfirmed *bool   `json:"salesConfirmed,omitempty"`
	SalesOutcome   Outcome `json:"salesOutcome,omitempty"`

	TotalValueCents   int64 `json:"totalValueCents"`
	PartialValueCents int64 `json:"partialValueCents"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	LineItems []LineItem `json:"lineItems"`
}

// Standalone reports whether this activity is backed by a standalone
// opportunity record rather than a task row.
func (a Activity) Standalone() bool {
	return a.OpportunityID != nil && *a.OpportunityID == a.ID
}
