// Package transport defines the request and response shapes of the
// activities API.
package transport

import (
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/service"

	"github.com/google/uuid"
)

// FeedQuery is the shared query surface of the feed views. Mode controls
// the feed session: first serves current state, more advances one page,
// reset restarts the session.
type FeedQuery struct {
	From         string `form:"from" validate:"omitempty"`
	To           string `form:"to" validate:"omitempty"`
	ConsultantID string `form:"consultantId" validate:"omitempty,max=100"`
	Branch       string `form:"branch" validate:"omitempty,max=100"`
	Kind         string `form:"kind" validate:"omitempty,oneof=visit call checklist"`
	Mode         string `form:"mode" validate:"omitempty,oneof=first more reset"`
}

// Filter converts the query to the engine filter. Dates accept RFC3339
// timestamps or plain dates.
func (q FeedQuery) Filter() (domain.Filter, error) {
	from, err := parseTime(q.From)
	if err != nil {
		return domain.Filter{}, err
	}
	to, err := parseTime(q.To)
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{
		From:         from,
		To:           to,
		ConsultantID: q.ConsultantID,
		Branch:       q.Branch,
		Kind:         domain.Kind(q.Kind),
	}, nil
}

// FeedMode returns the requested feed mode, defaulting to first.
func (q FeedQuery) FeedMode() service.Mode {
	switch q.Mode {
	case string(service.ModeMore):
		return service.ModeMore
	case string(service.ModeReset):
		return service.ModeReset
	default:
		return service.ModeFirst
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// UpdateStatusRequest edits a task's sales state. Both fields nil resets
// the task to an open prospect.
type UpdateStatusRequest struct {
	SalesConfirmed *bool  `json:"salesConfirmed"`
	SalesOutcome   string `json:"salesOutcome" validate:"omitempty,oneof=won partial lost"`
}

// ActivityResponse is one reconciled activity with its derived status
// and valuation.
type ActivityResponse struct {
	ID            uuid.UUID  `json:"id"`
	OpportunityID *uuid.UUID `json:"opportunityId,omitempty"`

	Client      string `json:"client"`
	ClientPhone string `json:"clientPhone"`
	Responsible string `json:"responsible"`
	Branch      string `json:"branch"`
	Kind        string `json:"kind"`

	Status         string `json:"status"`
	PotentialCents int64  `json:"potentialCents"`
	ClosedCents    int64  `json:"closedCents"`

	Standalone bool `json:"standalone"`

	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	LineItems []domain.LineItem `json:"lineItems,omitempty"`
}

// NewActivityResponse derives the API shape of one activity.
func NewActivityResponse(a domain.Activity) ActivityResponse {
	v := domain.Valuate(a)
	return ActivityResponse{
		ID:             a.ID,
		OpportunityID:  a.OpportunityID,
		Client:         a.Client,
		ClientPhone:    a.ClientPhone,
		Responsible:    a.Responsible,
		Branch:         a.Branch,
		Kind:           string(a.Kind),
		Status:         string(domain.Classify(a)),
		PotentialCents: v.PotentialCents,
		ClosedCents:    v.ClosedCents,
		Standalone:     a.Standalone(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		LineItems:      a.LineItems,
	}
}

// FeedResponse is one page-state of the reconciled activity feed.
type FeedResponse struct {
	Items      []ActivityResponse `json:"items"`
	TotalCount int                `json:"totalCount"`
	HasMore    bool               `json:"hasMore"`
	Complete   bool               `json:"complete"`

	SkippedRecords int `json:"skippedRecords"`
	Conflicts      int `json:"conflicts"`
}

// NewFeedResponse maps a feed snapshot to the API shape.
func NewFeedResponse(snap service.Snapshot) FeedResponse {
	items := make([]ActivityResponse, 0, len(snap.Items))
	for _, a := range snap.Items {
		items = append(items, NewActivityResponse(a))
	}
	return FeedResponse{
		Items:          items,
		TotalCount:     snap.TotalCount,
		HasMore:        snap.HasMore,
		Complete:       snap.Complete,
		SkippedRecords: snap.SkippedRecords,
		Conflicts:      snap.Conflicts,
	}
}

// ClientsResponse is the client rollup view.
type ClientsResponse struct {
	Clients    []service.ClientRollup `json:"clients"`
	TotalCount int                    `json:"totalCount"`
	HasMore    bool                   `json:"hasMore"`
	Complete   bool                   `json:"complete"`

	SkippedRecords int `json:"skippedRecords"`
	Conflicts      int `json:"conflicts"`
}

// NewClientsResponse maps a clients snapshot to the API shape.
func NewClientsResponse(snap service.ClientsSnapshot) ClientsResponse {
	return ClientsResponse{
		Clients:        snap.Clients,
		TotalCount:     snap.TotalCount,
		HasMore:        snap.HasMore,
		Complete:       snap.Complete,
		SkippedRecords: snap.SkippedRecords,
		Conflicts:      snap.Conflicts,
	}
}

// StatusChangeResponse reports the before/after of a task status edit.
type StatusChangeResponse struct {
	ID         uuid.UUID `json:"id"`
	Branch     string    `json:"branch"`
	OldOutcome string    `json:"oldOutcome"`
	NewOutcome string    `json:"newOutcome"`
}
