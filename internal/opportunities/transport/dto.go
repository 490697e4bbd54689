// Package transport defines the request and response shapes of the
// opportunities API.
package transport

import (
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"
	"fieldsales_backend/internal/opportunities/repository"

	"github.com/google/uuid"
)

// ListQuery filters the opportunity list by branch and period.
type ListQuery struct {
	Branch string `form:"branch" validate:"omitempty,max=100"`
	From   string `form:"from" validate:"omitempty"`
	To     string `form:"to" validate:"omitempty"`
}

// Period parses the query dates. Dates accept RFC3339 timestamps or
// plain dates.
func (q ListQuery) Period() (from, to time.Time, err error) {
	if from, err = parseTime(q.From); err != nil {
		return
	}
	to, err = parseTime(q.To)
	return
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

// UpdateOpportunityRequest is the single mutation entry point: a new
// status label, stored values and the selected line set. Omitting
// selectedItemIds leaves the selection untouched.
type UpdateOpportunityRequest struct {
	StatusLabel       string      `json:"statusLabel" validate:"required,oneof=Prospect 'Venda Total' 'Venda Parcial' 'Venda Perdida'"`
	TotalValueCents   int64       `json:"totalValueCents" validate:"gte=0"`
	PartialValueCents int64       `json:"partialValueCents" validate:"gte=0"`
	SelectedItemIDs   []uuid.UUID `json:"selectedItemIds"`
}

// Input converts the request to the repository mutation.
func (r UpdateOpportunityRequest) Input() repository.UpdateInput {
	return repository.UpdateInput{
		StatusLabel:       r.StatusLabel,
		TotalValueCents:   r.TotalValueCents,
		PartialValueCents: r.PartialValueCents,
		SelectedItemIDs:   r.SelectedItemIDs,
	}
}

// ItemResponse is one identified line item.
type ItemResponse struct {
	ID             uuid.UUID `json:"id"`
	Description    string    `json:"description"`
	Selected       bool      `json:"selected"`
	Quantity       float64   `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

// OpportunityResponse is one stored opportunity with its derived status
// and valuation.
type OpportunityResponse struct {
	ID     uuid.UUID  `json:"id"`
	TaskID *uuid.UUID `json:"taskId,omitempty"`

	Client      string `json:"client"`
	ClientPhone string `json:"clientPhone"`
	Responsible string `json:"responsible"`
	Branch      string `json:"branch"`

	StatusLabel    string `json:"statusLabel"`
	Status         string `json:"status"`
	PotentialCents int64  `json:"potentialCents"`
	ClosedCents    int64  `json:"closedCents"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Items     []ItemResponse `json:"items"`
}

// NewOpportunityResponse derives the API shape of one record using the
// given normalizer for status and valuation.
func NewOpportunityResponse(rec repository.Record, norm *normalize.Normalizer) OpportunityResponse {
	items := make([]ItemResponse, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, ItemResponse{
			ID:             it.ID,
			Description:    it.Description,
			Selected:       it.Selected,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	resp := OpportunityResponse{
		ID:          rec.Row.ID,
		TaskID:      rec.Row.TaskID,
		Client:      rec.Row.Client,
		ClientPhone: rec.Row.ClientPhone,
		Responsible: rec.Row.Responsible,
		Branch:      rec.Row.Branch,
		StatusLabel: rec.Row.StatusLabel,
		CreatedAt:   rec.Row.CreatedAt,
		UpdatedAt:   rec.Row.UpdatedAt,
		Items:       items,
	}

	if a, err := norm.Opportunity(rec.Row); err == nil {
		v := domain.Valuate(a)
		resp.Status = string(domain.Classify(a))
		resp.PotentialCents = v.PotentialCents
		resp.ClosedCents = v.ClosedCents
	}
	return resp
}

// ListResponse wraps the full opportunity match set.
type ListResponse struct {
	Items []OpportunityResponse `json:"items"`
	Total int                   `json:"total"`
}

// NewListResponse maps records to the API shape.
func NewListResponse(records []repository.Record, norm *normalize.Normalizer) ListResponse {
	items := make([]OpportunityResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, NewOpportunityResponse(rec, norm))
	}
	return ListResponse{Items: items, Total: len(items)}
}
