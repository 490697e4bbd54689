package normalize

import (
	"fmt"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/platform/phone"
	"fieldsales_backend/platform/sanitize"

	"github.com/google/uuid"
)

// ErrMalformedRecord marks rows that cannot be normalized because required
// identity fields are missing. Callers skip such rows and keep a tally;
// the failure never aborts the surrounding aggregation.
type ErrMalformedRecord struct {
	Source string
	Reason string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Source, e.Reason)
}

// Sentinel defaults for identity fields, so downstream aggregation never
// branches on missing versus empty.
const (
	NoClient     = "no client"
	NoBranch     = "no branch"
	NoConsultant = "unassigned"
)

// Status display labels used by standalone opportunity records.
const (
	LabelProspect    = "Prospect"
	LabelFullSale    = "Venda Total"
	LabelPartialSale = "Venda Parcial"
	LabelLostSale    = "Venda Perdida"
)

// taskKinds is the closed task-type vocabulary. Unknown types fall back
// to visit.
var taskKinds = map[string]domain.Kind{
	"prospection": domain.KindVisit,
	"checklist":   domain.KindChecklist,
	"ligacao":     domain.KindCall,
}

type labelState struct {
	isProspect bool
	confirmed  *bool
	outcome    domain.Outcome
}

var labelStates = map[string]labelState{
	LabelProspect:    {isProspect: true},
	LabelFullSale:    {confirmed: ptr(true), outcome: domain.OutcomeWon},
	LabelPartialSale: {confirmed: ptr(true), outcome: domain.OutcomePartial},
	LabelLostSale:    {confirmed: ptr(false), outcome: domain.OutcomeLost},
}

func ptr(v bool) *bool { return &v }

// Normalizer converts raw rows into canonical Activities. The phone
// region configures E.164 normalization of client contact numbers.
type Normalizer struct {
	phoneRegion string
}

// New creates a Normalizer for the given default phone region.
func New(phoneRegion string) *Normalizer {
	if phoneRegion == "" {
		phoneRegion = "BR"
	}
	return &Normalizer{phoneRegion: phoneRegion}
}

// KindForTaskType maps a legacy task type string to a contact kind.
func KindForTaskType(taskType string) domain.Kind {
	if kind, ok := taskKinds[taskType]; ok {
		return kind
	}
	return domain.KindVisit
}

// Task normalizes a task row. Only a missing id is fatal; every other
// field is defaulted.
func (n *Normalizer) Task(row TaskRow) (domain.Activity, error) {
	if row.ID == uuid.Nil {
		return domain.Activity{}, &ErrMalformedRecord{Source: "task", Reason: "missing id"}
	}

	outcome := domain.Outcome(row.SalesOutcome)
	switch outcome {
	case domain.OutcomeWon, domain.OutcomePartial, domain.OutcomeLost, "":
	default:
		return domain.Activity{}, &ErrMalformedRecord{
			Source: "task",
			Reason: fmt.Sprintf("unknown sales outcome %q", row.SalesOutcome),
		}
	}

	return domain.Activity{
		ID:                row.ID,
		Client:            orDefault(row.Client, NoClient),
		ClientPhone:       phone.NormalizeE164(row.ClientPhone, n.phoneRegion),
		Responsible:       orDefault(row.Responsible, NoConsultant),
		Branch:            orDefault(row.Filial, NoBranch),
		Kind:              KindForTaskType(row.TaskType),
		IsProspect:        row.IsProspect,
		SalesConfirmed:    row.SalesConfirmed,
		SalesOutcome:      outcome,
		TotalValueCents:   row.TotalValueCents,
		PartialValueCents: row.PartialValueCents,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		LineItems:         items(row.Items),
	}, nil
}

// Opportunity normalizes a standalone opportunity row. The activity id is
// the opportunity's own id; the reconciler drops the record instead when a
// loaded task already claims it.
func (n *Normalizer) Opportunity(row OpportunityRow) (domain.Activity, error) {
	if row.ID == uuid.Nil {
		return domain.Activity{}, &ErrMalformedRecord{Source: "opportunity", Reason: "missing id"}
	}

	state, ok := labelStates[row.StatusLabel]
	if !ok {
		return domain.Activity{}, &ErrMalformedRecord{
			Source: "opportunity",
			Reason: fmt.Sprintf("unknown status label %q", row.StatusLabel),
		}
	}

	oppID := row.ID
	return domain.Activity{
		ID:                row.ID,
		OpportunityID:     &oppID,
		Client:            orDefault(row.Client, NoClient),
		ClientPhone:       phone.NormalizeE164(row.ClientPhone, n.phoneRegion),
		Responsible:       orDefault(row.Responsible, NoConsultant),
		Branch:            orDefault(row.Branch, NoBranch),
		Kind:              domain.KindVisit,
		IsProspect:        state.isProspect,
		SalesConfirmed:    state.confirmed,
		SalesOutcome:      state.outcome,
		TotalValueCents:   row.TotalValueCents,
		PartialValueCents: row.PartialValueCents,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		LineItems:         items(row.Items),
	}, nil
}

func items(rows []ItemRow) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LineItem{
			Description:    r.Description,
			Selected:       r.Selected,
			Quantity:       r.Quantity,
			UnitPriceCents: r.UnitPriceCents,
		})
	}
	return out
}

// orDefault strips markup from free-text store fields and falls back to
// the sentinel when nothing is left.
func orDefault(s, fallback string) string {
	s = sanitize.Text(s)
	if s == "" {
		return fallback
	}
	return s
}
