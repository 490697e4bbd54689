package normalize

import (
	"errors"
	"testing"

	"fieldsales_backend/internal/activities/domain"

	"github.com/google/uuid"
)

func TestTaskKindMapping(t *testing.T) {
	cases := map[string]domain.Kind{
		"prospection": domain.KindVisit,
		"checklist":   domain.KindChecklist,
		"ligacao":     domain.KindCall,
		"unknown":     domain.KindVisit,
		"":            domain.KindVisit,
	}
	for taskType, want := range cases {
		if got := KindForTaskType(taskType); got != want {
			t.Fatalf("task type %q: expected %s, got %s", taskType, want, got)
		}
	}
}

func TestTaskDefaultsIdentityFields(t *testing.T) {
	n := New("BR")
	a, err := n.Task(TaskRow{ID: uuid.New()})
	if err != nil {
		t.Fatalf("normalize task: %v", err)
	}
	if a.Client != NoClient {
		t.Fatalf("expected client sentinel %q, got %q", NoClient, a.Client)
	}
	if a.Responsible != NoConsultant {
		t.Fatalf("expected responsible sentinel %q, got %q", NoConsultant, a.Responsible)
	}
	if a.Branch != NoBranch {
		t.Fatalf("expected branch sentinel %q, got %q", NoBranch, a.Branch)
	}
	if a.LineItems == nil {
		t.Fatalf("line items must be an empty slice, not nil")
	}
	if a.OpportunityID != nil {
		t.Fatalf("task-sourced activity must not carry an opportunity id")
	}
}

func TestTaskMissingIDIsMalformed(t *testing.T) {
	n := New("BR")
	_, err := n.Task(TaskRow{})
	var malformed *ErrMalformedRecord
	if !errors.As(err, &malformed) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestTaskUnknownOutcomeIsMalformed(t *testing.T) {
	n := New("BR")
	_, err := n.Task(TaskRow{ID: uuid.New(), SalesOutcome: "maybe"})
	var malformed *ErrMalformedRecord
	if !errors.As(err, &malformed) {
		t.Fatalf("expected ErrMalformedRecord for unknown outcome, got %v", err)
	}
}

func TestTaskPhoneNormalization(t *testing.T) {
	n := New("BR")
	a, err := n.Task(TaskRow{ID: uuid.New(), ClientPhone: "(11) 98765-4321"})
	if err != nil {
		t.Fatalf("normalize task: %v", err)
	}
	if a.ClientPhone != "+5511987654321" {
		t.Fatalf("expected E.164 phone, got %q", a.ClientPhone)
	}

	// Garbage input is kept verbatim, never an error.
	a, err = n.Task(TaskRow{ID: uuid.New(), ClientPhone: "ramal 42"})
	if err != nil {
		t.Fatalf("normalize task: %v", err)
	}
	if a.ClientPhone != "ramal 42" {
		t.Fatalf("expected unparseable phone kept verbatim, got %q", a.ClientPhone)
	}
}

func TestOpportunityLabelTable(t *testing.T) {
	n := New("BR")
	cases := []struct {
		label string
		want  domain.Status
	}{
		{LabelProspect, domain.StatusProspect},
		{LabelFullSale, domain.StatusWon},
		{LabelPartialSale, domain.StatusPartial},
		{LabelLostSale, domain.StatusLost},
	}

	for _, tc := range cases {
		a, err := n.Opportunity(OpportunityRow{ID: uuid.New(), StatusLabel: tc.label})
		if err != nil {
			t.Fatalf("label %q: %v", tc.label, err)
		}
		if got := domain.Classify(a); got != tc.want {
			t.Fatalf("label %q: expected status %s, got %s", tc.label, tc.want, got)
		}
	}
}

func TestOpportunityUnknownLabelIsMalformed(t *testing.T) {
	n := New("BR")
	_, err := n.Opportunity(OpportunityRow{ID: uuid.New(), StatusLabel: "Venda Futura"})
	var malformed *ErrMalformedRecord
	if !errors.As(err, &malformed) {
		t.Fatalf("expected ErrMalformedRecord for unknown label, got %v", err)
	}
}

func TestOpportunityIDBecomesActivityID(t *testing.T) {
	n := New("BR")
	id := uuid.New()
	a, err := n.Opportunity(OpportunityRow{ID: id, StatusLabel: LabelProspect})
	if err != nil {
		t.Fatalf("normalize opportunity: %v", err)
	}
	if a.ID != id {
		t.Fatalf("expected activity id %s, got %s", id, a.ID)
	}
	if !a.Standalone() {
		t.Fatalf("opportunity-sourced activity must report standalone")
	}
}
