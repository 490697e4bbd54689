package service

import (
	"testing"
	"time"

	"fieldsales_backend/internal/activities/domain"
	"fieldsales_backend/internal/activities/normalize"

	"github.com/google/uuid"
)

// Mixed scenario: one won visit worth 1000.00, two open calls, one
// standalone partial sale with total 500.00 and partial 200.00.
func TestComputeFunnelMixedScenario(t *testing.T) {
	rec := testReconciler()
	confirmed := true

	tasks := []normalize.TaskRow{
		{
			ID:              uuid.New(),
			TaskType:        "prospection",
			Client:          "a",
			SalesConfirmed:  &confirmed,
			SalesOutcome:    "won",
			TotalValueCents: 100000,
		},
		{ID: uuid.New(), TaskType: "ligacao", Client: "b", IsProspect: true},
		{ID: uuid.New(), TaskType: "ligacao", Client: "c", IsProspect: true},
	}
	opps := []normalize.OpportunityRow{
		{
			ID:                uuid.New(),
			Client:            "d",
			StatusLabel:       normalize.LabelPartialSale,
			TotalValueCents:   50000,
			PartialValueCents: 20000,
		},
	}

	res := rec.Reconcile(tasks, opps)
	fn := ComputeFunnel(append(res.Tasks, res.Standalone...), res.Skipped, res.Conflicts)

	// Standalone opportunities are not contacts, so only the task-backed
	// visit lands in the visits bucket.
	if fn.Visits.Count != 1 || fn.Visits.ValueCents != 100000 {
		t.Fatalf("visits: %+v", fn.Visits)
	}
	if fn.Calls.Count != 2 || fn.Calls.ValueCents != 0 {
		t.Fatalf("calls: %+v", fn.Calls)
	}
	if fn.Open.Count != 2 {
		t.Fatalf("open: %+v", fn.Open)
	}
	if fn.Converted.Count != 2 || fn.Converted.ValueCents != 120000 {
		t.Fatalf("converted: %+v", fn.Converted)
	}
	if fn.SalesWon.Count != 1 || fn.SalesWon.ValueCents != 100000 {
		t.Fatalf("sales won: %+v", fn.SalesWon)
	}
	if fn.SalesPartial.Count != 1 || fn.SalesPartial.ValueCents != 20000 {
		t.Fatalf("sales partial: %+v", fn.SalesPartial)
	}
	if fn.PotentialCents != 150000 {
		t.Fatalf("potential = %d, want 150000", fn.PotentialCents)
	}
	if fn.ClosedCents != 120000 {
		t.Fatalf("closed = %d, want 120000", fn.ClosedCents)
	}
	if fn.ConversionPct != 80 {
		t.Fatalf("conversion = %v, want 80", fn.ConversionPct)
	}
}

func TestComputeFunnelEmptyInput(t *testing.T) {
	fn := ComputeFunnel(nil, 0, 0)
	if fn.ConversionPct != 0 {
		t.Fatalf("empty funnel conversion must be 0, got %v", fn.ConversionPct)
	}
	if fn.PotentialCents != 0 || fn.ClosedCents != 0 {
		t.Fatalf("empty funnel must have zero totals: %+v", fn)
	}
}

func TestComputeFunnelCarriesInputQualityCounters(t *testing.T) {
	fn := ComputeFunnel(nil, 3, 1)
	if fn.SkippedRecords != 3 || fn.Conflicts != 1 {
		t.Fatalf("counters not carried: %+v", fn)
	}
}

func TestBuildClientRollupsGroupsAndOrders(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC)
	}
	confirmed := true

	items := []domain.Activity{
		{ID: uuid.New(), Client: "acme", Kind: domain.KindVisit, SalesConfirmed: &confirmed, SalesOutcome: domain.OutcomeWon, TotalValueCents: 5000, CreatedAt: day(1)},
		{ID: uuid.New(), Client: "acme", Kind: domain.KindCall, IsProspect: true, CreatedAt: day(3)},
		{ID: uuid.New(), Client: "globex", Kind: domain.KindVisit, IsProspect: true, CreatedAt: day(2)},
	}

	rollups := BuildClientRollups(items)
	if len(rollups) != 2 {
		t.Fatalf("expected 2 rollups, got %d", len(rollups))
	}
	if rollups[0].Client != "acme" {
		t.Fatalf("most recently contacted client first, got %q", rollups[0].Client)
	}
	acme := rollups[0]
	if acme.Contacts != 2 || acme.Won != 1 || acme.Open != 1 {
		t.Fatalf("acme rollup: %+v", acme)
	}
	if acme.PotentialCents != 5000 || acme.ClosedCents != 5000 {
		t.Fatalf("acme values: %+v", acme)
	}
	if !acme.LastContact.Equal(day(3)) {
		t.Fatalf("acme last contact: %v", acme.LastContact)
	}
}
