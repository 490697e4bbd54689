package domain

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestClassifyConfirmedOutcomes(t *testing.T) {
	cases := []struct {
		name     string
		activity Activity
		want     Status
	}{
		{"confirmed won", Activity{SalesConfirmed: boolPtr(true), SalesOutcome: OutcomeWon}, StatusWon},
		{"confirmed partial", Activity{SalesConfirmed: boolPtr(true), SalesOutcome: OutcomePartial}, StatusPartial},
		{"confirmed lost", Activity{SalesConfirmed: boolPtr(true), SalesOutcome: OutcomeLost}, StatusLost},
		{"unconfirmed lost", Activity{SalesConfirmed: boolPtr(false), SalesOutcome: OutcomeLost}, StatusLost},
		{"lost without confirmation flag", Activity{SalesOutcome: OutcomeLost}, StatusLost},
		{"open prospect", Activity{IsProspect: true}, StatusProspect},
	}

	for _, tc := range cases {
		if got := Classify(tc.activity); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassifyWonRequiresConfirmation(t *testing.T) {
	// An outcome of won without confirmation is still an open prospect.
	a := Activity{IsProspect: true, SalesOutcome: OutcomeWon}
	if got := Classify(a); got != StatusProspect {
		t.Fatalf("expected prospect for unconfirmed won, got %s", got)
	}

	a.SalesConfirmed = boolPtr(false)
	if got := Classify(a); got != StatusProspect {
		t.Fatalf("expected prospect for denied won, got %s", got)
	}
}

func TestClassifyTotality(t *testing.T) {
	// Every combination of the raw state fields yields exactly one of the
	// four labels, never a zero value and never a panic.
	confirmedStates := []*bool{nil, boolPtr(true), boolPtr(false)}
	outcomes := []Outcome{"", OutcomeWon, OutcomePartial, OutcomeLost, Outcome("unknown")}
	prospects := []bool{true, false}

	valid := map[Status]bool{
		StatusProspect: true,
		StatusWon:      true,
		StatusPartial:  true,
		StatusLost:     true,
	}

	for _, confirmed := range confirmedStates {
		for _, outcome := range outcomes {
			for _, prospect := range prospects {
				got := Classify(Activity{
					IsProspect:     prospect,
					SalesConfirmed: confirmed,
					SalesOutcome:   outcome,
				})
				if !valid[got] {
					t.Fatalf("confirmed=%v outcome=%q prospect=%v: unexpected status %q",
						confirmed, outcome, prospect, got)
				}
			}
		}
	}
}

func TestClassifyDefaultsToProspect(t *testing.T) {
	if got := Classify(Activity{}); got != StatusProspect {
		t.Fatalf("expected zero activity to classify as prospect, got %s", got)
	}
}
