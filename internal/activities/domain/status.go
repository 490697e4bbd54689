package domain

// Status is the derived sales state of an activity. Exactly one status
// holds for any activity at read time; it is computed, never stored.
type Status string

const (
	StatusProspect Status = "prospect"
	StatusWon      Status = "won"
	StatusPartial  Status = "partial"
	StatusLost     Status = "lost"
)

// Classify maps an activity's raw outcome fields to its sales status.
// Rules are evaluated in order, first match wins:
//
//  1. confirmed and outcome won      -> won
//  2. confirmed and outcome partial  -> partial
//  3. outcome lost (confirmed or not) -> lost
//  4. open prospect                  -> prospect
//  5. anything else                  -> prospect (safe default)
//
// Pure and total: deterministic for identical input and never panics,
// which lets callers memoize results freely.
func Classify(a Activity) Status {
	confirmed := a.SalesConfirmed != nil && *a.SalesConfirmed

	switch {
	case confirmed && a.SalesOutcome == OutcomeWon:
		return StatusWon
	case confirmed && a.SalesOutcome == OutcomePartial:
		return StatusPartial
	case a.SalesOutcome == OutcomeLost:
		return StatusLost
	case a.IsProspect:
		return StatusProspect
	default:
		return StatusProspect
	}
}
