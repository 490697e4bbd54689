package service

import (
	"sort"
	"time"

	"fieldsales_backend/internal/activities/domain"
)

// ClientRollup aggregates every activity of one client into a single
// line for the clients view.
type ClientRollup struct {
	Client string `json:"client"`
	Phone  string `json:"phone"`
	Branch string `json:"branch"`

	Contacts int `json:"contacts"`
	Open     int `json:"open"`
	Won      int `json:"won"`
	Partial  int `json:"partial"`
	Lost     int `json:"lost"`

	PotentialCents int64 `json:"potentialCents"`
	ClosedCents    int64 `json:"closedCents"`

	LastContact time.Time `json:"lastContact"`
}

// BuildClientRollups groups activities by client name. Normalization
// guarantees the name is never empty, so missing clients collapse into
// one sentinel group instead of producing per-record noise. The result
// is ordered by most recent contact, then by name.
func BuildClientRollups(items []domain.Activity) []ClientRollup {
	byClient := make(map[string]*ClientRollup)
	order := make([]string, 0)

	for _, a := range items {
		r, ok := byClient[a.Client]
		if !ok {
			r = &ClientRollup{Client: a.Client}
			byClient[a.Client] = r
			order = append(order, a.Client)
		}

		if r.Phone == "" {
			r.Phone = a.ClientPhone
		}
		if r.Branch == "" {
			r.Branch = a.Branch
		}

		v := domain.Valuate(a)
		r.Contacts++
		r.PotentialCents += v.PotentialCents
		r.ClosedCents += v.ClosedCents

		switch domain.Classify(a) {
		case domain.StatusWon:
			r.Won++
		case domain.StatusPartial:
			r.Partial++
		case domain.StatusLost:
			r.Lost++
		default:
			r.Open++
		}

		if a.CreatedAt.After(r.LastContact) {
			r.LastContact = a.CreatedAt
		}
	}

	out := make([]ClientRollup, 0, len(order))
	for _, name := range order {
		out = append(out, *byClient[name])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastContact.Equal(out[j].LastContact) {
			return out[i].LastContact.After(out[j].LastContact)
		}
		return out[i].Client < out[j].Client
	})
	return out
}
