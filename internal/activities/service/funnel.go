package service

import (
	"fieldsales_backend/internal/activities/domain"
)

// Bucket is one funnel stage: how many activities landed in it and the
// money they represent at that stage.
type Bucket struct {
	Count      int   `json:"count"`
	ValueCents int64 `json:"valueCents"`
}

// Funnel is the complete reduction of a reconciled activity set.
//
// Contact buckets count task-backed touchpoints only: a standalone
// opportunity was created out-of-band, so no visit or call happened for
// it. Contact buckets carry potential value, the converted and sales
// buckets carry closed value, and Lost carries the potential that
// slipped away. SkippedRecords and Conflicts report input quality; a
// malformed row never aborts the reduction.
type Funnel struct {
	Visits     Bucket `json:"visits"`
	Calls      Bucket `json:"calls"`
	Checklists Bucket `json:"checklists"`

	Open      Bucket `json:"open"`
	Converted Bucket `json:"converted"`
	Lost      Bucket `json:"lost"`

	SalesWon     Bucket `json:"salesWon"`
	SalesPartial Bucket `json:"salesPartial"`

	PotentialCents int64   `json:"potentialCents"`
	ClosedCents    int64   `json:"closedCents"`
	ConversionPct  float64 `json:"conversionPct"`

	SkippedRecords int `json:"skippedRecords"`
	Conflicts      int `json:"conflicts"`
}

// ComputeFunnel reduces a reconciled activity set to funnel buckets and
// totals. Single pass, no store access.
func ComputeFunnel(items []domain.Activity, skipped, conflicts int) Funnel {
	fn := Funnel{SkippedRecords: skipped, Conflicts: conflicts}

	for _, a := range items {
		v := domain.Valuate(a)
		st := domain.Classify(a)

		if !a.Standalone() {
			switch a.Kind {
			case domain.KindCall:
				fn.Calls.Count++
				fn.Calls.ValueCents += v.PotentialCents
			case domain.KindChecklist:
				fn.Checklists.Count++
				fn.Checklists.ValueCents += v.PotentialCents
			default:
				fn.Visits.Count++
				fn.Visits.ValueCents += v.PotentialCents
			}
		}

		switch st {
		case domain.StatusWon:
			fn.Converted.Count++
			fn.Converted.ValueCents += v.ClosedCents
			fn.SalesWon.Count++
			fn.SalesWon.ValueCents += v.ClosedCents
		case domain.StatusPartial:
			fn.Converted.Count++
			fn.Converted.ValueCents += v.ClosedCents
			fn.SalesPartial.Count++
			fn.SalesPartial.ValueCents += v.ClosedCents
		case domain.StatusLost:
			fn.Lost.Count++
			fn.Lost.ValueCents += v.PotentialCents
		default:
			fn.Open.Count++
			fn.Open.ValueCents += v.PotentialCents
		}

		fn.PotentialCents += v.PotentialCents
		fn.ClosedCents += v.ClosedCents
	}

	fn.ConversionPct = domain.ConversionPct(fn.PotentialCents, fn.ClosedCents)
	return fn
}
