package domain

import "math"

// Valuation holds the monetary figures derived for one activity.
// PotentialCents is the full value if the opportunity is fully won,
// ClosedCents the value actually realized given the current status, and
// SelectedCents the sum over client-selected line items.
type Valuation struct {
	PotentialCents int64
	ClosedCents    int64
	SelectedCents  int64
}

// roundCents rounds accumulated float cents to the nearest integer cent.
// Accumulation stays in float64 and rounds once here, so per-line rounding
// error does not compound across many items.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// lineValue prices one line item. A zero or missing quantity counts the
// unit price once.
func lineValue(it LineItem) float64 {
	qty := it.Quantity
	if qty < 1 {
		qty = 1
	}
	return float64(it.UnitPriceCents) * qty
}

// Valuate computes the valuation for one activity.
//
// Precedence: a stored total wins over the recomputed line-item sum when
// present and nonzero; likewise a stored partial value wins over the
// selected-items sum. Closed value follows the classification: won
// realizes the full potential, partial realizes the partial value, every
// other status realizes nothing.
func Valuate(a Activity) Valuation {
	var productsTotal, productsSelected float64
	for _, it := range a.LineItems {
		v := lineValue(it)
		productsTotal += v
		if it.Selected {
			productsSelected += v
		}
	}

	potential := a.TotalValueCents
	if potential <= 0 {
		potential = roundCents(productsTotal)
	}

	selected := roundCents(productsSelected)

	var closed int64
	switch Classify(a) {
	case StatusWon:
		closed = potential
	case StatusPartial:
		closed = a.PartialValueCents
		if closed <= 0 {
			closed = selected
		}
	default:
		closed = 0
	}

	return Valuation{
		PotentialCents: potential,
		ClosedCents:    closed,
		SelectedCents:  selected,
	}
}

// ConversionPct returns closed/potential as a percentage, defined as 0
// when the denominator is 0 so callers never see NaN or Inf.
func ConversionPct(potentialCents, closedCents int64) float64 {
	if potentialCents <= 0 {
		return 0
	}
	return float64(closedCents) / float64(potentialCents) * 100
}
