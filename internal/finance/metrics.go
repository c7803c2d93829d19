package finance

import (
	"math"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

const (
	irrLow        = -0.99
	irrHigh       = 10.0
	irrTolerance  = 1e-9
	irrIterations = 200
)

// NPV discounts end-of-year cash flows; flows[0] is year 1.
func NPV(flows []float64, rate float64) float64 {
	npv := 0.0
	for i, cf := range flows {
		npv += cf / math.Pow(1+rate, float64(i+1))
	}
	return npv
}

// IRR returns the internal rate of return in percent, found by bisection.
// It is nil when NPV does not change sign over the search range, which is the
// case for flows that never go negative or never recover.
func IRR(flows []float64) *float64 {
	lo, hi := irrLow, irrHigh
	fLo, fHi := NPV(flows, lo), NPV(flows, hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 || (fLo == 0 && fHi == 0) {
		return nil
	}
	for i := 0; i < irrIterations && hi-lo > irrTolerance; i++ {
		mid := (lo + hi) / 2
		fMid := NPV(flows, mid)
		if fMid == 0 {
			lo, hi = mid, mid
			break
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	pct := (lo + hi) / 2 * 100
	return &pct
}

// ROI is total profit over total costs, in percent.
func ROI(p []businesscase.YearlyProjection) float64 {
	revenue, costs := 0.0, 0.0
	for _, row := range p {
		revenue += row.Revenue
		costs += row.Costs
	}
	if costs == 0 {
		return 0
	}
	return (revenue - costs) / costs * 100
}

// Payback is the fractional number of years until cumulative cash flow
// reaches zero. Capex is spent at the start of year 1, so a first-year
// crossing is capex over that year's operating cash flow. Nil when the
// cumulative position stays negative over the horizon.
func Payback(p []businesscase.YearlyProjection) *float64 {
	prev := 0.0
	for i, row := range p {
		if row.CumulativeCashFlow < 0 {
			prev = row.CumulativeCashFlow
			continue
		}
		var years float64
		switch {
		case i == 0 && row.Capex <= 0:
			// Nothing to recover and the first year is not a loss.
		case i == 0:
			years = row.Capex / (row.Revenue - row.Opex)
		default:
			years = float64(i) - prev/row.CashFlow
		}
		return &years
	}
	return nil
}
