// Package finance computes the deterministic part of a business case: yearly
// projections, investment metrics, scenarios and sensitivity drivers.
package finance

import (
	"math"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

const (
	DefaultDiscountRate   = 0.10
	DefaultOpexGrowthRate = 0.10
	monthsPerYear         = 12
)

type Assumptions struct {
	DiscountRate   float64 `json:"discountRate"`
	OpexGrowthRate float64 `json:"opexGrowthRate"`
}

func DefaultAssumptions() Assumptions {
	return Assumptions{DiscountRate: DefaultDiscountRate, OpexGrowthRate: DefaultOpexGrowthRate}
}

type Analysis struct {
	Projections []businesscase.YearlyProjection         `json:"projections"`
	Metrics     businesscase.FinancialMetrics           `json:"metrics"`
	Scenarios   map[string]businesscase.ScenarioOutcome `json:"scenarios"`
	Sensitivity []businesscase.SensitivityDriver        `json:"sensitivity"`
}

type caseInputs struct {
	capex            float64
	opex             float64
	initialCustomers float64
	growthRate       float64
	arpu             float64
	years            int
}

func inputsFrom(d businesscase.BusinessCaseData) caseInputs {
	years := d.Financials.TimelineYears
	if years <= 0 {
		years = businesscase.DefaultTimelineYears
	}
	return caseInputs{
		capex:            d.Financials.Capex,
		opex:             d.Financials.Opex,
		initialCustomers: d.Customers.InitialCustomers,
		growthRate:       d.Customers.GrowthRate / 100.0,
		arpu:             d.Customers.ARPU,
		years:            years,
	}
}

// Analyze runs every computation for a validated business case.
func Analyze(d businesscase.BusinessCaseData, a Assumptions) Analysis {
	in := inputsFrom(d)
	projections := project(in, a)
	metrics := metricsFor(projections, in, a)
	metrics.DeclaredTCO = d.Financials.TCO
	return Analysis{
		Projections: projections,
		Metrics:     metrics,
		Scenarios:   computeScenarios(in, a),
		Sensitivity: computeSensitivity(in, a),
	}
}

// Project returns one row per year of the horizon.
func Project(d businesscase.BusinessCaseData, a Assumptions) []businesscase.YearlyProjection {
	return project(inputsFrom(d), a)
}

// Capex is booked in year 1; customers grow as c·(1+g)^(n-1) and opex
// inflates as opex·(1+o)^(n-1).
func project(in caseInputs, a Assumptions) []businesscase.YearlyProjection {
	out := make([]businesscase.YearlyProjection, 0, in.years)
	cumulative := 0.0
	for year := 1; year <= in.years; year++ {
		customers := in.initialCustomers * math.Pow(1+in.growthRate, float64(year-1))
		revenue := customers * in.arpu * monthsPerYear
		opex := in.opex * math.Pow(1+a.OpexGrowthRate, float64(year-1))
		capex := 0.0
		if year == 1 {
			capex = in.capex
		}
		costs := opex + capex
		profit := revenue - costs
		cumulative += profit
		out = append(out, businesscase.YearlyProjection{
			Year:               year,
			Customers:          customers,
			Revenue:            revenue,
			Opex:               opex,
			Capex:              capex,
			Costs:              costs,
			Profit:             profit,
			CashFlow:           profit,
			CumulativeCashFlow: cumulative,
			DiscountedCashFlow: profit / math.Pow(1+a.DiscountRate, float64(year)),
		})
	}
	return out
}

func cashFlows(p []businesscase.YearlyProjection) []float64 {
	out := make([]float64, len(p))
	for i, row := range p {
		out[i] = row.CashFlow
	}
	return out
}

func metricsFor(p []businesscase.YearlyProjection, in caseInputs, a Assumptions) businesscase.FinancialMetrics {
	m := businesscase.FinancialMetrics{
		DiscountRate:   a.DiscountRate,
		OpexGrowthRate: a.OpexGrowthRate,
		TCO:            in.capex,
	}
	for _, row := range p {
		m.TotalRevenue += row.Revenue
		m.TotalCosts += row.Costs
		m.TCO += row.Opex
	}
	m.TotalProfit = m.TotalRevenue - m.TotalCosts
	flows := cashFlows(p)
	m.NPV = NPV(flows, a.DiscountRate)
	m.IRR = IRR(flows)
	m.ROI = ROI(p)
	m.PaybackYears = Payback(p)
	return m
}
