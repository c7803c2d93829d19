package finance

import (
	"fmt"
	"math"
	"sort"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

const (
	ScenarioPessimistic = "pessimistic"
	ScenarioBase        = "base"
	ScenarioOptimistic  = "optimistic"

	sensitivitySwing   = 0.20
	maxSensitivityRows = 3
)

type scenarioShift struct {
	growth float64
	arpu   float64
	opex   float64
}

var scenarioShifts = map[string]scenarioShift{
	ScenarioPessimistic: {growth: 0.8, arpu: 0.9, opex: 1.1},
	ScenarioBase:        {growth: 1, arpu: 1, opex: 1},
	ScenarioOptimistic:  {growth: 1.2, arpu: 1.1, opex: 0.95},
}

func computeScenarios(in caseInputs, a Assumptions) map[string]businesscase.ScenarioOutcome {
	out := make(map[string]businesscase.ScenarioOutcome, len(scenarioShifts))
	for name, s := range scenarioShifts {
		shifted := in
		shifted.growthRate *= s.growth
		shifted.arpu *= s.arpu
		shifted.opex *= s.opex
		p := project(shifted, a)
		revenue := 0.0
		for _, row := range p {
			revenue += row.Revenue
		}
		out[name] = businesscase.ScenarioOutcome{
			NPV:          NPV(cashFlows(p), a.DiscountRate),
			ROI:          ROI(p),
			PaybackYears: Payback(p),
			TotalRevenue: revenue,
		}
	}
	return out
}

func npvOf(in caseInputs, a Assumptions) float64 {
	return NPV(cashFlows(project(in, a)), a.DiscountRate)
}

func computeSensitivity(base caseInputs, a Assumptions) []businesscase.SensitivityDriver {
	type candidate struct {
		name  string
		label string
		apply func(in *caseInputs, factor float64)
	}

	cands := []candidate{
		{name: "growth_rate", label: "customer growth rate", apply: func(in *caseInputs, f float64) { in.growthRate *= f }},
		{name: "arpu", label: "ARPU", apply: func(in *caseInputs, f float64) { in.arpu *= f }},
		{name: "initial_customers", label: "initial customer count", apply: func(in *caseInputs, f float64) { in.initialCustomers *= f }},
		{name: "opex", label: "OPEX", apply: func(in *caseInputs, f float64) { in.opex *= f }},
		{name: "capex", label: "CAPEX", apply: func(in *caseInputs, f float64) { in.capex *= f }},
	}

	out := make([]businesscase.SensitivityDriver, 0, len(cands))
	for _, c := range cands {
		low, high := base, base
		c.apply(&low, 1-sensitivitySwing)
		c.apply(&high, 1+sensitivitySwing)
		nLow := npvOf(low, a)
		nHigh := npvOf(high, a)
		delta := math.Abs(nHigh - nLow)
		out = append(out, businesscase.SensitivityDriver{
			Assumption: c.name,
			NPVDelta:   delta,
			Direction:  direction(c.label, nLow, nHigh),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NPVDelta > out[j].NPVDelta })
	if len(out) > maxSensitivityRows {
		out = out[:maxSensitivityRows]
	}
	return out
}

func direction(label string, nLow, nHigh float64) string {
	delta := math.Abs(nHigh - nLow)
	if delta < 0.5 {
		return fmt.Sprintf("Changing %s by ±%.0f%% does not move NPV", label, sensitivitySwing*100)
	}
	verb := "increases"
	if nHigh < nLow {
		verb = "decreases"
	}
	return fmt.Sprintf("Higher %s %s NPV by $%.0f across a ±%.0f%% swing", label, verb, delta, sensitivitySwing*100)
}
