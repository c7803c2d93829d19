package report

import (
	"fmt"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/finance"
)

// Fallback content is written from the computed numbers alone so a report
// is always complete enough to export, even when every LLM call fails.

func fallbackOverview(d businesscase.BusinessCaseData, a finance.Analysis) overviewOutput {
	m := a.Metrics
	verdict := "creates value at the assumed discount rate"
	if m.NPV < 0 {
		verdict = "does not recover its cost of capital at the assumed discount rate"
	}
	summary := fmt.Sprintf("%s proposes %s, an initiative in the %s sector in %s. "+
		"It requires an upfront investment of $%s and annual operating costs starting at $%s. "+
		"Over %d years the model projects revenue of $%s against costs of $%s, an NPV of $%s and an ROI of %.1f%%. "+
		"Payback is %s, so on these figures the project %s.",
		d.CompanyName, d.ProjectName, d.Industry, d.Country,
		fmtUSDf(d.Financials.Capex), fmtUSDf(d.Financials.Opex),
		d.Financials.TimelineYears, fmtUSDf(m.TotalRevenue), fmtUSDf(m.TotalCosts), fmtUSDf(m.NPV), m.ROI,
		fmtYearsPtr(m.PaybackYears), verdict)

	return overviewOutput{
		ExecutiveSummary: summary,
		MarketAnalysis: businesscase.MarketAnalysis{
			Overview: fmt.Sprintf("A narrative market analysis for the %s sector in %s could not be generated. "+
				"The projections assume %.0f initial customers growing %.1f%% per year at $%.2f monthly ARPU.",
				d.Industry, d.Country, d.Customers.InitialCustomers, d.Customers.GrowthRate, d.Customers.ARPU),
			TargetMarket: fmt.Sprintf("Customers of %s in %s.", d.CompanyName, d.Country),
			Competition:  "Not assessed.",
			Trends:       []string{},
		},
	}
}

func fallbackRiskPlan(d businesscase.BusinessCaseData, a finance.Analysis) riskPlanOutput {
	m := a.Metrics
	risks := []businesscase.Risk{}

	if m.NPV < 0 {
		risks = append(risks, businesscase.Risk{
			Category:    "Financial",
			Description: fmt.Sprintf("The projected NPV is negative ($%s).", fmtUSDf(m.NPV)),
			Likelihood:  businesscase.LevelHigh,
			Impact:      businesscase.LevelHigh,
			Mitigation:  "Revisit pricing, cost base or scope before committing capital.",
		})
	}
	if m.PaybackYears == nil {
		risks = append(risks, businesscase.Risk{
			Category:    "Financial",
			Description: "The investment is not paid back within the projection horizon.",
			Likelihood:  businesscase.LevelHigh,
			Impact:      businesscase.LevelMedium,
			Mitigation:  "Stage the investment and set go/no-go gates on early customer numbers.",
		})
	}
	if len(a.Sensitivity) > 0 {
		top := a.Sensitivity[0]
		risks = append(risks, businesscase.Risk{
			Category:    "Assumptions",
			Description: top.Direction + ".",
			Likelihood:  businesscase.LevelMedium,
			Impact:      businesscase.LevelHigh,
			Mitigation:  "Validate this assumption with market data or a pilot before scaling.",
		})
	}
	adoption := businesscase.LevelMedium
	if d.Customers.GrowthRate > 50 {
		adoption = businesscase.LevelHigh
	}
	risks = append(risks, businesscase.Risk{
		Category:    "Market",
		Description: fmt.Sprintf("Customer growth of %.1f%% per year may not materialise.", d.Customers.GrowthRate),
		Likelihood:  adoption,
		Impact:      businesscase.LevelHigh,
		Mitigation:  "Track acquisition against plan quarterly and adjust spend.",
	})

	summary := fmt.Sprintf("%d risks identified from the financial model; a qualitative review was not available.", len(risks))

	recs := []string{}
	if m.NPV >= 0 {
		recs = append(recs, "Proceed to detailed planning; the base case has a positive NPV.")
	} else {
		recs = append(recs, "Do not proceed on the current assumptions; the base case has a negative NPV.")
	}
	if pess, ok := a.Scenarios[finance.ScenarioPessimistic]; ok && pess.NPV < 0 && m.NPV >= 0 {
		recs = append(recs, "Stress-test the plan: the pessimistic scenario turns NPV negative.")
	}
	recs = append(recs, "Regenerate this report once the narrative service is available for a full market and risk review.")

	return riskPlanOutput{
		RiskAssessment: businesscase.RiskAssessment{Summary: summary, Risks: risks},
		ImplementationTimeline: []businesscase.TimelinePhase{
			{Phase: "Planning", Duration: "Months 1-3", Activities: []string{"Confirm scope and budget", "Secure funding"}, Milestones: []string{"Investment approved"}},
			{Phase: "Build and launch", Duration: "Months 4-12", Activities: []string{"Deploy CAPEX", "Acquire first customers"}, Milestones: []string{fmt.Sprintf("%.0f customers", d.Customers.InitialCustomers)}},
			{Phase: "Scale", Duration: fmt.Sprintf("Years 2-%d", max(2, d.Financials.TimelineYears)), Activities: []string{"Grow the customer base", "Control OPEX growth"}, Milestones: []string{"Payback reached"}},
		},
		Recommendations: recs,
	}
}
