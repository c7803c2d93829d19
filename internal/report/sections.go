package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/finance"
)

const systemPrompt = "You are a senior management consultant writing an investment-grade business case. " +
	"Use the financial figures you are given as facts; never invent different numbers. Respond with strict JSON only."

const overviewSchemaPrompt = `Required JSON schema:
{
  "executiveSummary": "string, 2-4 paragraphs",
  "marketAnalysis": {
    "overview": "string",
    "targetMarket": "string",
    "competition": "string",
    "trends": ["string"]
  }
}`

const riskPlanSchemaPrompt = `Required JSON schema:
{
  "riskAssessment": {
    "summary": "string",
    "risks": [
      {"category":"string","description":"string","likelihood":"LOW|MEDIUM|HIGH","impact":"LOW|MEDIUM|HIGH","mitigation":"string"}
    ]
  },
  "implementationTimeline": [
    {"phase":"string","duration":"string","activities":["string"],"milestones":["string"]}
  ],
  "recommendations": ["string"]
}`

const (
	minSummaryChars = 40
	maxRisks        = 10
	maxPhases       = 8
)

type overviewOutput struct {
	ExecutiveSummary string                      `json:"executiveSummary"`
	MarketAnalysis   businesscase.MarketAnalysis `json:"marketAnalysis"`
}

type riskPlanOutput struct {
	RiskAssessment         businesscase.RiskAssessment  `json:"riskAssessment"`
	ImplementationTimeline []businesscase.TimelinePhase `json:"implementationTimeline"`
	Recommendations        []string                     `json:"recommendations"`
}

// caseContext is the shared prompt preamble: the user's inputs plus the
// computed numbers the model must stay consistent with.
func caseContext(d businesscase.BusinessCaseData, a finance.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", d.ProjectName)
	fmt.Fprintf(&b, "Company: %s\n", d.CompanyName)
	fmt.Fprintf(&b, "Country: %s\n", d.Country)
	fmt.Fprintf(&b, "Industry: %s\n", d.Industry)
	if d.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", d.Description)
	}
	fmt.Fprintf(&b, "\nInputs:\n")
	fmt.Fprintf(&b, "- CAPEX: $%s\n", fmtUSDf(d.Financials.Capex))
	fmt.Fprintf(&b, "- Annual OPEX (year 1): $%s, growing %.0f%% per year\n", fmtUSDf(d.Financials.Opex), a.Metrics.OpexGrowthRate*100)
	fmt.Fprintf(&b, "- Initial customers: %.0f, growing %.1f%% per year\n", d.Customers.InitialCustomers, d.Customers.GrowthRate)
	fmt.Fprintf(&b, "- ARPU: $%.2f per month\n", d.Customers.ARPU)
	fmt.Fprintf(&b, "- Horizon: %d years\n", d.Financials.TimelineYears)

	m := a.Metrics
	fmt.Fprintf(&b, "\nComputed metrics (discount rate %.0f%%):\n", m.DiscountRate*100)
	fmt.Fprintf(&b, "- NPV: $%s\n", fmtUSDf(m.NPV))
	fmt.Fprintf(&b, "- IRR: %s\n", fmtPercentPtr(m.IRR))
	fmt.Fprintf(&b, "- ROI: %.1f%%\n", m.ROI)
	fmt.Fprintf(&b, "- Payback: %s\n", fmtYearsPtr(m.PaybackYears))
	fmt.Fprintf(&b, "- TCO: $%s\n", fmtUSDf(m.TCO))
	fmt.Fprintf(&b, "- Total revenue: $%s, total costs: $%s\n", fmtUSDf(m.TotalRevenue), fmtUSDf(m.TotalCosts))
	if len(a.Sensitivity) > 0 {
		fmt.Fprintf(&b, "- Largest NPV drivers: ")
		names := make([]string, 0, len(a.Sensitivity))
		for _, s := range a.Sensitivity {
			names = append(names, s.Assumption)
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func overviewPrompt(d businesscase.BusinessCaseData, a finance.Analysis) string {
	return "Write the executive summary and market analysis for this business case.\n\n" +
		caseContext(d, a) + "\n" + overviewSchemaPrompt
}

func riskPlanPrompt(d businesscase.BusinessCaseData, a finance.Analysis) string {
	return "Assess the risks, lay out an implementation timeline and give concrete recommendations for this business case.\n\n" +
		caseContext(d, a) + "\n" + riskPlanSchemaPrompt
}

func validateOverview(o overviewOutput) error {
	if len(strings.TrimSpace(o.ExecutiveSummary)) < minSummaryChars {
		return eris.Errorf("executiveSummary must be at least %d characters", minSummaryChars)
	}
	if strings.TrimSpace(o.MarketAnalysis.Overview) == "" {
		return eris.New("marketAnalysis.overview is required")
	}
	if strings.TrimSpace(o.MarketAnalysis.TargetMarket) == "" {
		return eris.New("marketAnalysis.targetMarket is required")
	}
	return nil
}

// normalizeRiskPlan upper-cases levels so "Medium" and "medium" validate.
func normalizeRiskPlan(o *riskPlanOutput) {
	for i := range o.RiskAssessment.Risks {
		r := &o.RiskAssessment.Risks[i]
		r.Likelihood = businesscase.Level(strings.ToUpper(strings.TrimSpace(string(r.Likelihood))))
		r.Impact = businesscase.Level(strings.ToUpper(strings.TrimSpace(string(r.Impact))))
	}
}

func validateRiskPlan(o riskPlanOutput) error {
	if strings.TrimSpace(o.RiskAssessment.Summary) == "" {
		return eris.New("riskAssessment.summary is required")
	}
	if len(o.RiskAssessment.Risks) == 0 || len(o.RiskAssessment.Risks) > maxRisks {
		return eris.Errorf("riskAssessment.risks must contain 1-%d entries", maxRisks)
	}
	for i, r := range o.RiskAssessment.Risks {
		if strings.TrimSpace(r.Description) == "" {
			return eris.Errorf("riskAssessment.risks[%d].description is required", i)
		}
		if !validLevel(r.Likelihood) || !validLevel(r.Impact) {
			return eris.Errorf("riskAssessment.risks[%d] likelihood and impact must be LOW, MEDIUM or HIGH", i)
		}
	}
	if len(o.ImplementationTimeline) == 0 || len(o.ImplementationTimeline) > maxPhases {
		return eris.Errorf("implementationTimeline must contain 1-%d phases", maxPhases)
	}
	for i, p := range o.ImplementationTimeline {
		if strings.TrimSpace(p.Phase) == "" {
			return eris.Errorf("implementationTimeline[%d].phase is required", i)
		}
	}
	if len(o.Recommendations) == 0 {
		return eris.New("recommendations must not be empty")
	}
	return nil
}

func validLevel(l businesscase.Level) bool {
	switch l {
	case businesscase.LevelLow, businesscase.LevelMedium, businesscase.LevelHigh:
		return true
	}
	return false
}
