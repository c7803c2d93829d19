// Package businesscase holds the records exchanged between the form, the report
// generator and the exporters.
package businesscase

import "time"

const Disclaimer = "This business case is generated from the figures entered in the form and AI-written narrative. " +
	"Projections are simplified estimates and are not financial advice."

const (
	DefaultTimelineYears = 5
	MaxTimelineYears     = 10
	MinNameChars         = 2
	MaxDescriptionChars  = 20000
)

type ReportMode string

const (
	ReportModeComplete ReportMode = "COMPLETE"
	ReportModeDegraded ReportMode = "DEGRADED"
)

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Section names a group of report parts written by one LLM call.
type Section string

const (
	// SectionOverview covers the executive summary and market analysis.
	SectionOverview Section = "overview"
	// SectionRiskAndPlan covers risks, implementation timeline and recommendations.
	SectionRiskAndPlan Section = "risk_and_plan"
)

type FinancialInputs struct {
	Capex         float64 `json:"capex" yaml:"capex"`
	Opex          float64 `json:"opex" yaml:"opex"`
	TCO           float64 `json:"tco,omitempty" yaml:"tco"`
	TimelineYears int     `json:"timelineYears" yaml:"timelineYears"`
}

type CustomerInputs struct {
	InitialCustomers float64 `json:"initialCustomers" yaml:"initialCustomers"`
	// GrowthRate is a yearly percentage (20 means 20%).
	GrowthRate float64 `json:"growthRate" yaml:"growthRate"`
	// ARPU is monthly revenue per customer.
	ARPU float64 `json:"arpu" yaml:"arpu"`
}

type BusinessCaseData struct {
	ProjectName string          `json:"projectName" yaml:"projectName"`
	CompanyName string          `json:"companyName" yaml:"companyName"`
	Country     string          `json:"country" yaml:"country"`
	Industry    string          `json:"industry" yaml:"industry"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Financials  FinancialInputs `json:"financials" yaml:"financials"`
	Customers   CustomerInputs  `json:"customers" yaml:"customers"`
}

type YearlyProjection struct {
	Year               int     `json:"year"`
	Customers          float64 `json:"customers"`
	Revenue            float64 `json:"revenue"`
	Opex               float64 `json:"opex"`
	Capex              float64 `json:"capex"`
	Costs              float64 `json:"costs"`
	Profit             float64 `json:"profit"`
	CashFlow           float64 `json:"cashFlow"`
	CumulativeCashFlow float64 `json:"cumulativeCashFlow"`
	DiscountedCashFlow float64 `json:"discountedCashFlow"`
}

type FinancialMetrics struct {
	NPV float64 `json:"npv"`
	// IRR and PaybackYears are nil when the cash flows never turn positive.
	IRR            *float64 `json:"irr"`
	ROI            float64  `json:"roi"`
	PaybackYears   *float64 `json:"paybackYears"`
	TCO            float64  `json:"tco"`
	DeclaredTCO    float64  `json:"declaredTco,omitempty"`
	TotalRevenue   float64  `json:"totalRevenue"`
	TotalCosts     float64  `json:"totalCosts"`
	TotalProfit    float64  `json:"totalProfit"`
	DiscountRate   float64  `json:"discountRate"`
	OpexGrowthRate float64  `json:"opexGrowthRate"`
}

type ScenarioOutcome struct {
	NPV          float64  `json:"npv"`
	ROI          float64  `json:"roi"`
	PaybackYears *float64 `json:"paybackYears"`
	TotalRevenue float64  `json:"totalRevenue"`
}

type SensitivityDriver struct {
	Assumption string  `json:"assumption"`
	NPVDelta   float64 `json:"npvDelta"`
	Direction  string  `json:"direction"`
}

type MarketAnalysis struct {
	Overview     string   `json:"overview"`
	TargetMarket string   `json:"targetMarket"`
	Competition  string   `json:"competition"`
	Trends       []string `json:"trends"`
}

type Risk struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Likelihood  Level  `json:"likelihood"`
	Impact      Level  `json:"impact"`
	Mitigation  string `json:"mitigation"`
}

type RiskAssessment struct {
	Summary string `json:"summary"`
	Risks   []Risk `json:"risks"`
}

type TimelinePhase struct {
	Phase      string   `json:"phase"`
	Duration   string   `json:"duration"`
	Activities []string `json:"activities"`
	Milestones []string `json:"milestones"`
}

type ReportData struct {
	ID                     string                     `json:"id"`
	CreatedAt              time.Time                  `json:"createdAt"`
	Input                  BusinessCaseData           `json:"input"`
	ExecutiveSummary       string                     `json:"executiveSummary"`
	FinancialProjections   []YearlyProjection         `json:"financialProjections"`
	MarketAnalysis         MarketAnalysis             `json:"marketAnalysis"`
	FinancialMetrics       FinancialMetrics           `json:"financialMetrics"`
	Scenarios              map[string]ScenarioOutcome `json:"scenarios,omitempty"`
	Sensitivity            []SensitivityDriver        `json:"sensitivity,omitempty"`
	RiskAssessment         RiskAssessment             `json:"riskAssessment"`
	ImplementationTimeline []TimelinePhase            `json:"implementationTimeline"`
	Recommendations        []string                   `json:"recommendations"`
	Mode                   ReportMode                 `json:"mode"`
	FailedSections         []Section                  `json:"failedSections,omitempty"`
	Provider               string                     `json:"provider,omitempty"`
	Model                  string                     `json:"model,omitempty"`
	Disclaimer             string                     `json:"disclaimer"`
}

// Title is the heading used by every rendering of the report.
func (r ReportData) Title() string {
	if r.Input.ProjectName == "" {
		return "Business Case"
	}
	return r.Input.ProjectName + " Business Case"
}
