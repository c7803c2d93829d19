package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/finance"
)

// Reference URLs used in the report markdown.
const (
	npvURL         = "https://www.investopedia.com/terms/n/npv.asp"
	irrURL         = "https://www.investopedia.com/terms/i/irr.asp"
	roiURL         = "https://www.investopedia.com/terms/r/returnoninvestment.asp"
	paybackURL     = "https://www.investopedia.com/terms/p/paybackperiod.asp"
	tcoURL         = "https://www.investopedia.com/terms/t/totalcostofownership.asp"
	sensitivityURL = "https://www.investopedia.com/terms/s/sensitivityanalysis.asp"
)

// BuildMarkdown renders the whole report as GitHub-flavoured markdown. The
// HTML, PDF and DOCX exports are all derived from this text or the same data.
func BuildMarkdown(r businesscase.ReportData) string {
	var b strings.Builder
	in := r.Input
	m := r.FinancialMetrics

	fmt.Fprintf(&b, "# %s\n\n", sanitize(r.Title()))
	fmt.Fprintf(&b, "- Company: %s\n", sanitize(in.CompanyName))
	fmt.Fprintf(&b, "- Country: %s\n", sanitize(in.Country))
	fmt.Fprintf(&b, "- Industry: %s\n", sanitize(in.Industry))
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Date: %s\n", r.CreatedAt.Format("2 January 2006"))
	}
	if r.ID != "" {
		fmt.Fprintf(&b, "- Report ID: %s\n", r.ID)
	}
	fmt.Fprintf(&b, "\n")

	if r.Mode == businesscase.ReportModeDegraded {
		parts := make([]string, 0, len(r.FailedSections))
		for _, s := range r.FailedSections {
			parts = append(parts, "`"+string(s)+"`")
		}
		fmt.Fprintf(&b, "> DEGRADED: narrative for %s could not be generated and was replaced with content derived from the financial model. Treat it as a draft pending review.\n\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", strings.TrimSpace(r.ExecutiveSummary))

	fmt.Fprintf(&b, "## Market Analysis\n\n")
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.MarketAnalysis.Overview))
	if r.MarketAnalysis.TargetMarket != "" {
		fmt.Fprintf(&b, "### Target Market\n\n%s\n\n", strings.TrimSpace(r.MarketAnalysis.TargetMarket))
	}
	if r.MarketAnalysis.Competition != "" {
		fmt.Fprintf(&b, "### Competition\n\n%s\n\n", strings.TrimSpace(r.MarketAnalysis.Competition))
	}
	if len(r.MarketAnalysis.Trends) > 0 {
		fmt.Fprintf(&b, "### Trends\n\n")
		for _, t := range r.MarketAnalysis.Trends {
			fmt.Fprintf(&b, "- %s\n", sanitize(t))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Financial Projections\n\n")
	fmt.Fprintf(&b, "Customers grow at %.1f%% per year from %.0f, each paying $%.2f per month. "+
		"OPEX inflates %.0f%% per year and CAPEX is spent in year 1.\n\n",
		in.Customers.GrowthRate, in.Customers.InitialCustomers, in.Customers.ARPU, m.OpexGrowthRate*100)
	fmt.Fprintf(&b, "| Year | Customers | Revenue | OPEX | CAPEX | Profit | Cumulative Cash Flow |\n")
	fmt.Fprintf(&b, "|------|-----------|---------|------|-------|--------|----------------------|\n")
	for _, p := range r.FinancialProjections {
		fmt.Fprintf(&b, "| %d | %s | $%s | $%s | $%s | $%s | $%s |\n",
			p.Year, FormatCount(p.Customers), FormatUSD(p.Revenue), FormatUSD(p.Opex), FormatUSD(p.Capex), FormatUSD(p.Profit), FormatUSD(p.CumulativeCashFlow))
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## Financial Metrics\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| [NPV](%s) @ %.0f%% | $%s |\n", npvURL, m.DiscountRate*100, FormatUSD(m.NPV))
	fmt.Fprintf(&b, "| [IRR](%s) | %s |\n", irrURL, FormatPercent(m.IRR))
	fmt.Fprintf(&b, "| [ROI](%s) | %.1f%% |\n", roiURL, m.ROI)
	fmt.Fprintf(&b, "| [Payback](%s) | %s |\n", paybackURL, FormatYears(m.PaybackYears))
	fmt.Fprintf(&b, "| [TCO](%s) | $%s |\n", tcoURL, FormatUSD(m.TCO))
	if m.DeclaredTCO > 0 {
		fmt.Fprintf(&b, "| TCO (as entered) | $%s |\n", FormatUSD(m.DeclaredTCO))
	}
	fmt.Fprintf(&b, "| Total revenue | $%s |\n", FormatUSD(m.TotalRevenue))
	fmt.Fprintf(&b, "| Total costs | $%s |\n", FormatUSD(m.TotalCosts))
	fmt.Fprintf(&b, "| Total profit | $%s |\n\n", FormatUSD(m.TotalProfit))

	if len(r.Scenarios) > 0 {
		fmt.Fprintf(&b, "### Scenarios\n\n")
		fmt.Fprintf(&b, "| Scenario | NPV | ROI | Payback | Revenue |\n|----------|-----|-----|---------|---------|\n")
		for _, name := range ScenarioOrder {
			s, ok := r.Scenarios[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "| %s | $%s | %.1f%% | %s | $%s |\n", ScenarioLabel(name), FormatUSD(s.NPV), s.ROI, FormatYears(s.PaybackYears), FormatUSD(s.TotalRevenue))
		}
		fmt.Fprintf(&b, "\n")
	}
	if len(r.Sensitivity) > 0 {
		fmt.Fprintf(&b, "### [Sensitivity](%s)\n\n", sensitivityURL)
		for _, s := range r.Sensitivity {
			fmt.Fprintf(&b, "- %s\n", sanitize(s.Direction))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Risk Assessment\n\n%s\n\n", strings.TrimSpace(r.RiskAssessment.Summary))
	if len(r.RiskAssessment.Risks) > 0 {
		fmt.Fprintf(&b, "| Category | Risk | Likelihood | Impact | Mitigation |\n")
		fmt.Fprintf(&b, "|----------|------|------------|--------|------------|\n")
		for _, risk := range r.RiskAssessment.Risks {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				sanitizeCell(risk.Category), sanitizeCell(risk.Description), risk.Likelihood, risk.Impact, sanitizeCell(risk.Mitigation))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Implementation Timeline\n\n")
	for _, p := range r.ImplementationTimeline {
		fmt.Fprintf(&b, "### %s", sanitize(p.Phase))
		if p.Duration != "" {
			fmt.Fprintf(&b, " (%s)", sanitize(p.Duration))
		}
		fmt.Fprintf(&b, "\n\n")
		for _, a := range p.Activities {
			fmt.Fprintf(&b, "- %s\n", sanitize(a))
		}
		for _, ms := range p.Milestones {
			fmt.Fprintf(&b, "- Milestone: %s\n", sanitize(ms))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Recommendations\n\n")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sanitize(rec))
	}
	fmt.Fprintf(&b, "\n---\n\n")

	disclaimer := r.Disclaimer
	if disclaimer == "" {
		disclaimer = businesscase.Disclaimer
	}
	fmt.Fprintf(&b, "*%s*\n", sanitize(disclaimer))
	return b.String()
}

// ScenarioOrder is the display order of scenario rows.
var ScenarioOrder = []string{finance.ScenarioPessimistic, finance.ScenarioBase, finance.ScenarioOptimistic}

func ScenarioLabel(name string) string {
	switch name {
	case finance.ScenarioPessimistic:
		return "Pessimistic"
	case finance.ScenarioBase:
		return "Base"
	case finance.ScenarioOptimistic:
		return "Optimistic"
	}
	return name
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// sanitizeCell prepares text for use inside a markdown table cell.
func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}

// fmtUSD formats an integer dollar amount with comma separators (e.g. 500000000 → "500,000,000").
func fmtUSD(n int64) string {
	if n < 0 {
		return "-" + fmtUSD(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func fmtUSDf(n float64) string {
	return fmtUSD(int64(math.Round(n)))
}

func fmtPercentPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func fmtYearsPtr(v *float64) string {
	if v == nil {
		return "not within horizon"
	}
	return fmt.Sprintf("%.1f years", *v)
}

// FormatUSD rounds to whole dollars with thousands separators.
func FormatUSD(n float64) string { return fmtUSDf(n) }

// FormatPercent renders an optional percentage, "n/a" when undefined.
func FormatPercent(v *float64) string { return fmtPercentPtr(v) }

// FormatYears renders an optional payback period.
func FormatYears(v *float64) string { return fmtYearsPtr(v) }

func FormatCount(n float64) string { return fmtUSD(int64(math.Round(n))) }
