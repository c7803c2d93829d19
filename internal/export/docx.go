package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/report"
)

// Run sizes are in half-points.
const (
	docxTitleSize    = "40"
	docxHeading1Size = "30"
	docxHeading2Size = "25"
	docxHeadingColor = "1D4ED8"
	docxHeaderFill   = "F1F5F9"
	docxBorderColor  = "#A8A29E"
)

// docxBody adds paragraphs and tables to a go-docx document in reading order.
type docxBody struct {
	doc *docx.Docx
}

func newDOCXBody() *docxBody {
	return &docxBody{doc: docx.New().WithDefaultTheme()}
}

func (d *docxBody) text(text string, bold bool) *docx.Run {
	run := d.doc.AddParagraph().AddText(text)
	if bold {
		run.Bold()
	}
	return run
}

func (d *docxBody) title(text string) { d.text(text, true).Size(docxTitleSize) }

func (d *docxBody) heading1(text string) {
	d.text(text, true).Size(docxHeading1Size).Color(docxHeadingColor)
}

func (d *docxBody) heading2(text string) { d.text(text, true).Size(docxHeading2Size) }

func (d *docxBody) bullet(text string) { d.text("• "+text, false) }

// paragraphs splits on blank lines so multi-paragraph narrative survives.
func (d *docxBody) paragraphs(text string) {
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			d.text(strings.ReplaceAll(p, "\n", " "), false)
		}
	}
}

func (d *docxBody) labelled(label, value string) {
	p := d.doc.AddParagraph()
	p.AddText(label + ": ").Bold()
	p.AddText(value)
}

func (d *docxBody) table(header []string, rows [][]string) {
	borders := &docx.APITableBorderColors{
		Top: docxBorderColor, Left: docxBorderColor, Bottom: docxBorderColor,
		Right: docxBorderColor, InsideH: docxBorderColor, InsideV: docxBorderColor,
	}
	tbl := d.doc.AddTable(len(rows)+1, len(header), 0, borders)
	for i, h := range header {
		cell := tbl.TableRows[0].TableCells[i].Shade("clear", "auto", docxHeaderFill)
		cell.AddParagraph().AddText(h).Bold()
	}
	for r, row := range rows {
		cells := tbl.TableRows[r+1].TableCells
		for c := range cells {
			v := ""
			if c < len(row) {
				v = row[c]
			}
			cells[c].AddParagraph().AddText(v)
		}
	}
	d.doc.AddParagraph()
}

func (d *docxBody) bytes() ([]byte, error) {
	d.doc.WithA4Page()
	var buf bytes.Buffer
	if _, err := d.doc.WriteTo(&buf); err != nil {
		return nil, eris.Wrap(err, "docx: write")
	}
	return buf.Bytes(), nil
}

// RenderDOCX writes the report as a Word document.
func RenderDOCX(r businesscase.ReportData) ([]byte, error) {
	d := newDOCXBody()
	in := r.Input
	m := r.FinancialMetrics

	d.title(r.Title())
	d.labelled("Company", in.CompanyName)
	d.labelled("Country", in.Country)
	d.labelled("Industry", in.Industry)
	if !r.CreatedAt.IsZero() {
		d.labelled("Date", r.CreatedAt.Format("2 January 2006"))
	}
	if r.Mode == businesscase.ReportModeDegraded {
		parts := make([]string, 0, len(r.FailedSections))
		for _, s := range r.FailedSections {
			parts = append(parts, string(s))
		}
		d.text("DEGRADED: narrative for "+strings.Join(parts, ", ")+" was replaced with content derived from the financial model.", true).Color("B45309")
	}

	d.heading1("Executive Summary")
	d.paragraphs(r.ExecutiveSummary)

	d.heading1("Market Analysis")
	d.paragraphs(r.MarketAnalysis.Overview)
	if r.MarketAnalysis.TargetMarket != "" {
		d.heading2("Target Market")
		d.paragraphs(r.MarketAnalysis.TargetMarket)
	}
	if r.MarketAnalysis.Competition != "" {
		d.heading2("Competition")
		d.paragraphs(r.MarketAnalysis.Competition)
	}
	if len(r.MarketAnalysis.Trends) > 0 {
		d.heading2("Trends")
		for _, t := range r.MarketAnalysis.Trends {
			d.bullet(t)
		}
	}

	d.heading1("Financial Projections")
	rows := make([][]string, 0, len(r.FinancialProjections))
	for _, p := range r.FinancialProjections {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.Year), report.FormatCount(p.Customers), "$" + report.FormatUSD(p.Revenue),
			"$" + report.FormatUSD(p.Opex), "$" + report.FormatUSD(p.Capex), "$" + report.FormatUSD(p.Profit),
			"$" + report.FormatUSD(p.CumulativeCashFlow),
		})
	}
	d.table([]string{"Year", "Customers", "Revenue", "OPEX", "CAPEX", "Profit", "Cumulative"}, rows)

	d.heading1("Financial Metrics")
	metrics := [][]string{
		{fmt.Sprintf("NPV @ %.0f%%", m.DiscountRate*100), "$" + report.FormatUSD(m.NPV)},
		{"IRR", report.FormatPercent(m.IRR)},
		{"ROI", fmt.Sprintf("%.1f%%", m.ROI)},
		{"Payback", report.FormatYears(m.PaybackYears)},
		{"TCO", "$" + report.FormatUSD(m.TCO)},
		{"Total revenue", "$" + report.FormatUSD(m.TotalRevenue)},
		{"Total costs", "$" + report.FormatUSD(m.TotalCosts)},
	}
	if m.DeclaredTCO > 0 {
		metrics = append(metrics, []string{"TCO (as entered)", "$" + report.FormatUSD(m.DeclaredTCO)})
	}
	d.table([]string{"Metric", "Value"}, metrics)

	if len(r.Scenarios) > 0 {
		d.heading2("Scenarios")
		srows := [][]string{}
		for _, name := range report.ScenarioOrder {
			s, ok := r.Scenarios[name]
			if !ok {
				continue
			}
			srows = append(srows, []string{report.ScenarioLabel(name), "$" + report.FormatUSD(s.NPV), fmt.Sprintf("%.1f%%", s.ROI), report.FormatYears(s.PaybackYears)})
		}
		d.table([]string{"Scenario", "NPV", "ROI", "Payback"}, srows)
	}
	if len(r.Sensitivity) > 0 {
		d.heading2("Sensitivity")
		for _, s := range r.Sensitivity {
			d.bullet(s.Direction)
		}
	}

	d.heading1("Risk Assessment")
	d.paragraphs(r.RiskAssessment.Summary)
	if len(r.RiskAssessment.Risks) > 0 {
		rrows := make([][]string, 0, len(r.RiskAssessment.Risks))
		for _, risk := range r.RiskAssessment.Risks {
			rrows = append(rrows, []string{risk.Category, risk.Description, string(risk.Likelihood), string(risk.Impact), risk.Mitigation})
		}
		d.table([]string{"Category", "Risk", "Likelihood", "Impact", "Mitigation"}, rrows)
	}

	d.heading1("Implementation Timeline")
	for _, p := range r.ImplementationTimeline {
		h := p.Phase
		if p.Duration != "" {
			h += " (" + p.Duration + ")"
		}
		d.heading2(h)
		for _, a := range p.Activities {
			d.bullet(a)
		}
		for _, ms := range p.Milestones {
			d.bullet("Milestone: " + ms)
		}
	}

	d.heading1("Recommendations")
	for i, rec := range r.Recommendations {
		d.text(fmt.Sprintf("%d. %s", i+1, rec), false)
	}

	disclaimer := r.Disclaimer
	if disclaimer == "" {
		disclaimer = businesscase.Disclaimer
	}
	d.text(disclaimer, false).Italic()

	return d.bytes()
}
