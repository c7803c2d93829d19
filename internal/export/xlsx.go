package export

import (
	"bytes"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/report"
)

const (
	usdFormat   = `"$"#,##0`
	countFormat = `#,##0`
)

// Sheet names in the workbook.
const (
	SheetProjections = "Projections"
	SheetMetrics     = "Metrics"
	SheetScenarios   = "Scenarios"
)

// RenderXLSX writes the numeric parts of the report to a workbook so the
// model can be rechecked in a spreadsheet.
func RenderXLSX(r businesscase.ReportData) ([]byte, error) {
	f := xlsx.NewFile()

	proj, err := f.AddSheet(SheetProjections)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add projections sheet")
	}
	headerRow(proj, "Year", "Customers", "Revenue", "OPEX", "CAPEX", "Total costs", "Profit", "Cash flow", "Cumulative cash flow", "Discounted cash flow")
	for _, p := range r.FinancialProjections {
		row := proj.AddRow()
		row.AddCell().SetInt(p.Year)
		row.AddCell().SetFloatWithFormat(p.Customers, countFormat)
		for _, v := range []float64{p.Revenue, p.Opex, p.Capex, p.Costs, p.Profit, p.CashFlow, p.CumulativeCashFlow, p.DiscountedCashFlow} {
			row.AddCell().SetFloatWithFormat(v, usdFormat)
		}
	}

	m := r.FinancialMetrics
	met, err := f.AddSheet(SheetMetrics)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add metrics sheet")
	}
	headerRow(met, "Metric", "Value")
	moneyRow(met, "NPV", m.NPV)
	textRow(met, "IRR", report.FormatPercent(m.IRR))
	percentRow(met, "ROI", m.ROI)
	textRow(met, "Payback", report.FormatYears(m.PaybackYears))
	moneyRow(met, "TCO", m.TCO)
	if m.DeclaredTCO > 0 {
		moneyRow(met, "TCO (as entered)", m.DeclaredTCO)
	}
	moneyRow(met, "Total revenue", m.TotalRevenue)
	moneyRow(met, "Total costs", m.TotalCosts)
	moneyRow(met, "Total profit", m.TotalProfit)
	percentRow(met, "Discount rate", m.DiscountRate*100)
	percentRow(met, "OPEX growth rate", m.OpexGrowthRate*100)

	sc, err := f.AddSheet(SheetScenarios)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add scenarios sheet")
	}
	headerRow(sc, "Scenario", "NPV", "ROI (%)", "Payback", "Total revenue")
	for _, name := range report.ScenarioOrder {
		s, ok := r.Scenarios[name]
		if !ok {
			continue
		}
		row := sc.AddRow()
		row.AddCell().SetString(report.ScenarioLabel(name))
		row.AddCell().SetFloatWithFormat(s.NPV, usdFormat)
		row.AddCell().SetFloatWithFormat(s.ROI, "0.0")
		row.AddCell().SetString(report.FormatYears(s.PaybackYears))
		row.AddCell().SetFloatWithFormat(s.TotalRevenue, usdFormat)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write workbook")
	}
	return buf.Bytes(), nil
}

func headerRow(s *xlsx.Sheet, names ...string) {
	row := s.AddRow()
	for _, n := range names {
		c := row.AddCell()
		c.SetString(n)
		st := xlsx.NewStyle()
		st.Font.Bold = true
		c.SetStyle(st)
	}
}

func moneyRow(s *xlsx.Sheet, label string, v float64) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloatWithFormat(v, usdFormat)
}

func percentRow(s *xlsx.Sheet, label string, v float64) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloatWithFormat(v, `0.0"%"`)
}

func textRow(s *xlsx.Sheet, label, v string) {
	row := s.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(v)
}
