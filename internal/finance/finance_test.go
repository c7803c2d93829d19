package finance

import (
	"math"
	"testing"

	"go.uber.org/goleak"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleCase() businesscase.BusinessCaseData {
	return businesscase.BusinessCaseData{
		ProjectName: "Sample",
		CompanyName: "Sample Co",
		Country:     "US",
		Industry:    "Software",
		Financials:  businesscase.FinancialInputs{Capex: 1000, Opex: 500, TimelineYears: 3},
		Customers:   businesscase.CustomerInputs{InitialCustomers: 100, GrowthRate: 10, ARPU: 10},
	}
}

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %f want %f", name, got, want)
	}
}

func TestProjectCompoundGrowthAndOpexInflation(t *testing.T) {
	p := Project(sampleCase(), DefaultAssumptions())
	if len(p) != 3 {
		t.Fatalf("expected 3 years, got %d", len(p))
	}
	wantCustomers := []float64{100, 110, 121}
	wantOpex := []float64{500, 550, 605}
	for i, row := range p {
		if row.Year != i+1 {
			t.Fatalf("row %d has year %d", i, row.Year)
		}
		near(t, "customers", row.Customers, wantCustomers[i], 1e-9)
		near(t, "opex", row.Opex, wantOpex[i], 1e-9)
		near(t, "revenue", row.Revenue, wantCustomers[i]*10*12, 1e-6)
	}
	if p[0].Capex != 1000 || p[1].Capex != 0 || p[2].Capex != 0 {
		t.Fatalf("capex must be booked in year 1 only: %+v", p)
	}
	near(t, "year1 profit", p[0].Profit, 12000-1500, 1e-9)
	near(t, "cumulative", p[2].CumulativeCashFlow, 10500+12650+13915, 1e-6)
}

func TestProjectCustomerFormula(t *testing.T) {
	d := sampleCase()
	d.Customers = businesscase.CustomerInputs{InitialCustomers: 250, GrowthRate: 35, ARPU: 1}
	d.Financials.TimelineYears = 8
	for _, row := range Project(d, DefaultAssumptions()) {
		want := 250 * math.Pow(1.35, float64(row.Year-1))
		near(t, "customers", row.Customers, want, 1e-6)
	}
}

func TestAnalyzeKnownMetrics(t *testing.T) {
	a := Analyze(sampleCase(), DefaultAssumptions())
	m := a.Metrics
	near(t, "npv", m.NPV, 10500/1.1+12650/1.21+13915/1.331, 1e-6)
	near(t, "tco", m.TCO, 2655, 1e-9)
	near(t, "roi", m.ROI, (39720.0-2655.0)/2655.0*100, 1e-6)
	if m.PaybackYears == nil {
		t.Fatal("expected payback within horizon")
	}
	near(t, "payback", *m.PaybackYears, 1000.0/11500.0, 1e-9)
	if m.IRR != nil {
		t.Fatalf("all-positive flows have no IRR, got %f", *m.IRR)
	}
	if m.DiscountRate != 0.10 || m.OpexGrowthRate != 0.10 {
		t.Fatalf("assumptions not carried into metrics: %+v", m)
	}
}

func TestIRRKnownValue(t *testing.T) {
	irr := IRR([]float64{-100, 60, 60})
	if irr == nil {
		t.Fatal("expected IRR")
	}
	near(t, "irr", *irr, 13.0662, 0.01)
	if v := NPV([]float64{-100, 60, 60}, *irr/100); math.Abs(v) > 1e-4 {
		t.Fatalf("NPV at IRR should be ~0, got %f", v)
	}
}

func TestIRRUndefined(t *testing.T) {
	if IRR([]float64{-10, -10, -10}) != nil {
		t.Fatal("expected nil IRR for flows that never recover")
	}
	if IRR([]float64{0, 0}) != nil {
		t.Fatal("expected nil IRR for zero flows")
	}
}

func TestPaybackNeverRecovers(t *testing.T) {
	d := sampleCase()
	d.Customers.ARPU = 0
	a := Analyze(d, DefaultAssumptions())
	if a.Metrics.PaybackYears != nil {
		t.Fatalf("expected nil payback, got %f", *a.Metrics.PaybackYears)
	}
	if a.Metrics.NPV >= 0 {
		t.Fatalf("expected negative NPV without revenue, got %f", a.Metrics.NPV)
	}
}

func TestPaybackInterpolatesAcrossYears(t *testing.T) {
	p := []businesscase.YearlyProjection{
		{Year: 1, Revenue: 100, Capex: 250, CashFlow: -150, CumulativeCashFlow: -150},
		{Year: 2, Revenue: 100, CashFlow: 100, CumulativeCashFlow: -50},
		{Year: 3, Revenue: 100, CashFlow: 100, CumulativeCashFlow: 50},
	}
	got := Payback(p)
	if got == nil {
		t.Fatal("expected payback")
	}
	near(t, "payback", *got, 2.5, 1e-9)
}

func TestPaybackWithoutCapexStillNeedsProfit(t *testing.T) {
	d := sampleCase()
	d.Financials.Capex = 0
	d.Financials.Opex = 100000
	d.Customers.InitialCustomers = 100
	d.Customers.GrowthRate = 0
	d.Customers.ARPU = 10
	a := Analyze(d, DefaultAssumptions())
	for _, row := range a.Projections {
		if row.CumulativeCashFlow >= 0 {
			t.Fatalf("expected a loss every year, got %+v", row)
		}
	}
	if a.Metrics.PaybackYears != nil {
		t.Fatalf("expected nil payback for a loss-making case, got %f", *a.Metrics.PaybackYears)
	}
	if pb := a.Scenarios[ScenarioBase].PaybackYears; pb != nil {
		t.Fatalf("expected nil scenario payback, got %f", *pb)
	}
}

func TestPaybackImmediateWithoutCapex(t *testing.T) {
	d := sampleCase()
	d.Financials.Capex = 0
	got := Payback(Project(d, DefaultAssumptions()))
	if got == nil || *got != 0 {
		t.Fatalf("expected payback 0 when nothing is invested and year 1 is profitable, got %v", got)
	}
}

func TestSensitivityZeroDeltaIsNeutral(t *testing.T) {
	if got := direction("CAPEX", 1000, 1000); got != "Changing CAPEX by ±20% does not move NPV" {
		t.Fatalf("unexpected neutral direction %q", got)
	}
	if got := direction("CAPEX", 1000, 1000.3); got != "Changing CAPEX by ±20% does not move NPV" {
		t.Fatalf("sub-dollar swing should read neutral, got %q", got)
	}
	if got := direction("CAPEX", 1500, 500); got != "Higher CAPEX decreases NPV by $1000 across a ±20% swing" {
		t.Fatalf("unexpected direction %q", got)
	}
}

func TestROIZeroCosts(t *testing.T) {
	if ROI([]businesscase.YearlyProjection{{Revenue: 10}}) != 0 {
		t.Fatal("expected ROI 0 when there are no costs")
	}
}

func TestScenarioOrdering(t *testing.T) {
	a := Analyze(sampleCase(), DefaultAssumptions())
	if a.Scenarios[ScenarioOptimistic].NPV < a.Scenarios[ScenarioBase].NPV {
		t.Fatal("expected optimistic >= base")
	}
	if a.Scenarios[ScenarioBase].NPV < a.Scenarios[ScenarioPessimistic].NPV {
		t.Fatal("expected base >= pessimistic")
	}
	near(t, "base matches metrics", a.Scenarios[ScenarioBase].NPV, a.Metrics.NPV, 1e-6)
}

func TestSensitivitySortedAndCapped(t *testing.T) {
	a := Analyze(sampleCase(), DefaultAssumptions())
	if len(a.Sensitivity) != maxSensitivityRows {
		t.Fatalf("expected %d drivers, got %d", maxSensitivityRows, len(a.Sensitivity))
	}
	for i := 1; i < len(a.Sensitivity); i++ {
		if a.Sensitivity[i].NPVDelta > a.Sensitivity[i-1].NPVDelta {
			t.Fatalf("drivers not sorted: %+v", a.Sensitivity)
		}
	}
	for _, d := range a.Sensitivity {
		if d.Assumption == "opex" || d.Assumption == "capex" {
			t.Fatalf("cost drivers should not outrank revenue drivers here: %+v", a.Sensitivity)
		}
	}
}

func TestDeclaredTCOPassedThrough(t *testing.T) {
	d := sampleCase()
	d.Financials.TCO = 9999
	a := Analyze(d, DefaultAssumptions())
	if a.Metrics.DeclaredTCO != 9999 {
		t.Fatalf("expected declared TCO to be reported, got %f", a.Metrics.DeclaredTCO)
	}
}
