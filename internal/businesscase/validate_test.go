package businesscase

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
)

func validCase() BusinessCaseData {
	return BusinessCaseData{
		ProjectName: "Fleet Telematics",
		CompanyName: "Acme Logistics",
		Country:     "Germany",
		Industry:    "Transportation",
		Financials:  FinancialInputs{Capex: 250000, Opex: 60000, TimelineYears: 5},
		Customers:   CustomerInputs{InitialCustomers: 40, GrowthRate: 25, ARPU: 199},
	}
}

func TestValidateAcceptsCompleteCase(t *testing.T) {
	if err := validCase().Validate(MaxTimelineYears); err != nil {
		t.Fatalf("expected valid case, got %v", err)
	}
}

func TestNormalizeTrimsAndDefaultsHorizon(t *testing.T) {
	d := validCase()
	d.ProjectName = "  Fleet Telematics \n"
	d.Financials.TimelineYears = 0
	d.Normalize()
	if d.ProjectName != "Fleet Telematics" {
		t.Fatalf("expected trimmed name, got %q", d.ProjectName)
	}
	if d.Financials.TimelineYears != DefaultTimelineYears {
		t.Fatalf("expected default horizon %d, got %d", DefaultTimelineYears, d.Financials.TimelineYears)
	}
}

func TestValidateCollectsEveryFailingField(t *testing.T) {
	d := validCase()
	d.ProjectName = "x"
	d.Financials.Capex = -1
	d.Customers.ARPU = math.NaN()
	d.Financials.TimelineYears = 11

	err := d.Validate(MaxTimelineYears)
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	ve := err.(*ValidationError)
	got := map[string]bool{}
	for _, f := range ve.Fields {
		got[f.Field] = true
	}
	for _, field := range []string{"projectName", "financials.capex", "customers.arpu", "financials.timelineYears"} {
		if !got[field] {
			t.Fatalf("expected %s in %v", field, ve.Fields)
		}
	}
}

func TestValidateGrowthRateCeiling(t *testing.T) {
	d := validCase()
	d.Customers.GrowthRate = 1500
	if err := d.Validate(0); err == nil {
		t.Fatal("expected growth rate ceiling to reject 1500%")
	}
}

func TestIsValidationErrorUnwraps(t *testing.T) {
	wrapped := eris.Wrap(&ValidationError{Fields: []FieldError{{Field: "country", Message: "required"}}}, "generate")
	if !IsValidationError(wrapped) {
		t.Fatal("expected wrapped validation error to be detected")
	}
}
