package businesscase

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const maxGrowthRatePct = 1000

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every failing field so the form can highlight them at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid business case: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// IsValidationError reports whether err (or anything it wraps) is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize trims free text and fills the horizon default.
func (d *BusinessCaseData) Normalize() {
	d.ProjectName = strings.TrimSpace(d.ProjectName)
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.Country = strings.TrimSpace(d.Country)
	d.Industry = strings.TrimSpace(d.Industry)
	d.Description = strings.TrimSpace(d.Description)
	if d.Financials.TimelineYears == 0 {
		d.Financials.TimelineYears = DefaultTimelineYears
	}
}

func (d BusinessCaseData) Validate(maxYears int) error {
	if maxYears <= 0 {
		maxYears = MaxTimelineYears
	}
	ve := &ValidationError{}
	requireText(ve, "projectName", d.ProjectName)
	requireText(ve, "companyName", d.CompanyName)
	requireText(ve, "country", d.Country)
	requireText(ve, "industry", d.Industry)
	if len(d.Description) > MaxDescriptionChars {
		ve.add("description", "must be at most %d characters", MaxDescriptionChars)
	}

	requireAmount(ve, "financials.capex", d.Financials.Capex)
	requireAmount(ve, "financials.opex", d.Financials.Opex)
	requireAmount(ve, "financials.tco", d.Financials.TCO)
	if d.Financials.TimelineYears < 1 || d.Financials.TimelineYears > maxYears {
		ve.add("financials.timelineYears", "must be between 1 and %d", maxYears)
	}

	requireAmount(ve, "customers.initialCustomers", d.Customers.InitialCustomers)
	requireAmount(ve, "customers.growthRate", d.Customers.GrowthRate)
	if d.Customers.GrowthRate > maxGrowthRatePct {
		ve.add("customers.growthRate", "must be at most %d percent", maxGrowthRatePct)
	}
	requireAmount(ve, "customers.arpu", d.Customers.ARPU)

	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func requireText(ve *ValidationError, field, v string) {
	if len([]rune(strings.TrimSpace(v))) < MinNameChars {
		ve.add(field, "must be at least %d characters", MinNameChars)
	}
}

func requireAmount(ve *ValidationError, field string, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		ve.add(field, "must be a finite number")
	case v < 0:
		ve.add(field, "must not be negative")
	}
}
