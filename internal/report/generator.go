// Package report turns a business case into a full report: deterministic
// numbers from the finance package plus LLM-written narrative, with fallback
// content whenever the narrative cannot be produced.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/finance"
	"github.com/joelkehle/bizcase/internal/llm"
)

type SectionError struct {
	Section businesscase.Section
	Err     error
}

func (e *SectionError) Error() string { return fmt.Sprintf("%s: %v", e.Section, e.Err) }
func (e *SectionError) Unwrap() error { return e.Err }

// Result is a generated report plus what it took to produce it.
type Result struct {
	Report   businesscase.ReportData
	Attempts map[businesscase.Section]llm.Attempts
	Errors   []*SectionError
}

type Generator struct {
	exec         *llm.Executor
	assumptions  finance.Assumptions
	defaultYears int
	maxYears     int
	now          func() time.Time
	newID        func() string
}

func NewGenerator(exec *llm.Executor, a finance.Assumptions, defaultYears, maxYears int) *Generator {
	if defaultYears <= 0 {
		defaultYears = businesscase.DefaultTimelineYears
	}
	if maxYears <= 0 {
		maxYears = businesscase.MaxTimelineYears
	}
	return &Generator{
		exec:         exec,
		assumptions:  a,
		defaultYears: defaultYears,
		maxYears:     maxYears,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

func (g *Generator) Assumptions() finance.Assumptions { return g.assumptions }

// Provider names the LLM backend and model writing the narrative.
func (g *Generator) Provider() (provider, model string) { return llm.Describe(g.exec.Caller()) }

// Analyze normalises and validates d, then runs the financial model. It
// never calls the LLM.
func (g *Generator) Analyze(d businesscase.BusinessCaseData) (businesscase.BusinessCaseData, finance.Analysis, error) {
	if d.Financials.TimelineYears == 0 {
		d.Financials.TimelineYears = g.defaultYears
	}
	d.Normalize()
	if err := d.Validate(g.maxYears); err != nil {
		return d, finance.Analysis{}, err
	}
	return d, finance.Analyze(d, g.assumptions), nil
}

func (g *Generator) Generate(ctx context.Context, d businesscase.BusinessCaseData) (businesscase.ReportData, error) {
	res, err := g.Run(ctx, d)
	return res.Report, err
}

// Run builds the report. Only invalid input is an error; a failed narrative
// section is replaced with fallback content and the report marked DEGRADED.
func (g *Generator) Run(ctx context.Context, d businesscase.BusinessCaseData) (Result, error) {
	ctx, span := otel.Tracer("github.com/joelkehle/bizcase/internal/report").Start(ctx, "report.Generate")
	defer span.End()

	res := Result{Attempts: map[businesscase.Section]llm.Attempts{}}
	d, analysis, err := g.Analyze(d)
	if err != nil {
		span.RecordError(err)
		return res, err
	}

	var (
		overview    overviewOutput
		riskPlan    riskPlanOutput
		overviewErr error
		riskPlanErr error
		overviewAtt llm.Attempts
		riskPlanAtt llm.Attempts
	)

	var eg errgroup.Group
	eg.Go(func() error {
		overviewAtt, overviewErr = g.exec.Run(ctx, string(businesscase.SectionOverview), systemPrompt, overviewPrompt(d, analysis), &overview, func() error {
			return validateOverview(overview)
		})
		return nil
	})
	eg.Go(func() error {
		riskPlanAtt, riskPlanErr = g.exec.Run(ctx, string(businesscase.SectionRiskAndPlan), systemPrompt, riskPlanPrompt(d, analysis), &riskPlan, func() error {
			normalizeRiskPlan(&riskPlan)
			return validateRiskPlan(riskPlan)
		})
		return nil
	})
	_ = eg.Wait()

	res.Attempts[businesscase.SectionOverview] = overviewAtt
	res.Attempts[businesscase.SectionRiskAndPlan] = riskPlanAtt

	provider, model := llm.Describe(g.exec.Caller())
	rep := businesscase.ReportData{
		ID:                   g.newID(),
		CreatedAt:            g.now().UTC(),
		Input:                d,
		FinancialProjections: analysis.Projections,
		FinancialMetrics:     analysis.Metrics,
		Scenarios:            analysis.Scenarios,
		Sensitivity:          analysis.Sensitivity,
		Mode:                 businesscase.ReportModeComplete,
		Provider:             provider,
		Model:                model,
		Disclaimer:           businesscase.Disclaimer,
	}

	if overviewErr != nil {
		overview = fallbackOverview(d, analysis)
		res.Errors = append(res.Errors, &SectionError{Section: businesscase.SectionOverview, Err: overviewErr})
	}
	if riskPlanErr != nil {
		riskPlan = fallbackRiskPlan(d, analysis)
		res.Errors = append(res.Errors, &SectionError{Section: businesscase.SectionRiskAndPlan, Err: riskPlanErr})
	}
	for _, se := range res.Errors {
		rep.Mode = businesscase.ReportModeDegraded
		rep.FailedSections = append(rep.FailedSections, se.Section)
		zap.L().Warn("report section replaced with fallback", zap.String("report_id", rep.ID), zap.Error(se))
	}

	rep.ExecutiveSummary = overview.ExecutiveSummary
	rep.MarketAnalysis = overview.MarketAnalysis
	if rep.MarketAnalysis.Trends == nil {
		rep.MarketAnalysis.Trends = []string{}
	}
	rep.RiskAssessment = riskPlan.RiskAssessment
	rep.ImplementationTimeline = riskPlan.ImplementationTimeline
	rep.Recommendations = riskPlan.Recommendations

	span.SetAttributes(
		attribute.String("report.id", rep.ID),
		attribute.String("report.mode", string(rep.Mode)),
		attribute.String("llm.provider", provider),
	)
	res.Report = rep
	return res, nil
}
