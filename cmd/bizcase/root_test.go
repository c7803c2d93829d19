package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/config"
	"github.com/joelkehle/bizcase/internal/finance"
	"github.com/joelkehle/bizcase/internal/llm"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"serve", "generate", "export", "project"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "bizcase", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("addr"))
	for _, name := range []string{"input", "out", "format", "export-out", "save"} {
		assert.NotNil(t, generateCmd.Flags().Lookup(name), "generate --%s", name)
	}
	f := exportCmd.Flags().Lookup("format")
	require.NotNil(t, f)
	assert.Equal(t, "pdf", f.DefValue)
	require.NotNil(t, projectCmd.Flags().Lookup("input"))
}

const caseYAML = `projectName: Fleet Telematics
companyName: Acme Logistics
country: Germany
industry: Transportation
financials:
  capex: 1000
  opex: 500
  timelineYears: 3
customers:
  initialCustomers: 100
  growthRate: 10
  arpu: 10
`

func TestReadCaseYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "case.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(caseYAML), 0o644))
	d, err := readCase(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Fleet Telematics", d.ProjectName)
	assert.Equal(t, 3, d.Financials.TimelineYears)
	assert.Equal(t, 10.0, d.Customers.ARPU)

	jsonPath := filepath.Join(dir, "case.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"projectName":"P","customers":{"growthRate":5}}`), 0o644))
	d, err = readCase(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "P", d.ProjectName)
	assert.Equal(t, 5.0, d.Customers.GrowthRate)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{`), 0o644))
	_, err = readCase(badPath)
	assert.Error(t, err)

	_, err = readCase(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewGeneratorFallsBackToStatic(t *testing.T) {
	c := &config.Config{
		LLM:     config.LLMConfig{Provider: "anthropic", MaxAttempts: 2, TimeoutSecs: 1},
		Finance: config.FinanceConfig{DiscountRate: 0.08, OpexGrowthRate: 0.05, DefaultHorizonYears: 4, MaxHorizonYears: 10},
	}
	gen := newGenerator(c)
	provider, _ := gen.Provider()
	assert.Equal(t, "static", provider)
	assert.Equal(t, finance.Assumptions{DiscountRate: 0.08, OpexGrowthRate: 0.05}, gen.Assumptions())

	d, a, err := gen.Analyze(businesscase.BusinessCaseData{
		ProjectName: "Fleet", CompanyName: "Acme", Country: "DE", Industry: "Logistics",
		Customers: businesscase.CustomerInputs{InitialCustomers: 10, ARPU: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Financials.TimelineYears)
	assert.Len(t, a.Projections, 4)
}

func TestWriteProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, os.WriteFile(path, []byte(caseYAML), 0o644))
	d, err := readCase(path)
	require.NoError(t, err)
	gen := newGenerator(&config.Config{
		LLM:     config.LLMConfig{Provider: "static", MaxAttempts: 1},
		Finance: config.FinanceConfig{DiscountRate: 0.10, OpexGrowthRate: 0.10, DefaultHorizonYears: 5, MaxHorizonYears: 10},
	})
	_, a, err := gen.Analyze(d)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeProjection(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "Customers")
	assert.Contains(t, out, "$12,000")
	assert.Contains(t, out, "NPV @ 10%")
	assert.Contains(t, out, "Pessimistic NPV")
	assert.Contains(t, out, "Payback: 0.1 years")
}

func TestStaticProviderIsDescribed(t *testing.T) {
	p, m := llm.Describe(llm.StaticCaller{})
	assert.Equal(t, "static", p)
	assert.Empty(t, m)
}
