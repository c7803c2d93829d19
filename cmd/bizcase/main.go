package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/config"
	"github.com/joelkehle/bizcase/internal/finance"
	"github.com/joelkehle/bizcase/internal/llm"
	"github.com/joelkehle/bizcase/internal/report"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bizcase",
	Short: "Business case generator",
	Long:  "Turns project, cost and customer figures into a business case with financial projections, AI-written narrative and PDF/DOCX/XLSX exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newGenerator wires the configured LLM provider into a report generator.
// A provider that cannot be built leaves the generator on fallback content.
func newGenerator(c *config.Config) *report.Generator {
	caller, err := llm.NewCaller(c.LLM)
	if err != nil {
		zap.L().Warn("llm provider unavailable, narrative will use fallback content",
			zap.String("provider", c.LLM.Provider), zap.Error(err))
		caller = llm.StaticCaller{}
	}
	exec := llm.NewExecutor(caller, c.LLM.MaxAttempts, time.Duration(c.LLM.TimeoutSecs)*time.Second)
	assumptions := finance.Assumptions{
		DiscountRate:   c.Finance.DiscountRate,
		OpexGrowthRate: c.Finance.OpexGrowthRate,
	}
	return report.NewGenerator(exec, assumptions, c.Finance.DefaultHorizonYears, c.Finance.MaxHorizonYears)
}

// readCase loads a business case from JSON or, by extension, YAML.
func readCase(path string) (businesscase.BusinessCaseData, error) {
	var d businesscase.BusinessCaseData
	blob, err := os.ReadFile(path)
	if err != nil {
		return d, eris.Wrap(err, "read input")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(blob, &d)
	default:
		err = json.Unmarshal(blob, &d)
	}
	if err != nil {
		return d, eris.Wrapf(err, "decode %s", path)
	}
	return d, nil
}

func readReport(path string) (businesscase.ReportData, error) {
	var r businesscase.ReportData
	blob, err := os.ReadFile(path)
	if err != nil {
		return r, eris.Wrap(err, "read report")
	}
	if err := json.Unmarshal(blob, &r); err != nil {
		return r, eris.Wrapf(err, "decode %s", path)
	}
	return r, nil
}

// writeOutput writes b to path, or to stdout when path is empty or "-".
func writeOutput(path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
	}
	return os.WriteFile(path, b, 0o644)
}
