package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joelkehle/bizcase/internal/finance"
	"github.com/joelkehle/bizcase/internal/report"
)

var projectInput string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Print projections and metrics for a business case without calling an LLM",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readCase(projectInput)
		if err != nil {
			return err
		}
		_, analysis, err := newGenerator(cfg).Analyze(in)
		if err != nil {
			return err
		}
		return writeProjection(cmd.OutOrStdout(), analysis)
	},
}

func writeProjection(out io.Writer, a finance.Analysis) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Year\tCustomers\tRevenue\tOPEX\tCAPEX\tProfit\tCumulative\t")
	for _, p := range a.Projections {
		fmt.Fprintf(w, "%d\t%s\t$%s\t$%s\t$%s\t$%s\t$%s\t\n", p.Year,
			report.FormatCount(p.Customers), report.FormatUSD(p.Revenue), report.FormatUSD(p.Opex),
			report.FormatUSD(p.Capex), report.FormatUSD(p.Profit), report.FormatUSD(p.CumulativeCashFlow))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	m := a.Metrics
	fmt.Fprintln(out)
	fmt.Fprintf(out, "NPV @ %.0f%%: $%s\n", m.DiscountRate*100, report.FormatUSD(m.NPV))
	fmt.Fprintf(out, "IRR: %s\n", report.FormatPercent(m.IRR))
	fmt.Fprintf(out, "ROI: %.1f%%\n", m.ROI)
	fmt.Fprintf(out, "Payback: %s\n", report.FormatYears(m.PaybackYears))
	fmt.Fprintf(out, "TCO: $%s\n", report.FormatUSD(m.TCO))
	for _, name := range report.ScenarioOrder {
		if s, ok := a.Scenarios[name]; ok {
			fmt.Fprintf(out, "%s NPV: $%s\n", report.ScenarioLabel(name), report.FormatUSD(s.NPV))
		}
	}
	return nil
}

func init() {
	projectCmd.Flags().StringVar(&projectInput, "input", "", "business case file (.json, .yaml)")
	_ = projectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(projectCmd)
}
