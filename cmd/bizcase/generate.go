package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/export"
	"github.com/joelkehle/bizcase/internal/store"
)

var (
	generateInput     string
	generateOut       string
	generateFormat    string
	generateExportOut string
	generateSave      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report from a business case file",
	Example: "  bizcase generate --input case.yaml --out report.json\n" +
		"  bizcase generate --input case.json --format pdf --export-out plan.pdf",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		in, err := readCase(generateInput)
		if err != nil {
			return err
		}

		var format export.Format
		if generateFormat != "" {
			if format, err = export.ParseFormat(generateFormat); err != nil {
				return err
			}
		}

		res, err := newGenerator(cfg).Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "generate report")
		}
		rep := res.Report
		for _, se := range res.Errors {
			zap.L().Warn("section replaced with fallback content", zap.String("section", string(se.Section)), zap.Error(se.Err))
		}

		if generateSave {
			st, err := store.Open(cfg.Store)
			if err != nil {
				return eris.Wrap(err, "open store")
			}
			defer st.Close()
			if err := st.Save(ctx, rep); err != nil {
				return eris.Wrap(err, "save report")
			}
		}

		blob, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		if generateOut != "" || format == "" {
			if err := writeOutput(generateOut, append(blob, '\n')); err != nil {
				return eris.Wrap(err, "write report")
			}
		}

		if format != "" {
			out, err := export.NewExporter(export.NewPDFRenderer(cfg.Export)).Export(ctx, format, rep)
			if err != nil {
				return err
			}
			path := generateExportOut
			if path == "" {
				path = export.Filename(rep, format)
			}
			if err := writeOutput(path, out); err != nil {
				return eris.Wrap(err, "write export")
			}
			zap.L().Info("export written", zap.String("path", path), zap.String("format", string(format)))
		}

		zap.L().Info("report generated",
			zap.String("report_id", rep.ID),
			zap.String("mode", string(rep.Mode)),
			zap.Float64("npv", rep.FinancialMetrics.NPV),
		)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateInput, "input", "", "business case file (.json, .yaml)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "report JSON output path (default stdout)")
	generateCmd.Flags().StringVar(&generateFormat, "format", "", "also export as pdf, docx, xlsx or html")
	generateCmd.Flags().StringVar(&generateExportOut, "export-out", "", "export output path (default <project>-business-case.<ext>)")
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "persist the report to the configured store")
	_ = generateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(generateCmd)
}
