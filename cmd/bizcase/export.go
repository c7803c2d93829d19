package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/export"
)

var (
	exportReport string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a saved report JSON as pdf, docx, xlsx or html",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		rep, err := readReport(exportReport)
		if err != nil {
			return err
		}
		out, err := export.NewExporter(export.NewPDFRenderer(cfg.Export)).Export(cmd.Context(), format, rep)
		if err != nil {
			return eris.Wrapf(err, "export %s", format)
		}
		path := exportOut
		if path == "" {
			path = export.Filename(rep, format)
		}
		if err := writeOutput(path, out); err != nil {
			return eris.Wrap(err, "write export")
		}
		zap.L().Info("export written", zap.String("path", path), zap.Int("bytes", len(out)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportReport, "report", "", "report JSON produced by generate")
	exportCmd.Flags().StringVar(&exportFormat, "format", "pdf", "pdf, docx, xlsx, html or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <project>-business-case.<ext>, - for stdout)")
	_ = exportCmd.MarkFlagRequired("report")
	rootCmd.AddCommand(exportCmd)
}
