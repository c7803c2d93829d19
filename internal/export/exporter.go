package export

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

var ErrPDFUnavailable = errors.New("export: pdf renderer not configured")

// Exporter dispatches a report to the renderer for the requested format.
type Exporter struct {
	pdf *PDFRenderer
}

// NewExporter returns an Exporter. A nil pdf renderer makes PDF exports fail
// with ErrPDFUnavailable while the other formats keep working.
func NewExporter(pdf *PDFRenderer) *Exporter {
	return &Exporter{pdf: pdf}
}

func (e *Exporter) Export(ctx context.Context, f Format, r businesscase.ReportData) ([]byte, error) {
	ctx, span := otel.Tracer("github.com/joelkehle/bizcase/internal/export").Start(ctx, "export."+string(f))
	defer span.End()
	span.SetAttributes(attribute.String("report.id", r.ID))

	out, err := e.render(ctx, f, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		zap.L().Warn("export failed", zap.String("format", string(f)), zap.String("report_id", r.ID), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("export.bytes", len(out)))
	zap.L().Debug("export rendered", zap.String("format", string(f)), zap.String("report_id", r.ID), zap.Int("bytes", len(out)))
	return out, nil
}

func (e *Exporter) render(ctx context.Context, f Format, r businesscase.ReportData) ([]byte, error) {
	switch f {
	case FormatPDF:
		if e.pdf == nil {
			return nil, ErrPDFUnavailable
		}
		out, err := e.pdf.Render(ctx, r)
		if err != nil {
			return nil, eris.Wrap(err, "pdf render")
		}
		return out, nil
	case FormatDOCX:
		return RenderDOCX(r)
	case FormatXLSX:
		return RenderXLSX(r)
	case FormatHTML:
		return RenderHTML(r)
	case FormatJSON:
		return json.MarshalIndent(r, "", "  ")
	default:
		return nil, eris.Errorf("unsupported export format %q", f)
	}
}
