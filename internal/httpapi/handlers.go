package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/archive"
	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/export"
	"github.com/joelkehle/bizcase/internal/store"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Prevent stale frontend bundles from breaking the UI after deploys.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	provider, model := s.generator.Provider()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "provider": provider, "model": model})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *businesscase.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "invalid business case", ve.Fields)
		return
	}
	writeError(w, http.StatusBadRequest, "invalid business case", err)
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var in businesscase.BusinessCaseData
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	res, err := s.generator.Run(r.Context(), in)
	if err != nil {
		if businesscase.IsValidationError(err) {
			writeValidationError(w, err)
			return
		}
		zap.L().Error("generate report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate report", err)
		return
	}
	if err := s.store.Save(r.Context(), res.Report); err != nil {
		zap.L().Error("save report", zap.String("report_id", res.Report.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save report", err)
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	var in businesscase.BusinessCaseData
	if err := decodeJSON(r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	d, analysis, err := s.generator.Analyze(in)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"input":       d,
		"projections": analysis.Projections,
		"metrics":     analysis.Metrics,
		"scenarios":   analysis.Scenarios,
		"sensitivity": analysis.Sensitivity,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown export format", err)
		return
	}
	var rep businesscase.ReportData
	if err := decodeJSON(r, &rep); err != nil {
		writeDecodeError(w, err)
		return
	}
	if rep.Input.ProjectName == "" && len(rep.FinancialProjections) == 0 {
		writeError(w, http.StatusBadRequest, "invalid report", "report has no project name and no projections")
		return
	}
	s.writeExport(w, r, format, rep)
}

func (s *Server) handleExportStored(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown export format", err)
		return
	}
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	s.writeExport(w, r, format, rep)
}

func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, format export.Format, rep businesscase.ReportData) {
	out, err := s.exporter.Export(r.Context(), format, rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed", err)
		return
	}
	filename := export.Filename(rep, format)
	if r.URL.Query().Get("archive") == "1" && archive.Enabled(s.archiver) {
		loc, err := s.archive(r.Context(), rep, filename, format, out)
		if err != nil {
			writeError(w, http.StatusBadGateway, "archive upload failed", err)
			return
		}
		w.Header().Set("X-Archive-Location", loc)
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format != export.FormatHTML {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) archive(ctx context.Context, rep businesscase.ReportData, filename string, format export.Format, body []byte) (string, error) {
	prefix := rep.ID
	if prefix == "" {
		prefix = uuid.NewString()
	}
	return s.archiver.Put(ctx, prefix+"/"+filename, body, format.ContentType())
}

func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (businesscase.ReportData, bool) {
	id := chi.URLParam(r, "id")
	rep, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found", id)
			return rep, false
		}
		zap.L().Error("load report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report", err)
		return rep, false
	}
	return rep, true
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), store.DefaultListLimit)
	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": list})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found", id)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	base := "/api/reports/" + rep.ID + "/export/"
	page, err := export.RenderHTMLWith(rep, export.HTMLOptions{Downloads: []export.Download{
		{Label: "Download PDF", URL: base + string(export.FormatPDF)},
		{Label: "Download Word", URL: base + string(export.FormatDOCX)},
		{Label: "Download Excel", URL: base + string(export.FormatXLSX)},
		{Label: "JSON", URL: base + string(export.FormatJSON)},
	}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render report", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
