// Package export renders a report as an HTML preview, PDF, DOCX or XLSX.
package export

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joelkehle/bizcase/internal/businesscase"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

var formats = map[Format]struct {
	contentType string
}{
	FormatPDF:  {"application/pdf"},
	FormatDOCX: {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	FormatXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	FormatHTML: {"text/html; charset=utf-8"},
	FormatJSON: {"application/json"},
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formats[f]; !ok {
		return "", eris.Errorf("unsupported export format %q", s)
	}
	return f, nil
}

func (f Format) ContentType() string { return formats[f].contentType }

func (f Format) Extension() string { return string(f) }

// Filename is the download name for r, e.g. "fleet-telematics-business-case.pdf".
func Filename(r businesscase.ReportData, f Format) string {
	return sanitizeFilename(r.Input.ProjectName) + "-business-case." + f.Extension()
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

func sanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		return "report"
	}
	return s
}
