// Package httpapi serves the business case form, the JSON API and report
// downloads.
package httpapi

import (
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/joelkehle/bizcase/internal/archive"
	"github.com/joelkehle/bizcase/internal/export"
	"github.com/joelkehle/bizcase/internal/report"
	"github.com/joelkehle/bizcase/internal/store"
)

//go:embed web/index.html
var indexHTML []byte

const defaultMaxBodyBytes = 1 << 20

type Options struct {
	Generator *report.Generator
	Store     store.Store
	Exporter  *export.Exporter
	// Archiver receives exports requested with ?archive=1. Nil disables archiving.
	Archiver     archive.Archiver
	CORSOrigins  []string
	MaxBodyBytes int64
}

type Server struct {
	generator    *report.Generator
	store        store.Store
	exporter     *export.Exporter
	archiver     archive.Archiver
	maxBodyBytes int64
}

func NewServer(opts Options) http.Handler {
	s := &Server{
		generator:    opts.Generator,
		store:        opts.Store,
		exporter:     opts.Exporter,
		archiver:     opts.Archiver,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if s.archiver == nil {
		s.archiver = archive.NopArchiver{}
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = defaultMaxBodyBytes
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Archive-Location"},
		MaxAge:         300,
	}))
	r.Use(s.limitBody)

	r.Get("/", s.handleIndex)
	r.Get("/reports/{id}", s.handlePreview)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/generate-report", s.handleGenerateReport)
		r.Post("/projections", s.handleProjections)
		r.Post("/export/{format}", s.handleExport)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Delete("/reports/{id}", s.handleDeleteReport)
		r.Get("/reports/{id}/export/{format}", s.handleExportStored)
	})
	return r
}

// requestLogger logs one line per request through zap and wraps the request
// in a server span.
func requestLogger(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/joelkehle/bizcase/internal/httpapi")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("remote_ip", r.RemoteAddr),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		zap.L().Info("http request", fields...)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	if err, ok := details.(error); ok {
		details = err.Error()
	}
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

// errBadContentType marks a request body that is not JSON.
var errBadContentType = errors.New("content type must be application/json")

// decodeJSON reads the request body into dst. An empty Content-Type is
// accepted so curl and simple clients work.
func decodeJSON(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return errBadContentType
		}
	}
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// writeDecodeError maps body decoding failures to 400, 413 or 415.
func writeDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errBadContentType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported content type", err)
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "limit is "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "invalid JSON", "request body is empty")
	default:
		writeError(w, http.StatusBadRequest, "invalid JSON", err)
	}
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}
