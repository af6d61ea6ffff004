// Package api serves the form copilot over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/form"
	"github.com/a3tai/form-copilot/internal/formmap"
	"github.com/a3tai/form-copilot/internal/pdf"
)

// Analyzer maps the fields of an uploaded document
type Analyzer interface {
	Analyze(ctx context.Context, document []byte) (*formmap.Result, error)
}

// Assistant answers field questions and runs the interview
type Assistant interface {
	Answer(ctx context.Context, query, label, explanation string) (string, error)
	StartInterview(ctx context.Context, fields []form.Field) (string, error)
	ProcessAnswer(ctx context.Context, response string, fields []form.Field, previousContext string) (*form.Extraction, error)
}

type Handler struct {
	analyzer  Analyzer
	assistant Assistant
	validator *pdf.Validator

	exampleFile string
	maxFileSize int64
	corsOrigins []string

	logger *zap.Logger
}

type Option func(*Handler)

// WithExampleFile sets the document served by /load-example
func WithExampleFile(path string) Option {
	return func(h *Handler) {
		h.exampleFile = path
	}
}

func WithMaxFileSize(size int64) Option {
	return func(h *Handler) {
		if size > 0 {
			h.maxFileSize = size
		}
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) {
		h.corsOrigins = origins
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func New(analyzer Analyzer, assistant Assistant, options ...Option) *Handler {
	h := &Handler{
		analyzer:    analyzer,
		assistant:   assistant,
		maxFileSize: 20 * 1024 * 1024,
		corsOrigins: []string{"*"},
		logger:      zap.NewNop(),
	}

	for _, option := range options {
		option(h)
	}

	h.validator = pdf.NewValidator(h.maxFileSize)

	return h
}

// Routes returns the router with all endpoints and middleware attached
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h.Attach(r)

	return r
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Post("/analyze-doc", h.handleAnalyzeDoc)
	r.Post("/load-example", h.handleLoadExample)

	r.Post("/ask-assistant", h.handleAskAssistant)
	r.Post("/start-interview", h.handleStartInterview)
	r.Post("/process-interview-answer", h.handleProcessInterviewAnswer)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, HealthResponse{Status: "ok"})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	})
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		h.logger.Error("request failed", zap.Int("status", code), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.Int("status", code), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(ErrorResponse{Detail: err.Error()})
}

// statusCode maps an error kind to its HTTP status. Unreadable documents
// are reported as 500.
func statusCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidRequest:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
