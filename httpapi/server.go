// CLAUDE:SUMMARY HTTP surface: session creation, snapshot reads and action batches over chi, one serialized batch per document.
// Package httpapi exposes the redaction session service over HTTP.
//
// Routes:
//
//	POST   /documents                      create or replace a session
//	GET    /documents/{documentID}         current snapshot
//	POST   /documents/{documentID}/actions apply an action batch
//	DELETE /documents/{documentID}         drop a session
//	GET    /healthz
//
// Batches against the same document are serialized by a per-document lock;
// the engine itself is single-threaded per session.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/redact/idgen"
	"github.com/hazyhaar/redact/pagetext"
	"github.com/hazyhaar/redact/redact"
	"github.com/hazyhaar/redact/session"
)

// PayloadPDF is the only payload type whose documents yield text and
// geometry. Other payload types hold boxes but reject action batches.
const PayloadPDF = "pdf"

// Config configures a Server.
type Config struct {
	Store *session.Store

	// NewProvider builds the document provider for a session's detected
	// file path. Default: the PDF provider. Tests inject fixed data.
	NewProvider func(detectedPath string) pagetext.Provider

	// ValidateDocument checks an admitted file before a session is
	// created around it. Default: pagetext.ValidatePDF.
	ValidateDocument func(detectedPath string) error

	// NewDocumentID mints ids for sessions created without one.
	// Default: idgen.Default.
	NewDocumentID idgen.Generator

	// MaxBodyBytes caps request bodies. Default 4 MB.
	MaxBodyBytes int64

	// MaxBulkMatches is passed through to the engine. 0 keeps the
	// engine default.
	MaxBulkMatches int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NewProvider == nil {
		c.NewProvider = func(path string) pagetext.Provider {
			return pagetext.NewPDF(path)
		}
	}
	if c.ValidateDocument == nil {
		c.ValidateDocument = pagetext.ValidatePDF
	}
	if c.NewDocumentID == nil {
		c.NewDocumentID = idgen.Default
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 4 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the HTTP front of the session service.
type Server struct {
	cfg Config
}

// NewServer creates a Server. Config.Store is required.
func NewServer(cfg Config) *Server {
	cfg.defaults()
	return &Server{cfg: cfg}
}

// Router assembles the chi router with the service middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/documents", s.handleCreate)
	r.Get("/documents/{documentID}", s.handleGet)
	r.Post("/documents/{documentID}/actions", s.handleActions)
	r.Delete("/documents/{documentID}", s.handleDelete)

	return r
}

// validateDocument checks the admitted file of a new PDF session.
func (s *Server) validateDocument(path string) error {
	return s.cfg.ValidateDocument(path)
}

// engineFor builds the action engine of one session. Sessions without a
// detected file run with no provider: every text-dependent operation
// degrades to its geometric fallback.
func (s *Server) engineFor(rec *session.Record) *redact.Engine {
	var provider pagetext.Provider
	if rec.DetectedPath != "" {
		provider = s.cfg.NewProvider(rec.DetectedPath)
	}
	return redact.New(redact.Config{
		Provider:       provider,
		MaxBulkMatches: s.cfg.MaxBulkMatches,
		Logger:         s.cfg.Logger,
	})
}

func (s *Server) snapshot(rec *session.Record) redact.Snapshot {
	return s.engineFor(rec).Snapshot(rec.DocumentID, rec.PayloadType, &rec.State, rec.TotalPages)
}

// statusFor maps engine and store errors to HTTP statuses. Malformed
// actions and unknown boxes are the client's fault; missing sessions are
// 404; everything else is internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, redact.ErrInvalidAction),
		errors.Is(err, redact.ErrUnknownBox),
		errors.Is(err, redact.ErrUnsupportedPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func normalizePayloadType(pt string) string {
	return strings.ToLower(strings.TrimSpace(pt))
}
