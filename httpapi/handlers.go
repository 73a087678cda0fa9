package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/redact/redact"
	"github.com/hazyhaar/redact/session"
)

// createRequest is the body of POST /documents. Detected boxes are seeded
// at creation; ids missing from the seed are assigned before the first
// snapshot is served.
type createRequest struct {
	DocumentID   string            `json:"document_id,omitempty"`
	PayloadType  string            `json:"payload_type,omitempty"`
	DetectedPath string            `json:"detected_path,omitempty"`
	TotalPages   int               `json:"total_pages,omitempty"`
	Auto         []*redact.Box     `json:"redaction_boxes,omitempty"`
	Manual       []*redact.Box     `json:"manual_boxes,omitempty"`
	Keep         []*redact.KeepBox `json:"keep_boxes,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec := &session.Record{
		DocumentID:   req.DocumentID,
		PayloadType:  normalizePayloadType(req.PayloadType),
		DetectedPath: req.DetectedPath,
		TotalPages:   req.TotalPages,
		State: redact.State{Store: redact.Store{
			Auto:   req.Auto,
			Manual: req.Manual,
			Keep:   req.Keep,
		}},
	}
	if rec.DocumentID == "" {
		rec.DocumentID = s.cfg.NewDocumentID()
	}
	if rec.PayloadType == "" {
		rec.PayloadType = PayloadPDF
	}

	if rec.DetectedPath != "" && rec.PayloadType == PayloadPDF {
		if err := s.validateDocument(rec.DetectedPath); err != nil {
			s.cfg.Logger.Warn("document rejected", "document_id", rec.DocumentID, "error", err)
			jsonErr(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
			return
		}
	}

	engine := s.engineFor(rec)
	engine.EnsureIDs(&rec.State)

	unlock := s.cfg.Store.Lock(rec.DocumentID)
	defer unlock()

	if err := s.cfg.Store.Save(r.Context(), rec); err != nil {
		s.cfg.Logger.Error("session save failed", "document_id", rec.DocumentID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.cfg.Logger.Info("session created",
		"document_id", rec.DocumentID,
		"payload_type", rec.PayloadType,
		"auto_boxes", len(rec.State.Auto))

	writeJSON(w, http.StatusCreated, engine.Snapshot(rec.DocumentID, rec.PayloadType, &rec.State, rec.TotalPages))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	rec, err := s.cfg.Store.Get(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			jsonErr(w, "unknown document", http.StatusNotFound)
			return
		}
		s.cfg.Logger.Error("session load failed", "document_id", documentID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(rec))
}

// actionsRequest is the body of POST /documents/{documentID}/actions.
type actionsRequest struct {
	Actions []redact.Action `json:"actions"`
}

// actionsError is the error body of a failed batch. The snapshot reflects
// the state actually persisted: effects of actions before the failing one
// remain applied.
type actionsError struct {
	Error    string          `json:"error"`
	Snapshot redact.Snapshot `json:"snapshot"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	documentID := chi.URLParam(r, "documentID")

	var req actionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid request body", http.StatusBadRequest)
		return
	}

	unlock := s.cfg.Store.Lock(documentID)
	defer unlock()

	rec, err := s.cfg.Store.Get(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			jsonErr(w, "unknown document", http.StatusNotFound)
			return
		}
		s.cfg.Logger.Error("session load failed", "document_id", documentID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}

	if rec.PayloadType != PayloadPDF {
		jsonErr(w, fmt.Sprintf("%v: %s", redact.ErrUnsupportedPayload, rec.PayloadType), http.StatusBadRequest)
		return
	}

	engine := s.engineFor(rec)
	batchErr := engine.ApplyBatch(&rec.State, req.Actions)

	// Persist regardless: a failed batch keeps the effects of the actions
	// that ran before the failure.
	if err := s.cfg.Store.Save(r.Context(), rec); err != nil {
		s.cfg.Logger.Error("session save failed", "document_id", documentID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}

	if batchErr != nil {
		s.cfg.Logger.Warn("action batch failed",
			"document_id", documentID,
			"actions", len(req.Actions),
			"error", batchErr)
		writeJSON(w, statusFor(batchErr), actionsError{
			Error:    batchErr.Error(),
			Snapshot: engine.Snapshot(rec.DocumentID, rec.PayloadType, &rec.State, rec.TotalPages),
		})
		return
	}

	s.cfg.Logger.Info("action batch applied", "document_id", documentID, "actions", len(req.Actions))
	writeJSON(w, http.StatusOK, engine.Snapshot(rec.DocumentID, rec.PayloadType, &rec.State, rec.TotalPages))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	unlock := s.cfg.Store.Lock(documentID)
	defer unlock()
	if err := s.cfg.Store.Delete(r.Context(), documentID); err != nil {
		s.cfg.Logger.Error("session delete failed", "document_id", documentID, "error", err)
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
