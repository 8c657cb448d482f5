// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/training-registration/internal/capacity"
	"github.com/Shivanand-hulikatti/training-registration/internal/model"
	"github.com/Shivanand-hulikatti/training-registration/internal/repository"
	"github.com/Shivanand-hulikatti/training-registration/internal/service"
	"github.com/Shivanand-hulikatti/training-registration/internal/token"
)

// SessionHandler holds all HTTP handlers for the session registration API.
type SessionHandler struct {
	svc *service.SessionService
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Routes mounts the API on r.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CancelSession)
			r.Get("/occupancy", h.Occupancy)
			r.Put("/constraints", h.UpdateConstraints)
			r.Put("/fields", h.UpdateFields)
			r.Post("/register", h.Register)
			r.Post("/promote", h.Promote)
			r.Get("/registrations", h.ListRegistrations)
			r.Post("/registrations/{regID}/cancel", h.CancelRegistration)
		})
	})
	r.Post("/cancellations", h.Cancel)
	r.Get("/constraints/describe", h.DescribeConstraints)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "session is busy, retry the request")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this session")
	case errors.Is(err, service.ErrSessionCancelled),
		errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, service.ErrCancellationClosed),
		errors.Is(err, service.ErrNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "cannot cancel: "+err.Error())
	case errors.Is(err, capacity.ErrInvalidConstraintToken),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(sessions))
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// CancelSession handles DELETE /sessions/{id}
// The session is marked cancelled, never deleted.
func (h *SessionHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.CancelSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Occupancy handles GET /sessions/{id}/occupancy
func (h *SessionHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	occ, err := h.svc.Occupancy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

// UpdateConstraints handles PUT /sessions/{id}/constraints
func (h *SessionHandler) UpdateConstraints(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateConstraintsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.UpdateConstraints(r.Context(), chi.URLParam(r, "id"), req.CapacityConstraints)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// UpdateFields handles PUT /sessions/{id}/fields
// Returns the registrations promoted by the change.
func (h *SessionHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateFieldsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	promoted, err := h.svc.UpdateFields(r.Context(), chi.URLParam(r, "id"), req.FieldsAvailable)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(promoted))
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /sessions/{id}/register
// Responds 201 with the registration, confirmed or waitlisted, and its
// cancellation token.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.RegisterResponse{
		Registration:      *reg,
		CancellationToken: reg.CancellationToken,
	})
}

// ListRegistrations handles GET /sessions/{id}/registrations
func (h *SessionHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(regs))
}

// Promote handles POST /sessions/{id}/promote
func (h *SessionHandler) Promote(w http.ResponseWriter, r *http.Request) {
	promoted, err := h.svc.Promote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(promoted))
}

// Cancel handles POST /cancellations
// Self-service cancellation with the token handed out at registration.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Cancel(r.Context(), req.Token, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res.Promoted = orEmpty(res.Promoted)
	writeJSON(w, http.StatusOK, res)
}

// CancelRegistration handles POST /sessions/{id}/registrations/{regID}/cancel
// Trainer cancellation; the deadline does not apply.
func (h *SessionHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.svc.CancelRegistration(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "regID"), req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res.Promoted = orEmpty(res.Promoted)
	writeJSON(w, http.StatusOK, res)
}

// ─── Constraints ──────────────────────────────────────────────────────────────

// DescribeConstraints handles GET /constraints/describe?text=max_18,even
// Validates constraint text and returns its normalized and readable forms.
func (h *SessionHandler) DescribeConstraints(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	spec, err := capacity.Decode(text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	normalized, err := capacity.Encode(spec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"constraints": normalized,
		"description": capacity.Describe(spec),
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
