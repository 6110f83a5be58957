package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

// DefaultListLimit caps GET /api/sessions when no limit is given.
const DefaultListLimit = 50

// SessionHandler serves the recognition history.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a SessionHandler over s.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, id)
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type sessionDetailResponse struct {
	Session     *store.Session      `json:"session"`
	Predictions []*store.Prediction `json:"predictions"`
	Summary     *store.Summary      `json:"summary"`
}

// list handles GET /api/sessions?limit=N.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	WriteJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}: the session, its predictions and the
// final word.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Session not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	predictions, err := h.store.Predictions().ListBySession(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}
	if predictions == nil {
		predictions = []*store.Prediction{}
	}

	summary, err := h.store.Predictions().Summary(id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to summarize session")
		return
	}

	WriteJSON(w, http.StatusOK, sessionDetailResponse{
		Session:     session,
		Predictions: predictions,
		Summary:     summary,
	})
}
