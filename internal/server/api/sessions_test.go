package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()

	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		if err := s.Sessions().Create(&store.Session{ID: id, Source: store.SourceCamera, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}
	for _, label := range []string{"HELLO", "THANKS", "HELLO"} {
		if err := s.Predictions().Create(&store.Prediction{SessionID: "new", Label: label, Confidence: 0.9}); err != nil {
			t.Fatalf("failed to create prediction: %v", err)
		}
	}
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(response.Sessions))
	}
	if response.Sessions[0].ID != "new" || response.Sessions[0].Predictions != 3 {
		t.Errorf("first session = %+v", response.Sessions[0])
	}
}

func TestSessionHandler_ListLimit(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	tests := []struct {
		query    string
		wantCode int
		wantLen  int
	}{
		{"?limit=1", http.StatusOK, 1},
		{"?limit=0", http.StatusOK, 2},
		{"?limit=abc", http.StatusBadRequest, 0},
		{"?limit=-3", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var response listSessionsResponse
			json.NewDecoder(rec.Body).Decode(&response)
			if len(response.Sessions) != tt.wantLen {
				t.Errorf("got %d sessions, want %d", len(response.Sessions), tt.wantLen)
			}
		})
	}
}

func TestSessionHandler_ListEmpty(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	if body := rec.Body.String(); body != "{\"sessions\":[]}\n" {
		t.Errorf("body = %q, want an empty array", body)
	}
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/new", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response sessionDetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Session.ID != "new" {
		t.Errorf("session id = %q", response.Session.ID)
	}
	if len(response.Predictions) != 3 {
		t.Errorf("got %d predictions, want 3", len(response.Predictions))
	}
	if response.Summary.FinalWord != "HELLO" || response.Summary.Total != 3 {
		t.Errorf("summary = %+v", response.Summary)
	}
}

func TestSessionHandler_GetNotFound(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	var response errorResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.Error != "Session not found" {
		t.Errorf("error = %q", response.Error)
	}
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/sessions", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}
