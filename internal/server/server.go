// Package server provides the HTTP and websocket surface of the sign recognizer.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/inference"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/notify"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
	"github.com/Zeenjinn/sign-language-translation/internal/server/api"
	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Recognizer is the part of the recognition pipeline the server drives.
// *pipeline.Pipeline implements it.
type Recognizer interface {
	Ingest(ctx context.Context, set detector.LandmarkSet) error
	Reset(ctx context.Context) (uuid.UUID, error)
	Result() inference.Result
	Session() uuid.UUID
	Stats() pipeline.Stats
}

// Controller starts and stops camera capture. *app.App implements it.
type Controller interface {
	Start(ctx context.Context) (uuid.UUID, error)
	Stop(ctx context.Context) error
	Reset(ctx context.Context) (uuid.UUID, error)
	Running() bool
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Recognizer Recognizer
	Controller Controller

	// Hub receives recognition events for websocket clients. One is created
	// when nil.
	Hub *Hub

	// Stream serves the annotated MJPEG feed.
	Stream http.Handler

	Logger   logrus.FieldLogger
	WSMaxFPS float64
}

// Server represents the HTTP server for the recognizer.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger logrus.FieldLogger
	hub    *Hub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Discard()
	}
	hub := config.Hub
	if hub == nil {
		hub = NewHub(logger)
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger,
		hub:    hub,
	}
	s.setupRoutes()
	return s
}

// Hub returns the websocket hub result events are broadcast through.
func (s *Server) Hub() *Hub { return s.hub }

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Recognizer != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/result", s.handleResult)
		s.mux.HandleFunc("/api/session/start", s.handleSessionStart)
		s.mux.HandleFunc("/api/session/stop", s.handleSessionStop)
		s.mux.HandleFunc("/api/session/reset", s.handleSessionReset)
		var capturing func() bool
		if s.config.Controller != nil {
			capturing = s.config.Controller.Running
		}
		s.mux.Handle("/api/landmarks", NewLandmarksHandler(s.config.Recognizer, s.hub, capturing, s.config.WSMaxFPS, s.logger))
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Stream != nil {
		var running func() bool
		if s.config.Controller != nil {
			running = s.config.Controller.Running
		}
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Stream, running))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type statusResponse struct {
	Running bool           `json:"running"`
	Session string         `json:"session"`
	Result  notify.Event   `json:"result"`
	Stats   pipeline.Stats `json:"stats"`
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rec := s.config.Recognizer
	session := rec.Session()
	api.WriteJSON(w, http.StatusOK, statusResponse{
		Running: s.config.Controller != nil && s.config.Controller.Running(),
		Session: session.String(),
		Result:  notify.FromResult(session, rec.Result()),
		Stats:   rec.Stats(),
	})
}

// handleResult handles GET /api/result.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rec := s.config.Recognizer
	api.WriteJSON(w, http.StatusOK, notify.FromResult(rec.Session(), rec.Result()))
}

type sessionResponse struct {
	Session string `json:"session"`
	Running bool   `json:"running"`
}

// handleSessionStart handles POST /api/session/start.
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.config.Controller == nil {
		api.WriteError(w, http.StatusServiceUnavailable, "Capture is not available")
		return
	}

	session, err := s.config.Controller.Start(r.Context())
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("failed to start capture")
		api.WriteError(w, http.StatusInternalServerError, "Failed to start capture")
		return
	}

	api.WriteJSON(w, http.StatusOK, sessionResponse{Session: session.String(), Running: true})
}

// handleSessionStop handles POST /api/session/stop.
func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.config.Controller == nil {
		api.WriteError(w, http.StatusServiceUnavailable, "Capture is not available")
		return
	}

	if err := s.config.Controller.Stop(r.Context()); err != nil {
		s.logger.WithField("error", err.Error()).Warn("failed to stop capture")
		api.WriteError(w, http.StatusInternalServerError, "Failed to stop capture")
		return
	}

	api.WriteJSON(w, http.StatusOK, sessionResponse{
		Session: s.config.Recognizer.Session().String(),
		Running: false,
	})
}

// handleSessionReset handles POST /api/session/reset. Without a controller
// only the pipeline is reset.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var (
		session uuid.UUID
		err     error
	)
	if s.config.Controller != nil {
		session, err = s.config.Controller.Reset(r.Context())
	} else {
		session, err = s.config.Recognizer.Reset(r.Context())
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		api.WriteError(w, status, "Failed to reset session")
		return
	}

	api.WriteJSON(w, http.StatusOK, sessionResponse{
		Session: session.String(),
		Running: s.config.Controller != nil && s.config.Controller.Running(),
	})
}

// ListenAndServe starts the HTTP server on addr and shuts it down when ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
