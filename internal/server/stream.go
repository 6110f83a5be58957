package server

import (
	"net/http"

	"github.com/Zeenjinn/sign-language-translation/internal/server/api"
)

// StreamHandler serves the annotated MJPEG feed while capture is running.
type StreamHandler struct {
	stream  http.Handler
	running func() bool
}

// NewStreamHandler wraps stream, normally a *mjpeg.Stream fed by the capture
// loop. A nil running func means the stream is always available.
func NewStreamHandler(stream http.Handler, running func() bool) *StreamHandler {
	return &StreamHandler{stream: stream, running: running}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.running != nil && !h.running() {
		api.WriteError(w, http.StatusServiceUnavailable, "Capture is not running")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	h.stream.ServeHTTP(w, r)
}
