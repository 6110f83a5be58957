package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/feature"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/notify"
	"github.com/Zeenjinn/sign-language-translation/internal/overlay"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
)

const (
	// DefaultMaxFPS limits landmark frames per websocket connection.
	DefaultMaxFPS = 30
	frameBurst    = 5
	writeTimeout  = 2 * time.Second
)

// Message types exchanged on /api/landmarks.
const (
	MessageFrame   = "frame"
	MessageReset   = "reset"
	MessageResult  = "result"
	MessageSession = "session"
	MessageOverlay = "overlay"
	MessageError   = "error"
)

// errCapturing is sent for frame and reset messages while camera capture feeds
// the recognizer.
const errCapturing = "camera capture is running"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

var validate = validator.New()

// client serializes writes to one websocket connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub broadcasts recognition events to every connected websocket client.
// It implements notify.Sink.
type Hub struct {
	clients map[*client]struct{}
	mu      sync.RWMutex
	logger  logrus.FieldLogger
}

// NewHub creates an empty Hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = log.Discard()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
	}
}

type resultMessage struct {
	Type   string       `json:"type"`
	Result notify.Event `json:"result"`
}

// Publish sends ev to every client. Clients that cannot keep up are dropped.
func (h *Hub) Publish(ctx context.Context, ev notify.Event) error {
	data, err := json.Marshal(resultMessage{Type: MessageResult, Result: ev})
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.write(data); err != nil {
			h.logger.WithField("error", err.Error()).Debug("dropping websocket client")
			h.remove(c)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

type landmarksPayload struct {
	Pose      []detector.Point3D `json:"pose" validate:"max=33"`
	LeftHand  []detector.Point3D `json:"leftHand" validate:"max=21"`
	RightHand []detector.Point3D `json:"rightHand" validate:"max=21"`
}

type incomingMessage struct {
	Type      string            `json:"type" validate:"required,oneof=frame reset"`
	Landmarks *landmarksPayload `json:"landmarks" validate:"required_if=Type frame"`
}

type sessionMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

type overlayMessage struct {
	Type  string        `json:"type"`
	Scene overlay.Scene `json:"scene"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// LandmarksHandler accepts landmark frames from websocket clients, feeds them
// to the recognizer and pushes results back through the Hub.
// Frames are refused while capturing reports true, so one window never mixes
// camera and websocket frames.
type LandmarksHandler struct {
	recognizer Recognizer
	hub        *Hub
	capturing  func() bool
	maxFPS     float64
	logger     logrus.FieldLogger
}

// NewLandmarksHandler creates a LandmarksHandler. A nil capturing func means
// the recognizer has no other feed. A non-positive maxFPS uses DefaultMaxFPS.
func NewLandmarksHandler(r Recognizer, hub *Hub, capturing func() bool, maxFPS float64, logger logrus.FieldLogger) *LandmarksHandler {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	if logger == nil {
		logger = log.Discard()
	}
	if capturing == nil {
		capturing = func() bool { return false }
	}
	return &LandmarksHandler{
		recognizer: r,
		hub:        hub,
		capturing:  capturing,
		maxFPS:     maxFPS,
		logger:     logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithField("error", err.Error()).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.hub.add(c)
	defer h.hub.remove(c)

	wantOverlay := r.URL.Query().Get("overlay") == "1"
	limiter := rate.NewLimiter(rate.Limit(h.maxFPS), frameBurst)
	ctx := r.Context()

	logger := h.logger.WithField("remote", r.RemoteAddr)
	logger.Debug("websocket client connected")
	defer logger.Debug("websocket client disconnected")

	if err := c.send(sessionMessage{Type: MessageSession, Session: h.recognizer.Session().String()}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg incomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(errorMessage{Type: MessageError, Error: "invalid message"})
			continue
		}
		if err := validate.Struct(msg); err != nil {
			c.send(errorMessage{Type: MessageError, Error: err.Error()})
			continue
		}
		if h.capturing() {
			c.send(errorMessage{Type: MessageError, Error: errCapturing})
			continue
		}

		switch msg.Type {
		case MessageFrame:
			if !limiter.Allow() {
				c.send(errorMessage{Type: MessageError, Error: "frame rate limit exceeded"})
				continue
			}

			set := detector.LandmarkSet{
				Pose:      msg.Landmarks.Pose,
				LeftHand:  msg.Landmarks.LeftHand,
				RightHand: msg.Landmarks.RightHand,
			}
			if err := h.recognizer.Ingest(ctx, set); err != nil {
				if errors.Is(err, feature.ErrMalformed) {
					c.send(errorMessage{Type: MessageError, Error: err.Error()})
					continue
				}
				if !errors.Is(err, pipeline.ErrStopped) && ctx.Err() == nil {
					logger.WithField("error", err.Error()).Warn("failed to ingest frame")
				}
				return
			}

			if wantOverlay {
				if err := c.send(overlayMessage{Type: MessageOverlay, Scene: overlay.Project(set)}); err != nil {
					return
				}
			}

		case MessageReset:
			session, err := h.recognizer.Reset(ctx)
			if err != nil {
				return
			}
			if err := c.send(sessionMessage{Type: MessageSession, Session: session.String()}); err != nil {
				return
			}
		}
	}
}
