package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/prediction"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server pushes session views to websocket clients
type Server struct {
	server   *http.Server
	router   *mux.Router
	hub      *Hub
	registry *prediction.Registry
	logger   *zap.Logger
}

// NewServer creates a websocket server on port and subscribes its hub to
// registry
func NewServer(port string, registry *prediction.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := NewHub(logger)
	registry.Subscribe(hub)

	s := &Server{
		hub:      hub,
		registry: registry,
		logger:   logger.Named("websocket"),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/ws/sessions/{sessionID}", s.handleSession)
	s.router.HandleFunc("/ws/health", s.handleHealth).Methods("GET")

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.router,
	}
	return s
}

// Hub returns the server's hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the websocket routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the hub and listens until Shutdown. After Shutdown it returns
// http.ErrServerClosed, even if Shutdown came first.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	s.logger.Info("websocket server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// handleSession upgrades the connection and streams the session's views
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	sess, err := s.registry.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, prediction.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	initial, err := json.Marshal(sess.View())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		room: id,
		send: make(chan []byte, 256),
	}
	client.send <- initial

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	s.logger.Debug("client connected", zap.String("session", id))
	go client.writePump()
	go client.readPump()
}

// handleHealth returns websocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
