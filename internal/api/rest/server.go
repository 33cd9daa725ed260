package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/prediction"
)

// Server represents the REST API server
type Server struct {
	server  *http.Server
	handler *Handler
	router  *mux.Router
}

// NewServer creates a new REST API server
func NewServer(port string, registry *prediction.Registry, logger *zap.Logger, checks ...HealthCheck) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("rest")
	handler := NewHandler(registry, logger, checks...)

	router := mux.NewRouter()

	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Preflight requests match here so CORSMiddleware can answer them
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Leagues
	api.HandleFunc("/leagues", handler.GetLeagues).Methods("GET")

	// Sessions
	api.HandleFunc("/sessions", handler.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}", handler.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{sessionID}", handler.CloseSession).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionID}/league", handler.SelectLeague).Methods("PUT")
	api.HandleFunc("/sessions/{sessionID}/refresh", handler.RefreshSession).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}/round", handler.SetRound).Methods("PUT")
	api.HandleFunc("/sessions/{sessionID}/round/next", handler.NextRound).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}/round/prev", handler.PrevRound).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}/scores/{matchNumber}", handler.EnterScore).Methods("PUT")
	api.HandleFunc("/sessions/{sessionID}/table", handler.GetTable).Methods("GET")

	// Save slots
	api.HandleFunc("/sessions/{sessionID}/saves", handler.ListSaves).Methods("GET")
	api.HandleFunc("/sessions/{sessionID}/saves", handler.SaveGame).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}/saves/{name}/load", handler.LoadGame).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}/saves/{name}", handler.DeleteSave).Methods("DELETE")

	return &Server{
		handler: handler,
		router:  router,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
