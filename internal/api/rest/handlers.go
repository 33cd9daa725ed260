package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/prediction"
	"github.com/fortuna/predictor/internal/saves"
)

// HealthCheck checks one backing service
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	registry *prediction.Registry
	logger   *zap.Logger
	checks   []HealthCheck
}

// NewHandler creates a new handler
func NewHandler(registry *prediction.Registry, logger *zap.Logger, checks ...HealthCheck) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
		checks:   checks,
	}
}

type createSessionRequest struct {
	SessionID string `json:"session_id"`
	League    string `json:"league"`
}

type leagueRequest struct {
	League string `json:"league"`
}

type roundRequest struct {
	Round int `json:"round"`
}

type scoreRequest struct {
	Side  league.Side `json:"side"`
	Value string      `json:"value"`
}

type saveRequest struct {
	Name string `json:"name"`
}

// viewResponse is a session view plus any non-fatal persistence warning
type viewResponse struct {
	prediction.View
	Warning string `json:"warning,omitempty"`
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	backends := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			backends[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		backends[c.Name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":   state,
		"service":  "predictor",
		"sessions": h.registry.Len(),
		"backends": backends,
	})
}

// GetLeagues returns the league catalog
func (h *Handler) GetLeagues(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Catalog().All())
}

// CreateSession starts a new session or resumes a live one
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	sess, err := h.registry.Create(r.Context(), req.SessionID, req.League)
	if err != nil && !errors.Is(err, saves.ErrPersist) {
		respondDomainError(w, "Failed to create session", err)
		return
	}
	respondView(w, http.StatusCreated, sess, err)
}

// GetSession returns the session view
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondView(w, http.StatusOK, sess, nil)
}

// CloseSession drops a session from memory
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionID"]
	if !h.registry.Close(id) {
		respondError(w, http.StatusNotFound, "Session not found", prediction.ErrSessionNotFound)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Session closed",
		"session_id": id,
	})
}

// SelectLeague switches the session's league
func (h *Handler) SelectLeague(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req leagueRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := sess.SelectLeague(r.Context(), req.League)
	h.respondMutation(w, sess, "Failed to select league", err)
}

// RefreshSession re-fetches the session's league data
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Refresh(r.Context())
	respondView(w, http.StatusOK, sess, nil)
}

// SetRound selects a round directly
func (h *Handler) SetRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req roundRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := sess.SetRound(r.Context(), req.Round)
	h.respondMutation(w, sess, "Failed to set round", err)
}

// NextRound advances one round
func (h *Handler) NextRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondMutation(w, sess, "Failed to change round", sess.NextRound(r.Context()))
}

// PrevRound goes back one round
func (h *Handler) PrevRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondMutation(w, sess, "Failed to change round", sess.PrevRound(r.Context()))
}

// EnterScore records one side of a predicted score
func (h *Handler) EnterScore(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	matchNumber, err := strconv.Atoi(mux.Vars(r)["matchNumber"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid match number", err)
		return
	}
	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := sess.EnterScore(matchNumber, req.Side, req.Value); err != nil {
		respondDomainError(w, "Failed to enter score", err)
		return
	}
	respondView(w, http.StatusOK, sess, nil)
}

// GetTable returns the standings
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Table())
}

// ListSaves returns the session's slots, newest first
func (h *Handler) ListSaves(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Saves())
}

// SaveGame stores the current state in a named slot
func (h *Handler) SaveGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	slot, err := sess.Save(r.Context(), req.Name)
	if err != nil && !errors.Is(err, saves.ErrPersist) {
		respondDomainError(w, "Failed to save", err)
		return
	}

	resp := map[string]interface{}{"slot": slot}
	if err != nil {
		resp["warning"] = err.Error()
	}
	respondJSON(w, http.StatusCreated, resp)
}

// LoadGame restores a named slot. A missing slot leaves the session as is.
func (h *Handler) LoadGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	loaded, err := sess.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondDomainError(w, "Failed to load save", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"loaded": loaded,
		"view":   sess.View(),
	})
}

// DeleteSave removes a named slot
func (h *Handler) DeleteSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	deleted, err := sess.DeleteSave(r.Context(), mux.Vars(r)["name"])
	resp := map[string]interface{}{"deleted": deleted}
	if err != nil {
		resp["warning"] = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// session resolves the {sessionID} path variable, writing a 404 if unknown
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*prediction.Session, bool) {
	sess, err := h.registry.Get(mux.Vars(r)["sessionID"])
	if err != nil {
		respondDomainError(w, "Session not found", err)
		return nil, false
	}
	return sess, true
}

// respondMutation writes the session view after a state change. Persistence
// failures become a warning on a successful response.
func (h *Handler) respondMutation(w http.ResponseWriter, sess *prediction.Session, message string, err error) {
	if err != nil && !errors.Is(err, saves.ErrPersist) {
		respondDomainError(w, message, err)
		return
	}
	if err != nil {
		h.logger.Warn("save slots not persisted", zap.String("session", sess.ID()), zap.Error(err))
	}
	respondView(w, http.StatusOK, sess, err)
}

func respondView(w http.ResponseWriter, status int, sess *prediction.Session, warning error) {
	resp := viewResponse{View: sess.View()}
	if warning != nil {
		resp.Warning = warning.Error()
	}
	respondJSON(w, status, resp)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, prediction.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, prediction.ErrInvalidSessionID),
		errors.Is(err, league.ErrUnknownLeague),
		errors.Is(err, prediction.ErrRoundOutOfRange),
		errors.Is(err, prediction.ErrInvalidSide),
		errors.Is(err, prediction.ErrUnknownMatch),
		errors.Is(err, saves.ErrEmptyName),
		errors.Is(err, saves.ErrNameTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondDomainError(w http.ResponseWriter, message string, err error) {
	respondError(w, statusFor(err), message, err)
}

// decodeBody parses a required JSON body
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// decodeOptional parses a JSON body that may be empty
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
