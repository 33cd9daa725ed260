package prediction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/saves"
)

// ErrInvalidSessionID is returned when a client supplies a malformed id
var ErrInvalidSessionID = errors.New("invalid session id")

// Registry holds the live sessions of the service
type Registry struct {
	catalog       *league.Catalog
	loader        DataLoader
	backend       saves.Backend
	logger        *zap.Logger
	defaultLeague string
	storeOpts     []saves.Option
	now           func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners []Listener
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithDefaultLeague sets the league new sessions start in
func WithDefaultLeague(id string) RegistryOption {
	return func(r *Registry) { r.defaultLeague = id }
}

// WithStoreOptions passes options to every session's save store
func WithStoreOptions(opts ...saves.Option) RegistryOption {
	return func(r *Registry) { r.storeOpts = append(r.storeOpts, opts...) }
}

// WithClock overrides the time source used for idle tracking
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(catalog *league.Catalog, loader DataLoader, backend saves.Backend, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		catalog:       catalog,
		loader:        loader,
		backend:       backend,
		logger:        logger.Named("sessions"),
		defaultLeague: "championship",
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds a listener for events from every session
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Create starts a session, or resumes it if id is already live. An empty id
// generates a new one; an empty leagueID uses the default league. The error
// may wrap saves.ErrPersist alongside a usable session when stored slots
// could not be read.
func (r *Registry) Create(ctx context.Context, id, leagueID string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	if s, ok := r.lookup(id); ok {
		s.Touch()
		return s, nil
	}

	if leagueID == "" {
		leagueID = r.defaultLeague
	}
	lg, err := r.catalog.Get(leagueID)
	if err != nil {
		return nil, err
	}

	store, openErr := saves.Open(ctx, r.backend, id, r.storeOpts...)
	s := newSession(id, lg, r.catalog, r.loader, store, r.logger, r.now)
	s.notify = r.dispatch
	if openErr != nil {
		s.recordPersist(openErr)
	}

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("session created", zap.String("session", id), zap.String("league", lg.ID))
	s.Refresh(ctx)
	return s, openErr
}

// Get returns a live session
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.Touch()
	return s, nil
}

// Close drops a session from memory. Its save slots stay in the backend.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.logger.Info("session closed", zap.String("session", id))
	return true
}

// EvictIdle closes sessions unused for longer than ttl and returns their ids
func (r *Registry) EvictIdle(ttl time.Duration) []string {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted idle sessions", zap.Int("count", len(evicted)), zap.Duration("ttl", ttl))
	}
	return evicted
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns the live sessions in no particular order
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Catalog returns the league catalog sessions are drawn from
func (r *Registry) Catalog() *league.Catalog {
	return r.catalog
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) dispatch(ev Event) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l.SessionChanged(ev)
	}
}
