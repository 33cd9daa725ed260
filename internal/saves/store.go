package saves

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// AutosavePrefix marks system-generated slots subject to retention
	AutosavePrefix = "AutoSave_"

	// DefaultAutosaveKeep is how many autosaves survive pruning
	DefaultAutosaveKeep = 5

	// MaxNameLength bounds slot names to what every backend can store
	MaxNameLength = 255
)

var (
	// ErrPersist wraps any backend failure. The in-memory replica is kept.
	ErrPersist = errors.New("save slots not persisted")

	// ErrEmptyName is returned when saving without a slot name
	ErrEmptyName = errors.New("save name is empty")

	// ErrNameTooLong is returned when a slot name exceeds MaxNameLength
	ErrNameTooLong = errors.New("save name too long")
)

// Store manages the save slots of one namespace. It keeps a working replica
// in memory; the backend holds the canonical copy.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	namespace string
	slots     map[string]Slot
	keep      int
	now       func() time.Time
	seq       int

	// loaded is false until the backend mapping has been read. Until then
	// nothing is written back, since a write would replace slots never seen.
	loaded  bool
	removed map[string]struct{}
}

// Option configures a Store
type Option func(*Store)

// WithAutosaveKeep overrides how many autosaves are retained
func WithAutosaveKeep(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.keep = n
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open reads the namespace's mapping from the backend. When the read fails
// the returned store is still usable (empty) and the error wraps ErrPersist.
// Writes then stay in memory until a later read of the backend succeeds.
func Open(ctx context.Context, backend Backend, namespace string, opts ...Option) (*Store, error) {
	s := &Store{
		backend:   backend,
		namespace: namespace,
		slots:     map[string]Slot{},
		keep:      DefaultAutosaveKeep,
		now:       time.Now,
		removed:   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}

	slots, err := backend.LoadAll(ctx, namespace)
	if err != nil {
		return s, fmt.Errorf("%w: loading %s: %w", ErrPersist, namespace, err)
	}
	if slots != nil {
		s.slots = slots
	}
	s.loaded = true
	return s, nil
}

// Namespace returns the backend namespace of the store
func (s *Store) Namespace() string {
	return s.namespace
}

// Save writes snap under name, overwriting any slot with the same name, then
// prunes autosaves and persists the full mapping.
func (s *Store) Save(ctx context.Context, name string, snap Snapshot) (Slot, error) {
	name = normalizeName(name)
	if name == "" {
		return Slot{}, ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Slot{}, fmt.Errorf("%w: %d characters, limit %d", ErrNameTooLong, utf8.RuneCountInString(name), MaxNameLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot := Slot{
		Name:      name,
		Snapshot:  snap.Clone(),
		Timestamp: s.now().UTC(),
	}
	s.slots[name] = slot
	s.pruneAutosaves()

	if err := s.persist(ctx); err != nil {
		return slot.Clone(), err
	}
	return slot.Clone(), nil
}

// Get returns a copy of the named slot
func (s *Store) Get(name string) (Slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[normalizeName(name)]
	if !ok {
		return Slot{}, false
	}
	return slot.Clone(), true
}

// Delete removes the named slot and persists immediately. Deleting an
// absent slot is a no-op.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	name = normalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		// a failure here is retried and reported by persist
		_ = s.merge(ctx)
	}
	if _, ok := s.slots[name]; !ok {
		return false, nil
	}
	delete(s.slots, name)
	if !s.loaded {
		s.removed[name] = struct{}{}
	}
	return true, s.persist(ctx)
}

// List returns every slot, newest first
func (s *Store) List() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// AutosaveName generates a unique autosave slot name for round. The counter
// suffix keeps names distinct within the same millisecond.
func (s *Store) AutosaveName(round int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	stamp := s.now().UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%sGW%d_%s_%06d", AutosavePrefix, round, stamp, s.seq)
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// IsAutosave reports whether name follows the autosave naming convention
func IsAutosave(name string) bool {
	return strings.HasPrefix(name, AutosavePrefix)
}

// pruneAutosaves keeps only the s.keep most recent autosaves. Caller holds s.mu.
func (s *Store) pruneAutosaves() {
	var autos []Slot
	for name, slot := range s.slots {
		if IsAutosave(name) {
			autos = append(autos, slot)
		}
	}
	if len(autos) <= s.keep {
		return
	}
	sort.Slice(autos, func(i, j int) bool { return newer(autos[i], autos[j]) })
	for _, slot := range autos[s.keep:] {
		delete(s.slots, slot.Name)
	}
}

// merge reads the backend mapping a failed Open missed and folds it under
// the in-memory slots, which are newer. Caller holds s.mu.
func (s *Store) merge(ctx context.Context) error {
	stored, err := s.backend.LoadAll(ctx, s.namespace)
	if err != nil {
		return err
	}
	for name, slot := range stored {
		if _, gone := s.removed[name]; gone {
			continue
		}
		if _, ok := s.slots[name]; !ok {
			s.slots[name] = slot
		}
	}
	s.loaded = true
	s.removed = nil
	s.pruneAutosaves()
	return nil
}

// persist rewrites the full mapping. It refuses to write until the backend
// mapping has been read. Caller holds s.mu.
func (s *Store) persist(ctx context.Context) error {
	if !s.loaded {
		if err := s.merge(ctx); err != nil {
			return fmt.Errorf("%w: stored slots of %s not read yet: %w", ErrPersist, s.namespace, err)
		}
	}
	snapshot := make(map[string]Slot, len(s.slots))
	for name, slot := range s.slots {
		snapshot[name] = slot
	}
	if err := s.backend.ReplaceAll(ctx, s.namespace, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
