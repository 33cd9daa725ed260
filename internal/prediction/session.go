package prediction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/ingest"
	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/saves"
)

// DefaultSaveName is the manual save name before any save or load
const DefaultSaveName = "autosave"

// Warning keys reported in the session view
const (
	warnFixtures = "fixtures"
	warnTeams    = "teams"
	warnSaves    = "saves"
)

// DataLoader fetches a league's fixtures and roster
type DataLoader interface {
	Load(ctx context.Context, lg league.League) ingest.Result
}

// Session owns one user's prediction state. Every mutation is serialised
// behind mu; data fetches run without the lock and are applied only if no
// newer league selection happened meanwhile.
type Session struct {
	id      string
	catalog *league.Catalog
	loader  DataLoader
	store   *saves.Store
	logger  *zap.Logger
	notify  func(Event)
	now     func() time.Time

	mu         sync.Mutex
	league     league.League
	round      int
	fixtures   []league.Fixture
	teams      []string
	state      State
	saveName   string
	generation uint64
	warnings   map[string]string
	memo       tableMemo
	lastActive time.Time
}

func newSession(id string, lg league.League, catalog *league.Catalog, loader DataLoader, store *saves.Store, logger *zap.Logger, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:         id,
		catalog:    catalog,
		loader:     loader,
		store:      store,
		logger:     logger.With(zap.String("session", id)),
		now:        now,
		league:     lg,
		round:      1,
		state:      NewState(),
		saveName:   DefaultSaveName,
		warnings:   map[string]string{},
		lastActive: now(),
	}
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// LastActive returns when the session was last used
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch marks the session as used now
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// League returns the selected league
func (s *Session) League() league.League {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.league
}

// Round returns the selected round
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// State returns a copy of the scores and resolved matches
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Refresh re-fetches the current league's data. Predictions are kept, and a
// failed fetch leaves the previous collection in place. It does not count as
// user activity for idle eviction.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	lg := s.league
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if s.fetch(ctx, lg, gen) {
		s.emit(EventChange, "")
	}
}

// SelectLeague switches to league id. Predictions are cleared and the round
// resets to 1 before the new league's data is requested. Selecting the
// current league again does nothing.
func (s *Session) SelectLeague(ctx context.Context, id string) error {
	lg, err := s.catalog.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastActive = s.now()
	if s.league.ID == lg.ID {
		s.mu.Unlock()
		return nil
	}

	s.league = lg
	s.round = 1
	s.state.Reset()
	s.fixtures = nil
	s.teams = nil
	delete(s.warnings, warnFixtures)
	delete(s.warnings, warnTeams)
	s.generation++
	gen := s.generation

	persistErr := s.autosaveLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("league selected", zap.String("league", lg.ID))
	s.fetch(ctx, lg, gen)
	s.emit(EventChange, "")
	return persistErr
}

// SetRound selects a round within 1..rounds
func (s *Session) SetRound(ctx context.Context, round int) error {
	return s.changeRound(ctx, func(lg league.League, _ int) (int, error) {
		if !lg.ValidRound(round) {
			return 0, fmt.Errorf("%w: %d not in 1..%d", ErrRoundOutOfRange, round, lg.Rounds)
		}
		return round, nil
	})
}

// NextRound advances one round, stopping at the last
func (s *Session) NextRound(ctx context.Context) error {
	return s.changeRound(ctx, func(lg league.League, cur int) (int, error) {
		return min(cur+1, lg.Rounds), nil
	})
}

// PrevRound goes back one round, stopping at 1
func (s *Session) PrevRound(ctx context.Context) error {
	return s.changeRound(ctx, func(_ league.League, cur int) (int, error) {
		return max(cur-1, 1), nil
	})
}

func (s *Session) changeRound(ctx context.Context, next func(lg league.League, cur int) (int, error)) error {
	s.mu.Lock()
	s.lastActive = s.now()

	round, err := next(s.league, s.round)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if round == s.round {
		s.mu.Unlock()
		return nil
	}

	s.round = round
	persistErr := s.autosaveLocked(ctx)
	s.mu.Unlock()

	s.emit(EventChange, "")
	return persistErr
}

// EnterScore stores the raw value typed for one side of a fixture and
// re-evaluates whether the fixture counts towards the table. It reports
// whether both sides are now valid.
func (s *Session) EnterScore(matchNumber int, side league.Side, value string) (bool, error) {
	if !side.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}

	s.mu.Lock()
	s.lastActive = s.now()
	f, ok := s.fixture(matchNumber)
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %d", ErrUnknownMatch, matchNumber)
	}
	resolved := s.state.Enter(f, side, value)
	s.mu.Unlock()

	s.emit(EventChange, "")
	return resolved, nil
}

// Table returns the standings for the current roster and resolved matches
func (s *Session) Table() []league.StandingsRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableLocked()
}

// Save stores the current state under name. An empty name uses the current
// save name. A returned error wrapping saves.ErrPersist means the slot exists
// in memory but was not written to the backend.
func (s *Session) Save(ctx context.Context, name string) (saves.Slot, error) {
	s.mu.Lock()
	s.lastActive = s.now()
	if name == "" {
		name = s.saveName
	}
	slot, err := s.saveLocked(ctx, name)
	s.mu.Unlock()

	if err != nil && !errors.Is(err, saves.ErrPersist) {
		return saves.Slot{}, err
	}
	s.emit(EventSave, slot.Name)
	return slot, err
}

// Load restores the named slot. A missing slot is a no-op reporting false.
// League, round and predictions are applied under one lock and Load never
// calls autosaveLocked, so the restore itself is never autosaved.
func (s *Session) Load(ctx context.Context, name string) (bool, error) {
	slot, ok := s.store.Get(name)
	if !ok {
		s.Touch()
		return false, nil
	}
	lg, err := s.catalog.Get(slot.LeagueID)
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", name, err)
	}

	s.mu.Lock()
	s.lastActive = s.now()

	leagueChanged := s.league.ID != lg.ID
	s.league = lg
	if leagueChanged {
		s.fixtures = nil
		s.teams = nil
		delete(s.warnings, warnFixtures)
		delete(s.warnings, warnTeams)
		s.generation++
	}
	gen := s.generation

	s.round = min(max(slot.SelectedRound, 1), lg.Rounds)

	s.state = State{Scores: slot.Scores.Clone(), Matches: slot.Snapshot.Clone().Matches}
	if s.state.Scores == nil {
		s.state.Scores = league.Scores{}
	}
	s.saveName = slot.Name
	s.mu.Unlock()

	s.logger.Info("save loaded", zap.String("name", slot.Name), zap.String("league", lg.ID), zap.Int("round", slot.SelectedRound))
	if leagueChanged {
		s.fetch(ctx, lg, gen)
	}
	s.emit(EventLoad, slot.Name)
	return true, nil
}

// DeleteSave removes the named slot. Deleting a missing slot reports false.
func (s *Session) DeleteSave(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	s.Touch()
	removed, err := s.store.Delete(ctx, name)
	s.recordPersist(err)
	if removed {
		s.emit(EventDelete, name)
	}
	return removed, err
}

// Saves lists the session's slots, newest first
func (s *Session) Saves() []saves.Slot {
	return s.store.List()
}

// autosaveLocked writes an autosave for the current state. Caller holds s.mu.
func (s *Session) autosaveLocked(ctx context.Context) error {
	_, err := s.saveLocked(ctx, s.store.AutosaveName(s.round))
	return err
}

// saveLocked writes the current snapshot. Caller holds s.mu.
func (s *Session) saveLocked(ctx context.Context, name string) (saves.Slot, error) {
	slot, err := s.store.Save(ctx, name, saves.Snapshot{
		LeagueID:      s.league.ID,
		SelectedRound: s.round,
		Matches:       s.state.Matches,
		Scores:        s.state.Scores,
	})
	if err != nil && !errors.Is(err, saves.ErrPersist) {
		return slot, err
	}
	s.saveName = slot.Name
	s.recordPersistLocked(err)
	return slot, err
}

func (s *Session) recordPersist(err error) {
	s.mu.Lock()
	s.recordPersistLocked(err)
	s.mu.Unlock()
}

func (s *Session) recordPersistLocked(err error) {
	if err == nil {
		delete(s.warnings, warnSaves)
		return
	}
	s.warnings[warnSaves] = err.Error()
	s.logger.Warn("save slots not persisted", zap.Error(err))
}

// fetch loads lg's data and applies it if gen is still current. It reports
// whether the result was applied.
func (s *Session) fetch(ctx context.Context, lg league.League, gen uint64) bool {
	res := s.loader.Load(ctx, lg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || res.LeagueID != s.league.ID {
		s.logger.Info("discarding stale league data",
			zap.String("league", res.LeagueID),
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", s.generation),
		)
		return false
	}

	if res.FixturesErr != nil {
		s.warnings[warnFixtures] = res.FixturesErr.Error()
	} else {
		s.fixtures = res.Fixtures
		delete(s.warnings, warnFixtures)
	}
	if res.TeamsErr != nil {
		s.warnings[warnTeams] = res.TeamsErr.Error()
	} else {
		s.teams = res.Teams
		delete(s.warnings, warnTeams)
	}
	return true
}

func (s *Session) fixture(matchNumber int) (league.Fixture, bool) {
	for _, f := range s.fixtures {
		if f.MatchNumber == matchNumber {
			return f, true
		}
	}
	return league.Fixture{}, false
}

// tableLocked returns a copy of the memoized standings. Caller holds s.mu.
func (s *Session) tableLocked() []league.StandingsRow {
	key := standingsKey(s.league.ID, s.teams, s.state.Matches)
	rows, ok := s.memo.lookup(key)
	if !ok {
		rows = s.league.ApplyZones(league.CalculateTable(s.teams, s.state.Matches))
		s.memo.store(key, rows)
	}
	out := make([]league.StandingsRow, len(rows))
	copy(out, rows)
	return out
}

func (s *Session) warningList() []string {
	keys := make([]string, 0, len(s.warnings))
	for k := range s.warnings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+s.warnings[k])
	}
	return out
}

func (s *Session) emit(kind EventKind, name string) {
	if s.notify == nil {
		return
	}
	s.notify(Event{
		SessionID: s.id,
		Kind:      kind,
		SaveName:  name,
		View:      s.View(),
	})
}
