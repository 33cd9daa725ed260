package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/league"
)

// Result carries both data sets for a league. Each half fails independently.
type Result struct {
	LeagueID    string
	Fixtures    []league.Fixture
	FixturesErr error
	Teams       []string
	TeamsErr    error
}

// Loader fetches fixture lists and rosters from a Source
type Loader struct {
	source Source
	logger *zap.Logger
}

// NewLoader creates a loader reading from source
func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, logger: logger.Named("loader")}
}

// Load issues the fixture and roster fetches concurrently. Either may fail
// without affecting the other.
func (l *Loader) Load(ctx context.Context, lg league.League) Result {
	res := Result{LeagueID: lg.ID}
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		res.Fixtures, res.FixturesErr = l.LoadFixtures(ctx, lg)
	}()

	go func() {
		defer wg.Done()
		res.Teams, res.TeamsErr = l.LoadTeams(ctx, lg)
	}()

	wg.Wait()

	if res.FixturesErr != nil {
		l.logger.Warn("failed to load fixtures", zap.String("league", lg.ID), zap.Error(res.FixturesErr))
	}
	if res.TeamsErr != nil {
		l.logger.Warn("failed to load teams", zap.String("league", lg.ID), zap.Error(res.TeamsErr))
	}
	l.logger.Debug("league data loaded",
		zap.String("league", lg.ID),
		zap.Int("fixtures", len(res.Fixtures)),
		zap.Int("teams", len(res.Teams)),
		zap.Duration("took", time.Since(start)),
	)
	return res
}

// LoadFixtures fetches and parses the league's fixture list
func (l *Loader) LoadFixtures(ctx context.Context, lg league.League) ([]league.Fixture, error) {
	doc, err := l.source.Fetch(ctx, lg.FixturesFile)
	if err != nil {
		return nil, err
	}
	fixtures, err := ParseFixtures(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lg.FixturesFile, err)
	}
	return fixtures, nil
}

// LoadTeams fetches and parses the league's roster
func (l *Loader) LoadTeams(ctx context.Context, lg league.League) ([]string, error) {
	doc, err := l.source.Fetch(ctx, lg.TeamsFile)
	if err != nil {
		return nil, err
	}
	teams, err := ParseRoster(doc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lg.TeamsFile, err)
	}
	return teams, nil
}
