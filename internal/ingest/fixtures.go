package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fortuna/predictor/internal/league"
)

// fixtureRecord mirrors one entry of a fixture feed
type fixtureRecord struct {
	MatchNumber int    `json:"MatchNumber"`
	RoundNumber int    `json:"RoundNumber"`
	HomeTeam    string `json:"HomeTeam"`
	AwayTeam    string `json:"AwayTeam"`
	DateUtc     string `json:"DateUtc"`
}

// kickoffLayouts are the timestamp forms seen in fixture feeds
var kickoffLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseFixtures decodes a fixture feed. Entries come back ordered by kickoff
// then match number.
func ParseFixtures(body []byte) ([]league.Fixture, error) {
	var records []fixtureRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding fixtures: %w", err)
	}

	fixtures := make([]league.Fixture, 0, len(records))
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if seen[r.MatchNumber] {
			return nil, fmt.Errorf("duplicate match number %d", r.MatchNumber)
		}
		seen[r.MatchNumber] = true

		kickoff, err := parseKickoff(r.DateUtc)
		if err != nil {
			return nil, fmt.Errorf("match %d: %w", r.MatchNumber, err)
		}
		fixtures = append(fixtures, league.Fixture{
			MatchNumber: r.MatchNumber,
			RoundNumber: r.RoundNumber,
			HomeTeam:    strings.TrimSpace(r.HomeTeam),
			AwayTeam:    strings.TrimSpace(r.AwayTeam),
			Kickoff:     kickoff,
		})
	}

	sort.SliceStable(fixtures, func(i, j int) bool {
		if !fixtures[i].Kickoff.Equal(fixtures[j].Kickoff) {
			return fixtures[i].Kickoff.Before(fixtures[j].Kickoff)
		}
		return fixtures[i].MatchNumber < fixtures[j].MatchNumber
	})
	return fixtures, nil
}

func parseKickoff(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised kickoff time %q", raw)
}
