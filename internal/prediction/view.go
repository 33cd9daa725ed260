package prediction

import (
	"time"

	"github.com/fortuna/predictor/internal/league"
)

// FixtureView is one fixture of the selected round with its entered scores
type FixtureView struct {
	league.Fixture
	HomeScore string `json:"homeScore"`
	AwayScore string `json:"awayScore"`
	Resolved  bool   `json:"resolved"`
}

// FixtureDay groups the round's fixtures kicking off on the same UTC date
type FixtureDay struct {
	Date     string        `json:"date"`
	Fixtures []FixtureView `json:"fixtures"`
}

// View is the full render model of a session
type View struct {
	SessionID string                 `json:"session_id"`
	League    league.League          `json:"league"`
	Round     int                    `json:"round"`
	Rounds    int                    `json:"rounds"`
	SaveName  string                 `json:"save_name"`
	Days      []FixtureDay           `json:"days"`
	Scores    league.Scores          `json:"scores"`
	Matches   []league.ResolvedMatch `json:"matches"`
	Table     []league.StandingsRow  `json:"table"`
	Warnings  []string               `json:"warnings,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// View snapshots the session for rendering
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.Clone()
	if st.Matches == nil {
		st.Matches = []league.ResolvedMatch{}
	}
	return View{
		SessionID: s.id,
		League:    s.league,
		Round:     s.round,
		Rounds:    s.league.Rounds,
		SaveName:  s.saveName,
		Days:      s.daysLocked(),
		Scores:    st.Scores,
		Matches:   st.Matches,
		Table:     s.tableLocked(),
		Warnings:  s.warningList(),
		UpdatedAt: s.lastActive,
	}
}

// daysLocked groups the selected round's fixtures by kickoff date, keeping
// kickoff order. Caller holds s.mu.
func (s *Session) daysLocked() []FixtureDay {
	days := []FixtureDay{}
	for _, f := range s.fixtures {
		if f.RoundNumber != s.round {
			continue
		}
		date := f.Kickoff.UTC().Format(time.DateOnly)
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, FixtureDay{Date: date})
		}

		score := s.state.Scores[f.MatchNumber]
		_, resolved := league.Resolve(f, score)
		day := &days[len(days)-1]
		day.Fixtures = append(day.Fixtures, FixtureView{
			Fixture:   f,
			HomeScore: score.HomeScore,
			AwayScore: score.AwayScore,
			Resolved:  resolved,
		})
	}
	return days
}
