package saves

import (
	"time"

	"github.com/fortuna/predictor/internal/league"
)

// Snapshot is the prediction state captured by a save
type Snapshot struct {
	LeagueID      string                 `json:"leagueId"`
	SelectedRound int                    `json:"selectedRound"`
	Matches       []league.ResolvedMatch `json:"matches"`
	Scores        league.Scores          `json:"scores"`
}

// Clone deep-copies the snapshot so callers cannot alias stored state
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		LeagueID:      s.LeagueID,
		SelectedRound: s.SelectedRound,
		Matches:       make([]league.ResolvedMatch, len(s.Matches)),
		Scores:        s.Scores.Clone(),
	}
	copy(out.Matches, s.Matches)
	return out
}

// Slot is a named, timestamped snapshot. The JSON layout matches the
// browser's savedGames records so exported data stays interchangeable.
type Slot struct {
	Name string `json:"name"`
	Snapshot
	Timestamp time.Time `json:"timestamp"`
}

// Clone deep-copies the slot
func (s Slot) Clone() Slot {
	s.Snapshot = s.Snapshot.Clone()
	return s
}

// newer orders slots by timestamp descending, later name first on ties
func newer(a, b Slot) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Name > b.Name
}
