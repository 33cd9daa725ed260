package prediction

import (
	"github.com/fortuna/predictor/internal/league"
)

// State is the mutable prediction data of a session: raw score text per match
// and the matches whose two scores both parse.
type State struct {
	Scores  league.Scores
	Matches []league.ResolvedMatch
}

// NewState returns an empty state
func NewState() State {
	return State{Scores: league.Scores{}}
}

// Enter records value for side of fixture f and re-evaluates the fixture. The
// other side uses its last stored value. Returns whether f is now resolved.
func (s *State) Enter(f league.Fixture, side league.Side, value string) bool {
	if s.Scores == nil {
		s.Scores = league.Scores{}
	}
	score := s.Scores[f.MatchNumber].With(side, value)
	s.Scores[f.MatchNumber] = score

	resolved, ok := league.Resolve(f, score)
	idx := s.indexOf(f.MatchNumber)
	switch {
	case ok && idx >= 0:
		s.Matches[idx] = resolved
	case ok:
		s.Matches = append(s.Matches, resolved)
	case idx >= 0:
		s.Matches = append(s.Matches[:idx], s.Matches[idx+1:]...)
	}
	return ok
}

// Reset clears every prediction
func (s *State) Reset() {
	s.Scores = league.Scores{}
	s.Matches = nil
}

// Clone returns a deep copy
func (s State) Clone() State {
	out := State{Scores: s.Scores.Clone()}
	if len(s.Matches) > 0 {
		out.Matches = make([]league.ResolvedMatch, len(s.Matches))
		copy(out.Matches, s.Matches)
	}
	return out
}

func (s *State) indexOf(matchNumber int) int {
	for i, m := range s.Matches {
		if m.MatchNumber == matchNumber {
			return i
		}
	}
	return -1
}
