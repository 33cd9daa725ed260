package league

import (
	"strconv"
	"strings"
	"time"
)

// Fixture is a scheduled match within a league's fixture list
type Fixture struct {
	MatchNumber int       `json:"match_number"`
	RoundNumber int       `json:"round_number"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	Kickoff     time.Time `json:"kickoff"`
}

// Side names one half of a fixture's score inputs
type Side string

const (
	SideHome Side = "homeScore"
	SideAway Side = "awayScore"
)

// Valid reports whether s is one of the two score sides
func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

// PredictedScore holds the raw text entered for a fixture. Either field may be
// empty or unparseable while the user is still typing.
type PredictedScore struct {
	HomeScore string `json:"homeScore,omitempty"`
	AwayScore string `json:"awayScore,omitempty"`
}

// Value returns the raw text stored for side
func (p PredictedScore) Value(side Side) string {
	if side == SideHome {
		return p.HomeScore
	}
	return p.AwayScore
}

// With returns a copy of p with side set to value
func (p PredictedScore) With(side Side, value string) PredictedScore {
	if side == SideHome {
		p.HomeScore = value
	} else {
		p.AwayScore = value
	}
	return p
}

// Scores maps match number to the raw predicted score
type Scores map[int]PredictedScore

// Clone returns an independent copy of the map
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ResolvedMatch is a prediction with both scores valid
type ResolvedMatch struct {
	HomeTeam    string `json:"homeTeam"`
	AwayTeam    string `json:"awayTeam"`
	HomeScore   int    `json:"homeScore"`
	AwayScore   int    `json:"awayScore"`
	MatchNumber int    `json:"matchNumber"`
	RoundNumber int    `json:"roundNumber"`
}

// StandingsRow holds one team's aggregated record
type StandingsRow struct {
	Position       int    `json:"position"`
	Team           string `json:"team"`
	Played         int    `json:"played"`
	Won            int    `json:"won"`
	Drawn          int    `json:"drawn"`
	Lost           int    `json:"lost"`
	GoalsFor       int    `json:"goals_for"`
	GoalsAgainst   int    `json:"goals_against"`
	GoalDifference int    `json:"goal_difference"`
	Points         int    `json:"points"`
	Zone           Zone   `json:"zone,omitempty"`
}

// ParseScore converts raw input into a goal count. Only base-10 integers >= 0
// are accepted; anything else means the score is still incomplete.
func ParseScore(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-") {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Resolve promotes a predicted score to a result when both sides parse
func Resolve(f Fixture, p PredictedScore) (ResolvedMatch, bool) {
	home, ok := ParseScore(p.HomeScore)
	if !ok {
		return ResolvedMatch{}, false
	}
	away, ok := ParseScore(p.AwayScore)
	if !ok {
		return ResolvedMatch{}, false
	}
	return ResolvedMatch{
		HomeTeam:    f.HomeTeam,
		AwayTeam:    f.AwayTeam,
		HomeScore:   home,
		AwayScore:   away,
		MatchNumber: f.MatchNumber,
		RoundNumber: f.RoundNumber,
	}, true
}
