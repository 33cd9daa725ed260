package league

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownLeague is returned when a league id is not in the catalog
var ErrUnknownLeague = errors.New("unknown league")

// Zone marks a band of table positions
type Zone string

const (
	ZoneChampionsLeague Zone = "champions_league"
	ZoneEuropaLeague    Zone = "europa_league"
	ZonePromotion       Zone = "promotion"
	ZonePlayoffs        Zone = "playoffs"
	ZoneRelegation      Zone = "relegation"
)

// ZoneRule assigns Zone to positions From..To inclusive. To == 0 runs to the
// bottom of the table.
type ZoneRule struct {
	From int  `json:"from"`
	To   int  `json:"to,omitempty"`
	Zone Zone `json:"zone"`
}

func (r ZoneRule) contains(position int) bool {
	if position < r.From {
		return false
	}
	return r.To == 0 || position <= r.To
}

// League describes a competition and where its data lives
type League struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Rounds       int        `json:"rounds"`
	FixturesFile string     `json:"fixtures_file"`
	TeamsFile    string     `json:"teams_file"`
	Zones        []ZoneRule `json:"zones,omitempty"`
}

// ZoneFor returns the zone for a 1-based table position, or "" if none applies
func (l League) ZoneFor(position int) Zone {
	for _, rule := range l.Zones {
		if rule.contains(position) {
			return rule.Zone
		}
	}
	return ""
}

// ApplyZones stamps each row's zone from its position
func (l League) ApplyZones(rows []StandingsRow) []StandingsRow {
	for i := range rows {
		rows[i].Zone = l.ZoneFor(rows[i].Position)
	}
	return rows
}

// ValidRound reports whether round is within 1..Rounds
func (l League) ValidRound(round int) bool {
	return round >= 1 && round <= l.Rounds
}

// Catalog is the set of leagues the service knows about
type Catalog struct {
	leagues map[string]League
}

// NewCatalog builds a catalog from the given leagues
func NewCatalog(leagues ...League) *Catalog {
	c := &Catalog{leagues: make(map[string]League, len(leagues))}
	for _, l := range leagues {
		c.leagues[l.ID] = l
	}
	return c
}

// DefaultCatalog returns the built-in English leagues
func DefaultCatalog() *Catalog {
	return NewCatalog(
		League{
			ID:           "premierleague",
			Name:         "Premier League",
			Rounds:       38,
			FixturesFile: "premierleague-fixtures.json",
			TeamsFile:    "premierleague-teams.csv",
			Zones: []ZoneRule{
				{From: 1, To: 4, Zone: ZoneChampionsLeague},
				{From: 5, To: 5, Zone: ZoneEuropaLeague},
				{From: 18, Zone: ZoneRelegation},
			},
		},
		League{
			ID:           "championship",
			Name:         "Championship",
			Rounds:       46,
			FixturesFile: "championship-fixtures.json",
			TeamsFile:    "championship-teams.csv",
			Zones: []ZoneRule{
				{From: 1, To: 2, Zone: ZonePromotion},
				{From: 3, To: 6, Zone: ZonePlayoffs},
				{From: 22, Zone: ZoneRelegation},
			},
		},
	)
}

// Get looks up a league by id
func (c *Catalog) Get(id string) (League, error) {
	l, ok := c.leagues[id]
	if !ok {
		return League{}, fmt.Errorf("%w: %q", ErrUnknownLeague, id)
	}
	return l, nil
}

// All returns the leagues ordered by id
func (c *Catalog) All() []League {
	out := make([]League, 0, len(c.leagues))
	for _, l := range c.leagues {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
