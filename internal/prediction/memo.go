package prediction

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/fortuna/predictor/internal/league"
)

// tableMemo caches the last computed table against a content hash of its
// inputs, so repeated reads after unrelated changes skip the recompute.
type tableMemo struct {
	key  uint64
	ok   bool
	rows []league.StandingsRow
}

func (m *tableMemo) lookup(key uint64) ([]league.StandingsRow, bool) {
	if !m.ok || m.key != key {
		return nil, false
	}
	return m.rows, true
}

func (m *tableMemo) store(key uint64, rows []league.StandingsRow) {
	m.key, m.ok, m.rows = key, true, rows
}

// standingsKey hashes the league, roster and resolved matches. Match order
// does not affect the key.
func standingsKey(leagueID string, teams []string, matches []league.ResolvedMatch) uint64 {
	d := xxhash.New()
	d.WriteString(leagueID)
	d.WriteString("\x00")
	for _, t := range teams {
		d.WriteString(t)
		d.WriteString("\x00")
	}
	d.WriteString("\x01")

	sorted := make([]league.ResolvedMatch, len(matches))
	copy(sorted, matches)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MatchNumber < sorted[j].MatchNumber })

	buf := make([]byte, 0, 64)
	for _, m := range sorted {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(m.MatchNumber), 10)
		buf = append(buf, '|')
		buf = append(buf, m.HomeTeam...)
		buf = append(buf, '|')
		buf = append(buf, m.AwayTeam...)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, int64(m.HomeScore), 10)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, int64(m.AwayScore), 10)
		buf = append(buf, '\n')
		d.Write(buf)
	}
	return d.Sum64()
}
