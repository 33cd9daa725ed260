package league

import (
	"fmt"
	"io"
	"sort"
)

// CalculateTable builds the standings for teams from the resolved matches.
// Every team gets a row, including teams without a played match.
func CalculateTable(teams []string, matches []ResolvedMatch) []StandingsRow {
	rows := make([]StandingsRow, 0, len(teams))
	for _, team := range teams {
		row := StandingsRow{Team: team}
		for _, m := range matches {
			if m.HomeTeam != team && m.AwayTeam != team {
				continue
			}
			isHome := m.HomeTeam == team
			teamGoals, oppGoals := m.HomeScore, m.AwayScore
			if !isHome {
				teamGoals, oppGoals = m.AwayScore, m.HomeScore
			}

			row.Played++
			row.GoalsFor += teamGoals
			row.GoalsAgainst += oppGoals

			switch {
			case teamGoals > oppGoals:
				row.Won++
			case teamGoals < oppGoals:
				row.Lost++
			default:
				row.Drawn++
			}
		}
		row.Points = row.Won*3 + row.Drawn
		row.GoalDifference = row.GoalsFor - row.GoalsAgainst
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.Team < b.Team
	})

	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}

// PrintTable writes a fixed-width rendering of the table to w
func PrintTable(w io.Writer, label string, table []StandingsRow) {
	fmt.Fprintln(w, label)
	fmt.Fprintf(w, "%3s %-24s %2s %2s %2s %2s %3s %3s %4s %3s  %s\n",
		"#", "Team", "P", "W", "D", "L", "GF", "GA", "GD", "Pts", "Zone")
	for _, row := range table {
		fmt.Fprintf(w, "%3d %-24s %2d %2d %2d %2d %3d %3d %4d %3d  %s\n",
			row.Position,
			row.Team,
			row.Played,
			row.Won,
			row.Drawn,
			row.Lost,
			row.GoalsFor,
			row.GoalsAgainst,
			row.GoalDifference,
			row.Points,
			row.Zone,
		)
	}
}
