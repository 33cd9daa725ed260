package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/predictor/internal/league"
)

const fixturesJSON = `[
  {"MatchNumber": 2, "RoundNumber": 1, "DateUtc": "2025-08-09 14:00:00Z", "Location": "Elland Road", "HomeTeam": "Leeds", "AwayTeam": "Hull", "Group": null},
  {"MatchNumber": 1, "RoundNumber": 1, "DateUtc": "2025-08-08T19:00:00Z", "HomeTeam": "Stoke", "AwayTeam": "Derby"},
  {"MatchNumber": 3, "RoundNumber": 2, "DateUtc": "2025-08-16 14:00:00Z", "HomeTeam": "Hull", "AwayTeam": "Stoke"}
]`

const teamsCSV = "Position,Team,Stadium\n1,Leeds,Elland Road\n2,Hull,MKM\n3,,Nowhere\n4,Stoke\n5\n"

func testLeague() league.League {
	return league.League{
		ID:           "championship",
		Name:         "Championship",
		Rounds:       46,
		FixturesFile: "championship-fixtures.json",
		TeamsFile:    "championship-teams.csv",
	}
}

func TestParseFixtures(t *testing.T) {
	fixtures, err := ParseFixtures([]byte(fixturesJSON))
	require.NoError(t, err)
	require.Len(t, fixtures, 3)

	assert.Equal(t, 1, fixtures[0].MatchNumber)
	assert.Equal(t, "Stoke", fixtures[0].HomeTeam)
	assert.Equal(t, 2, fixtures[1].MatchNumber)
	assert.Equal(t, time.Date(2025, 8, 9, 14, 0, 0, 0, time.UTC), fixtures[1].Kickoff)
	assert.Equal(t, 2, fixtures[2].RoundNumber)
}

func TestParseFixtures_Errors(t *testing.T) {
	_, err := ParseFixtures([]byte(`{"not": "an array"}`))
	assert.Error(t, err)

	_, err = ParseFixtures([]byte(`[{"MatchNumber":1,"DateUtc":"2025-08-09 14:00:00Z"},{"MatchNumber":1,"DateUtc":"2025-08-09 14:00:00Z"}]`))
	assert.ErrorContains(t, err, "duplicate match number 1")

	_, err = ParseFixtures([]byte(`[{"MatchNumber":1,"DateUtc":"yesterday"}]`))
	assert.ErrorContains(t, err, "unrecognised kickoff time")
}

func TestParseRosterCSV(t *testing.T) {
	teams, err := ParseRosterCSV([]byte(teamsCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"Leeds", "Hull", "Stoke"}, teams)
}

func TestParseRosterCSV_HeaderCaseAndOrder(t *testing.T) {
	teams, err := ParseRosterCSV([]byte("\xef\xbb\xbfCity, TEAM \r\nLeeds,Leeds United\r\nHull,Hull City\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Leeds United", "Hull City"}, teams)
}

func TestParseRosterCSV_MissingTeamColumn(t *testing.T) {
	_, err := ParseRosterCSV([]byte("Club,Stadium\nLeeds,Elland Road\n"))
	assert.ErrorIs(t, err, ErrNoTeamColumn)

	_, err = ParseRosterCSV(nil)
	assert.ErrorIs(t, err, ErrNoTeamColumn)
}

func TestParseRosterHTML(t *testing.T) {
	page := `<html><body>
	<table><tr><th>Ground</th></tr><tr><td>Elland Road</td></tr></table>
	<table>
	  <tr><th>Pos</th><th>Team</th></tr>
	  <tr><td>1</td><td> Leeds </td></tr>
	  <tr><td>2</td><td></td></tr>
	  <tr><td>3</td><td>Hull</td></tr>
	</table></body></html>`

	teams, err := ParseRosterHTML([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, []string{"Leeds", "Hull"}, teams)

	_, err = ParseRosterHTML([]byte(`<table><tr><th>Club</th></tr></table>`))
	assert.ErrorIs(t, err, ErrNoTeamColumn)
}

func TestParseRoster_ChoosesParser(t *testing.T) {
	html := Document{Name: "teams.html", Body: []byte(`<table><tr><td>team</td></tr><tr><td>Leeds</td></tr></table>`)}
	teams, err := ParseRoster(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leeds"}, teams)

	served := Document{Name: "teams", ContentType: "text/html; charset=utf-8", Body: html.Body}
	assert.True(t, served.IsHTML())

	csvDoc := Document{Name: "teams.csv", ContentType: "text/csv", Body: []byte(teamsCSV)}
	assert.False(t, csvDoc.IsHTML())
}

func TestLoader_DirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "championship-fixtures.json"), []byte(fixturesJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "championship-teams.csv"), []byte(teamsCSV), 0o644))

	res := NewLoader(NewDirSource(dir), nil).Load(context.Background(), testLeague())
	require.NoError(t, res.FixturesErr)
	require.NoError(t, res.TeamsErr)
	assert.Equal(t, "championship", res.LeagueID)
	assert.Len(t, res.Fixtures, 3)
	assert.Equal(t, []string{"Leeds", "Hull", "Stoke"}, res.Teams)
}

func TestLoader_FailuresAreIndependent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "championship-teams.csv"), []byte(teamsCSV), 0o644))

	res := NewLoader(NewDirSource(dir), nil).Load(context.Background(), testLeague())
	assert.Error(t, res.FixturesErr)
	assert.Nil(t, res.Fixtures)
	require.NoError(t, res.TeamsErr)
	assert.Len(t, res.Teams, 3)
}

func TestLoader_HTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/championship-fixtures.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(fixturesJSON))
		case "/data/championship-teams.csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("Team\nLeeds\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewLoader(NewHTTPSource(srv.URL+"/data/", time.Second), nil)
	res := loader.Load(context.Background(), testLeague())
	require.NoError(t, res.FixturesErr)
	require.NoError(t, res.TeamsErr)
	assert.Len(t, res.Fixtures, 3)
	assert.Equal(t, []string{"Leeds"}, res.Teams)

	missing := testLeague()
	missing.TeamsFile = "nope.csv"
	res = loader.Load(context.Background(), missing)
	assert.ErrorContains(t, res.TeamsErr, "unexpected status 404")
	assert.NoError(t, res.FixturesErr)
}

func TestDirSource_StaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := NewDirSource(dir).Fetch(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}
