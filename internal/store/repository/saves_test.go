package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/saves"
	"github.com/fortuna/predictor/internal/store"
)

func TestSlotRowRoundTrip(t *testing.T) {
	ts := time.Date(2025, 8, 9, 12, 30, 0, 0, time.FixedZone("BST", 3600))
	slot := saves.Slot{
		Name: "AutoSave_GW3_2025-08-09T11-30-00-000Z_000001",
		Snapshot: saves.Snapshot{
			LeagueID:      "championship",
			SelectedRound: 3,
			Matches: []league.ResolvedMatch{
				{HomeTeam: "Leeds", AwayTeam: "Hull", HomeScore: 1, AwayScore: 1, MatchNumber: 7, RoundNumber: 3},
			},
			Scores: league.Scores{7: {HomeScore: "1", AwayScore: "1"}},
		},
		Timestamp: ts,
	}

	row, err := rowFromSlot("ns-1", slot)
	require.NoError(t, err)
	assert.Equal(t, "ns-1", row.Namespace)
	assert.Equal(t, "championship", row.LeagueID)
	assert.Equal(t, 3, row.Round)
	assert.Equal(t, time.UTC, row.SavedAt.Location())

	back, err := slotFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, slot.Name, back.Name)
	assert.True(t, ts.Equal(back.Timestamp))
	assert.Equal(t, slot.Matches, back.Matches)
	assert.Equal(t, slot.Scores, back.Scores)
}

func TestSlotFromRow_RowColumnsWin(t *testing.T) {
	saved := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	row := store.SaveSlotRow{
		Name:    "manual",
		Payload: []byte(`{"name":"stale","leagueId":"premierleague","selectedRound":4,"matches":[],"timestamp":"2020-01-01T00:00:00Z"}`),
		SavedAt: saved,
	}

	slot, err := slotFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "manual", slot.Name)
	assert.Equal(t, saved, slot.Timestamp)
	assert.NotNil(t, slot.Scores)
	assert.Equal(t, 4, slot.SelectedRound)
}

func TestSlotFromRow_BadPayload(t *testing.T) {
	_, err := slotFromRow(store.SaveSlotRow{Name: "broken", Payload: []byte(`{`)})
	assert.ErrorContains(t, err, "decoding save slot broken")
}
