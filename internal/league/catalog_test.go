package league

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Get(t *testing.T) {
	c := DefaultCatalog()

	pl, err := c.Get("premierleague")
	require.NoError(t, err)
	assert.Equal(t, 38, pl.Rounds)

	ch, err := c.Get("championship")
	require.NoError(t, err)
	assert.Equal(t, 46, ch.Rounds)

	_, err = c.Get("laliga")
	assert.True(t, errors.Is(err, ErrUnknownLeague))
}

func TestCatalog_AllSorted(t *testing.T) {
	all := DefaultCatalog().All()
	require.Len(t, all, 2)
	assert.Equal(t, "championship", all[0].ID)
	assert.Equal(t, "premierleague", all[1].ID)
}

func TestLeague_ZoneFor(t *testing.T) {
	pl := mustLeague(t, "premierleague")
	assert.Equal(t, ZoneChampionsLeague, pl.ZoneFor(1))
	assert.Equal(t, ZoneChampionsLeague, pl.ZoneFor(4))
	assert.Equal(t, ZoneEuropaLeague, pl.ZoneFor(5))
	assert.Equal(t, Zone(""), pl.ZoneFor(6))
	assert.Equal(t, Zone(""), pl.ZoneFor(17))
	assert.Equal(t, ZoneRelegation, pl.ZoneFor(18))
	assert.Equal(t, ZoneRelegation, pl.ZoneFor(20))

	ch := mustLeague(t, "championship")
	assert.Equal(t, ZonePromotion, ch.ZoneFor(2))
	assert.Equal(t, ZonePlayoffs, ch.ZoneFor(3))
	assert.Equal(t, ZonePlayoffs, ch.ZoneFor(6))
	assert.Equal(t, Zone(""), ch.ZoneFor(21))
	assert.Equal(t, ZoneRelegation, ch.ZoneFor(22))
}

func TestLeague_ValidRound(t *testing.T) {
	ch := mustLeague(t, "championship")
	assert.False(t, ch.ValidRound(0))
	assert.True(t, ch.ValidRound(1))
	assert.True(t, ch.ValidRound(46))
	assert.False(t, ch.ValidRound(47))
}
