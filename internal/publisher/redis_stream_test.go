package publisher

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/prediction"
)

func sampleEvent(kind prediction.EventKind) prediction.Event {
	return prediction.Event{
		SessionID: "s-1",
		Kind:      kind,
		SaveName:  "mine",
		View: prediction.View{
			League: league.League{ID: "championship"},
			Round:  4,
			Table:  []league.StandingsRow{{Position: 1, Team: "Leeds", Points: 3}},
		},
	}
}

func TestTableUpdate(t *testing.T) {
	u := tableUpdate(sampleEvent(prediction.EventChange))
	assert.Equal(t, "s-1", u.SessionID)
	assert.Equal(t, "championship", u.LeagueID)
	assert.Equal(t, 4, u.Round)
	assert.Equal(t, "Leeds", u.Table[0].Team)
}

func TestSaveEvent(t *testing.T) {
	_, ok := saveEvent(sampleEvent(prediction.EventChange))
	assert.False(t, ok)

	for _, kind := range []prediction.EventKind{prediction.EventSave, prediction.EventLoad, prediction.EventDelete} {
		ev, ok := saveEvent(sampleEvent(kind))
		assert.True(t, ok)
		assert.Equal(t, string(kind), ev.Action)
		assert.Equal(t, "mine", ev.Name)
	}
}

func TestSessionChanged_DropsWhenFull(t *testing.T) {
	p := NewRedisStreamPublisher(redis.NewClient(&redis.Options{Addr: "localhost:0"}), nil)
	p.queue = make(chan prediction.Event, 1)

	p.SessionChanged(sampleEvent(prediction.EventChange))
	p.SessionChanged(sampleEvent(prediction.EventSave))

	assert.Len(t, p.queue, 1)
	assert.Equal(t, prediction.EventChange, (<-p.queue).Kind)
}
