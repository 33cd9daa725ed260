package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/saves"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type unreadableBackend struct {
	brokenBackend
}

func (unreadableBackend) LoadAll(ctx context.Context, namespace string) (map[string]saves.Slot, error) {
	return nil, errors.New("connection refused")
}

// firstReadFails wraps a backend whose first LoadAll errors
type firstReadFails struct {
	*saves.MemoryBackend
	mu     sync.Mutex
	failed bool
}

func (b *firstReadFails) LoadAll(ctx context.Context, namespace string) (map[string]saves.Slot, error) {
	b.mu.Lock()
	first := !b.failed
	b.failed = true
	b.mu.Unlock()
	if first {
		return nil, errors.New("i/o timeout")
	}
	return b.MemoryBackend.LoadAll(ctx, namespace)
}

func TestRegistry_CreateAndResume(t *testing.T) {
	reg := newTestRegistry(t, newStubLoader(), saves.NewMemoryBackend())
	ctx := context.Background()

	s, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.Equal(t, "alpha", s.League().ID)

	again, err := reg.Create(ctx, s.ID(), "beta")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, "alpha", again.League().ID)

	got, err := reg.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_CreateWithLeague(t *testing.T) {
	reg := newTestRegistry(t, newStubLoader(), saves.NewMemoryBackend())

	s, err := reg.Create(context.Background(), uuid.NewString(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", s.League().ID)
	assert.Len(t, s.View().Days, 1)
}

func TestRegistry_CreateErrors(t *testing.T) {
	reg := newTestRegistry(t, newStubLoader(), saves.NewMemoryBackend())
	ctx := context.Background()

	_, err := reg.Create(ctx, "not-a-uuid", "")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	_, err = reg.Create(ctx, "", "gamma")
	assert.ErrorIs(t, err, league.ErrUnknownLeague)

	_, err = reg.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_ResumedSessionSeesStoredSlots(t *testing.T) {
	backend := saves.NewMemoryBackend()
	reg := newTestRegistry(t, newStubLoader(), backend)
	ctx := context.Background()

	s, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	_, err = s.Save(ctx, "kept")
	require.NoError(t, err)
	require.True(t, reg.Close(s.ID()))
	assert.False(t, reg.Close(s.ID()))

	reopened, err := reg.Create(ctx, s.ID(), "")
	require.NoError(t, err)
	assert.NotSame(t, s, reopened)
	require.Len(t, reopened.Saves(), 1)
	assert.Equal(t, "kept", reopened.Saves()[0].Name)
}

func TestRegistry_UnreadableBackendStillCreates(t *testing.T) {
	reg := newTestRegistry(t, newStubLoader(), unreadableBackend{})

	s, err := reg.Create(context.Background(), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, saves.ErrPersist)
	require.NotNil(t, s)
	assert.Contains(t, s.View().Warnings[0], "saves:")
}

func TestRegistry_EvictIdle(t *testing.T) {
	clock := &manualClock{t: time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC)}
	reg := newTestRegistry(t, newStubLoader(), saves.NewMemoryBackend(), WithClock(clock.now))
	ctx := context.Background()

	idle, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	clock.advance(90 * time.Minute)

	busy, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	clock.advance(45 * time.Minute)

	evicted := reg.EvictIdle(time.Hour)
	assert.Equal(t, []string{idle.ID()}, evicted)

	_, err = reg.Get(busy.ID())
	assert.NoError(t, err)
	_, err = reg.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistry_ListenersReceiveEvents(t *testing.T) {
	reg := newTestRegistry(t, newStubLoader(), saves.NewMemoryBackend())

	var (
		mu     sync.Mutex
		events []Event
	)
	reg.Subscribe(ListenerFunc(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	ctx := context.Background()
	s, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	_, err = s.Save(ctx, "picks")
	require.NoError(t, err)
	_, err = s.DeleteSave(ctx, "picks")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(events), 3)

	last := events[len(events)-1]
	assert.Equal(t, EventDelete, last.Kind)
	assert.Equal(t, "picks", last.SaveName)
	assert.Equal(t, s.ID(), last.SessionID)

	save := events[len(events)-2]
	assert.Equal(t, EventSave, save.Kind)
	assert.Equal(t, "alpha", save.View.League.ID)
}

func TestRegistry_FailedFirstReadKeepsStoredSlots(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()

	mem := saves.NewMemoryBackend()
	require.NoError(t, mem.ReplaceAll(ctx, id, map[string]saves.Slot{
		"my-season": {
			Name:      "my-season",
			Snapshot:  saves.Snapshot{LeagueID: "alpha", SelectedRound: 3, Scores: league.Scores{}},
			Timestamp: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		},
	}))
	reg := newTestRegistry(t, newStubLoader(), &firstReadFails{MemoryBackend: mem})

	s, err := reg.Create(ctx, id, "")
	require.ErrorIs(t, err, saves.ErrPersist)
	require.NotNil(t, s)

	require.NoError(t, s.SetRound(ctx, 2))

	stored, err := mem.LoadAll(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, stored, "my-season")
	assert.Len(t, autosaves(mapValues(stored)), 1)

	ok, err := s.Load(ctx, "my-season")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, s.Round())
	assert.Empty(t, s.View().Warnings)
}

func mapValues(slots map[string]saves.Slot) []saves.Slot {
	out := make([]saves.Slot, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot)
	}
	return out
}
