package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/predictor/internal/ingest"
	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/prediction"
	"github.com/fortuna/predictor/internal/saves"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) Load(ctx context.Context, lg league.League) ingest.Result {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return ingest.Result{LeagueID: lg.ID, Teams: []string{"A", "B"}}
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newRegistry(loader prediction.DataLoader, c *clock) *prediction.Registry {
	catalog := league.NewCatalog(league.League{ID: "alpha", Rounds: 2})
	return prediction.NewRegistry(catalog, loader, saves.NewMemoryBackend(), nil,
		prediction.WithDefaultLeague("alpha"),
		prediction.WithClock(c.now),
	)
}

func TestEvictIdle(t *testing.T) {
	c := &clock{t: time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC)}
	reg := newRegistry(&countingLoader{}, c)
	ctx := context.Background()

	_, err := reg.Create(ctx, "", "")
	require.NoError(t, err)
	c.advance(3 * time.Hour)
	_, err = reg.Create(ctx, "", "")
	require.NoError(t, err)

	o := NewOrchestrator(reg, &Config{SessionIdleTTL: 2 * time.Hour, EvictSchedule: "@every 1m"}, nil)
	assert.Equal(t, 1, o.EvictIdle())
	assert.Equal(t, 1, reg.Len())
}

func TestRefreshSessions(t *testing.T) {
	loader := &countingLoader{}
	reg := newRegistry(loader, &clock{t: time.Now()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := reg.Create(ctx, "", "")
		require.NoError(t, err)
	}
	before := loader.count()

	o := NewOrchestrator(reg, nil, nil)
	assert.Equal(t, 3, o.RefreshSessions(ctx))
	assert.Equal(t, before+3, loader.count())
}

func TestRefreshDoesNotKeepSessionsAlive(t *testing.T) {
	c := &clock{t: time.Date(2025, 8, 9, 12, 0, 0, 0, time.UTC)}
	loader := &countingLoader{}
	reg := newRegistry(loader, c)
	ctx := context.Background()

	_, err := reg.Create(ctx, "", "")
	require.NoError(t, err)

	o := NewOrchestrator(reg, &Config{SessionIdleTTL: 2 * time.Hour, EvictSchedule: "@every 1m"}, nil)
	for i := 0; i < 6; i++ {
		c.advance(30 * time.Minute)
		o.RefreshSessions(ctx)
	}

	assert.Equal(t, 1, o.EvictIdle())
	assert.Zero(t, reg.Len())
}

func TestStart_InvalidSchedule(t *testing.T) {
	reg := newRegistry(&countingLoader{}, &clock{t: time.Now()})
	o := NewOrchestrator(reg, &Config{SessionIdleTTL: time.Hour, EvictSchedule: "every now and then"}, nil)

	err := o.Start(context.Background())
	assert.ErrorContains(t, err, "invalid evict schedule")
}

func TestStart_StopsOnCancel(t *testing.T) {
	reg := newRegistry(&countingLoader{}, &clock{t: time.Now()})
	cfg := DefaultConfig()
	cfg.RefreshSchedule = "@every 1h"
	o := NewOrchestrator(reg, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Start(ctx) }()

	assert.Eventually(t, func() bool { return o.GetStatus()["jobs"] == 2 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
