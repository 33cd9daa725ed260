package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/prediction"
)

// Stream names
const (
	TablesStream = "predictions.tables"
	SavesStream  = "predictions.saves"
)

// TableUpdate is published after every session change
type TableUpdate struct {
	SessionID string                `json:"session_id"`
	LeagueID  string                `json:"league_id"`
	Round     int                   `json:"round"`
	Table     []league.StandingsRow `json:"table"`
}

// SaveEvent is published when a slot is saved, loaded or deleted
type SaveEvent struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Action    string `json:"action"`
}

// RedisStreamPublisher publishes session events to Redis streams. Events are
// queued by SessionChanged and written by Run.
type RedisStreamPublisher struct {
	client *redis.Client
	logger *zap.Logger
	queue  chan prediction.Event
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher on an existing client
func NewRedisStreamPublisher(client *redis.Client, logger *zap.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStreamPublisher{
		client: client,
		logger: logger.Named("publisher"),
		queue:  make(chan prediction.Event, 256),
		maxLen: 10000,
	}
}

// SessionChanged queues ev for publishing. Events are dropped when the queue
// is full.
func (p *RedisStreamPublisher) SessionChanged(ev prediction.Event) {
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("publish queue full, dropping event",
			zap.String("session", ev.SessionID),
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Run publishes queued events until ctx is cancelled
func (p *RedisStreamPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.Publish(ctx, ev); err != nil {
				p.logger.Warn("failed to publish event", zap.String("session", ev.SessionID), zap.Error(err))
			}
		}
	}
}

// Publish writes ev's table update and, for slot events, its save event
func (p *RedisStreamPublisher) Publish(ctx context.Context, ev prediction.Event) error {
	if err := p.add(ctx, TablesStream, tableUpdate(ev)); err != nil {
		return err
	}
	if save, ok := saveEvent(ev); ok {
		return p.add(ctx, SavesStream, save)
	}
	return nil
}

func (p *RedisStreamPublisher) add(ctx context.Context, stream string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

func tableUpdate(ev prediction.Event) TableUpdate {
	return TableUpdate{
		SessionID: ev.SessionID,
		LeagueID:  ev.View.League.ID,
		Round:     ev.View.Round,
		Table:     ev.View.Table,
	}
}

func saveEvent(ev prediction.Event) (SaveEvent, bool) {
	switch ev.Kind {
	case prediction.EventSave, prediction.EventLoad, prediction.EventDelete:
		return SaveEvent{SessionID: ev.SessionID, Name: ev.SaveName, Action: string(ev.Kind)}, true
	}
	return SaveEvent{}, false
}
