package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/prediction"
)

// Orchestrator runs the periodic maintenance jobs of the session registry
type Orchestrator struct {
	registry *prediction.Registry
	config   *Config
	cron     *cron.Cron
	logger   *zap.Logger
	baseCtx  context.Context
}

// Config holds scheduler configuration
type Config struct {
	SessionIdleTTL  time.Duration // Default: 2h
	EvictSchedule   string        // Default: @every 5m
	RefreshSchedule string        // Empty disables league data refresh
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		SessionIdleTTL: 2 * time.Hour,
		EvictSchedule:  "@every 5m",
	}
}

// NewOrchestrator creates a scheduler for registry
func NewOrchestrator(registry *prediction.Registry, config *Config, logger *zap.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		config:   config,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.Named("scheduler"),
		baseCtx:  context.Background(),
	}
}

// Start registers the jobs and runs them until ctx is cancelled
func (o *Orchestrator) Start(ctx context.Context) error {
	o.baseCtx = ctx

	if _, err := o.cron.AddFunc(o.config.EvictSchedule, func() { o.EvictIdle() }); err != nil {
		return fmt.Errorf("invalid evict schedule %q: %w", o.config.EvictSchedule, err)
	}
	if o.config.RefreshSchedule != "" {
		if _, err := o.cron.AddFunc(o.config.RefreshSchedule, func() { o.RefreshSessions(o.baseCtx) }); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", o.config.RefreshSchedule, err)
		}
	}

	o.logger.Info("scheduler started",
		zap.String("evict_schedule", o.config.EvictSchedule),
		zap.Duration("idle_ttl", o.config.SessionIdleTTL),
		zap.String("refresh_schedule", o.config.RefreshSchedule),
	)
	o.cron.Start()

	<-ctx.Done()
	o.Stop()
	return nil
}

// Stop waits for running jobs to finish
func (o *Orchestrator) Stop() {
	done := o.cron.Stop()
	<-done.Done()
	o.logger.Info("scheduler stopped")
}

// EvictIdle drops sessions idle for longer than the configured TTL
func (o *Orchestrator) EvictIdle() int {
	evicted := o.registry.EvictIdle(o.config.SessionIdleTTL)
	for _, id := range evicted {
		o.logger.Debug("session evicted", zap.String("session", id))
	}
	return len(evicted)
}

// RefreshSessions re-fetches league data for every live session
func (o *Orchestrator) RefreshSessions(ctx context.Context) int {
	start := time.Now()
	sessions := o.registry.Sessions()
	for _, s := range sessions {
		if ctx.Err() != nil {
			break
		}
		s.Refresh(ctx)
	}
	o.logger.Info("refreshed league data",
		zap.Int("sessions", len(sessions)),
		zap.Duration("took", time.Since(start)),
	)
	return len(sessions)
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"evict_schedule":   o.config.EvictSchedule,
		"session_idle_ttl": o.config.SessionIdleTTL.String(),
		"refresh_schedule": o.config.RefreshSchedule,
		"live_sessions":    o.registry.Len(),
		"jobs":             len(o.cron.Entries()),
	}
}
