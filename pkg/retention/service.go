// Package retention enforces the background purge of terminal agent state
// so a long-lived deployment's durable store doesn't grow unbounded.
//
// Grounded on pkg/cleanup/service.go's start/stop/ticker-loop shape; the
// teacher's two retention jobs (soft-delete old sessions, remove orphaned
// events past TTL) collapse into the one this domain needs — a hard delete
// of terminal pkg/statestore.Store agent state past its retention window.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

// Service periodically purges terminal AgentState rows past their
// configured retention window. Safe to run from a single process; repeated
// sweeps are idempotent (a row purged by one sweep is simply absent for the
// next).
type Service struct {
	config *config.RetentionConfig
	store  statestore.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a retention Service. Call Start to begin sweeping.
func NewService(cfg *config.RetentionConfig, store statestore.Store) *Service {
	return &Service{config: cfg, store: store}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention service started",
		"agent_state_retention", s.config.AgentStateRetention,
		"sweep_interval", s.config.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	count, err := s.store.PurgeCompletedAgentStates(ctx, s.config.AgentStateRetention)
	if err != nil {
		slog.Error("retention: purge completed agent states failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: purged completed agent states", "count", count)
	}
}
