package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

func TestService_PurgesOldCompletedAgentStates(t *testing.T) {
	store := statestore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAgentState(ctx, &model.AgentState{
		ExecutionID: "old-completed",
		Status:      model.StatusCompleted,
		CompletedAt: time.Now().Add(-400 * 24 * time.Hour),
	}))

	cfg := &config.RetentionConfig{AgentStateRetention: 365 * 24 * time.Hour, SweepInterval: time.Hour}
	svc := NewService(cfg, store)
	svc.sweep(ctx)

	_, err := store.GetAgentState(ctx, "old-completed")
	assert.Error(t, err, "old completed agent state should be purged")
}

func TestService_PreservesRecentAgentStates(t *testing.T) {
	store := statestore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAgentState(ctx, &model.AgentState{
		ExecutionID: "recent-completed",
		Status:      model.StatusCompleted,
		CompletedAt: time.Now(),
	}))

	cfg := &config.RetentionConfig{AgentStateRetention: 365 * 24 * time.Hour, SweepInterval: time.Hour}
	svc := NewService(cfg, store)
	svc.sweep(ctx)

	_, err := store.GetAgentState(ctx, "recent-completed")
	assert.NoError(t, err, "recent agent state should be preserved")
}

func TestService_PreservesInFlightAgentStates(t *testing.T) {
	store := statestore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAgentState(ctx, &model.AgentState{
		ExecutionID: "old-but-running",
		Status:      model.StatusActing,
	}))

	cfg := &config.RetentionConfig{AgentStateRetention: 0, SweepInterval: time.Hour}
	svc := NewService(cfg, store)
	svc.sweep(ctx)

	_, err := store.GetAgentState(ctx, "old-but-running")
	assert.NoError(t, err, "non-terminal agent state must never be purged regardless of age")
}
