package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func TestMemoryStore_AgentStateNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetAgentState(context.Background(), "nope")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestMemoryStore_SaveIsolatesCallerMutation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	st := &model.AgentState{ExecutionID: "exec-1", Status: model.StatusPlanning, CreatedAt: time.Now()}
	require.NoError(t, s.SaveAgentState(ctx, st))

	st.Status = model.StatusCompleted // mutate caller's copy after save
	got, err := s.GetAgentState(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPlanning, got.Status, "store must snapshot, not alias, the saved state")
}

func TestMemoryStore_ListAgentStatesFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveAgentState(ctx, &model.AgentState{ExecutionID: "e1", TenantID: "t1", Status: model.StatusPlanning}))
	require.NoError(t, s.SaveAgentState(ctx, &model.AgentState{ExecutionID: "e2", TenantID: "t2", Status: model.StatusCompleted}))

	list, err := s.ListAgentStates(ctx, AgentStateFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].ExecutionID)
}

func TestMemoryStore_GoldenPathRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	p := &model.GoldenPath{PathID: "p1", Blueprint: "support"}
	require.NoError(t, s.SaveGoldenPath(ctx, p))

	list, err := s.ListGoldenPaths(ctx, "support")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListGoldenPaths(ctx, "nonexistent-blueprint")
	require.NoError(t, err)
	assert.Len(t, list, 0)
}
