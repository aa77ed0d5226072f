package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/blueprint"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func TestRegistry_BlueprintLifecycle(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(blueprint.Seeds()))

	bp, err := r.GetBlueprint("support")
	require.NoError(t, err)
	assert.Equal(t, "support", bp.Name)

	assert.Len(t, r.ListBlueprints(), 6)

	_, err = r.GetBlueprint("nonexistent")
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRegistry_CreateAgentMergesOverlayOverDefaults(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(blueprint.Seeds()))

	rec, err := r.CreateAgent("tenant-a", "triage", model.AgentConfig{MaxIterations: 99})
	require.NoError(t, err)
	assert.Equal(t, 99, rec.Config.MaxIterations)
	assert.Equal(t, "tenant-a", rec.TenantID)

	got, err := r.GetAgent(rec.AgentID)
	require.NoError(t, err)
	assert.Same(t, rec, got)

	assert.Len(t, r.ListAgents("tenant-a"), 1)
	assert.Len(t, r.ListAgents("tenant-b"), 0)
}

func TestRegistry_CreateAgentUnknownBlueprintFails(t *testing.T) {
	r := New()
	_, err := r.CreateAgent("tenant-a", "nonexistent", model.AgentConfig{})
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRegistry_RemoveAgent(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(blueprint.Seeds()))
	rec, err := r.CreateAgent("tenant-a", "triage", model.AgentConfig{})
	require.NoError(t, err)

	require.NoError(t, r.RemoveAgent(rec.AgentID))
	_, err = r.GetAgent(rec.AgentID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))

	err = r.RemoveAgent(rec.AgentID)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestRegistry_SetSuspended(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(blueprint.Seeds()))
	rec, err := r.CreateAgent("tenant-a", "triage", model.AgentConfig{})
	require.NoError(t, err)

	require.NoError(t, r.SetSuspended(rec.AgentID, true))
	got, err := r.GetAgent(rec.AgentID)
	require.NoError(t, err)
	assert.True(t, got.Suspended)
}

func TestRegistry_RegisterBlueprintDuplicateNameFails(t *testing.T) {
	r := New()
	bp := model.Blueprint{Name: "dup"}
	require.NoError(t, r.RegisterBlueprint(bp))

	err := r.RegisterBlueprint(bp)
	assert.True(t, apierr.Is(err, apierr.KindValidation))

	assert.Len(t, r.ListBlueprints(), 1)
}

func TestRegistry_StatePersistenceHookInvokedOnPersistState(t *testing.T) {
	r := New()
	var got *model.AgentState
	r.SetStatePersistenceHook(func(_ context.Context, s *model.AgentState) error {
		got = s
		return nil
	})

	state := &model.AgentState{AgentID: "agent-1", Status: model.StatusCompleted}
	require.NoError(t, r.PersistState(context.Background(), state))
	assert.Same(t, state, got)
}

func TestRegistry_PersistStateWithNoHookIsNoop(t *testing.T) {
	r := New()
	assert.NoError(t, r.PersistState(context.Background(), &model.AgentState{}))
}
