package hitl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/notify"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

func lowConfidenceRule() model.EscalationRule {
	return model.EscalationRule{
		Name:          "low-confidence",
		Conditions:    map[string]any{"confidence": map[string]any{"max": 0.75}},
		Priority:      model.PriorityHigh,
		NotifyChannel: "slack",
		NotifyUrgency: "high",
	}
}

func TestEscalationManager_EvaluateAndEscalate_FirstMatchWins(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.CreatePolicy(model.EscalationPolicy{
		TenantID: "t1",
		Rules: []model.EscalationRule{
			lowConfidenceRule(),
			{Name: "vip", Conditions: map[string]any{"is_vip": true}, Priority: model.PriorityCritical},
		},
	})

	req, rule, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{
		"confidence": 0.5, "is_vip": true,
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "low-confidence", rule.Name)
	assert.Equal(t, model.PriorityHigh, req.Priority)
}

func TestEscalationManager_EvaluateAndEscalate_NoMatchReturnsNil(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}})

	req, rule, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{"confidence": 0.9})
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.Nil(t, rule)
}

func TestEscalationManager_EvaluateAndEscalate_UnregisteredTenantIsNotAnError(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)

	req, rule, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "unknown-tenant", "exec-1", nil)
	require.NoError(t, err)
	assert.Nil(t, req)
	assert.Nil(t, rule)
}

func TestEscalationManager_MatchUsesRuleLevelOverridingPolicyDefault(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	rule := lowConfidenceRule()
	rule.Level = model.LevelL3
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{rule}, DefaultLevel: model.LevelL1})

	var seen model.EscalationLevel
	mgr.RegisterLevelHandler(func(_ context.Context, level model.EscalationLevel, _ *model.HITLRequest) error {
		seen = level
		return nil
	})

	req, _, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{"confidence": 0.1})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, model.LevelL3, seen)
	assert.Equal(t, model.RequestEscalation, req.Type)
}

func TestEscalationManager_MatchFallsBackToPolicyDefaultLevel(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}, DefaultLevel: model.LevelManager})

	var seen model.EscalationLevel
	mgr.RegisterLevelHandler(func(_ context.Context, level model.EscalationLevel, _ *model.HITLRequest) error {
		seen = level
		return nil
	})

	_, _, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{"confidence": 0.1})
	require.NoError(t, err)
	assert.Equal(t, model.LevelManager, seen)
}

func TestEscalationManager_LevelHandlerErrorDoesNotAbortEscalation(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}})

	mgr.RegisterLevelHandler(func(_ context.Context, _ model.EscalationLevel, _ *model.HITLRequest) error {
		return assert.AnError
	})

	req, _, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{"confidence": 0.1})
	require.NoError(t, err)
	require.NotNil(t, req)
}

func TestEscalationManager_ManualEscalateBypassesRules(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)

	req := mgr.ManualEscalate(context.Background(), "agent-1", "t1", "exec-1", model.PriorityCritical, "customer threatened to churn", "slack", "critical")
	require.NotNil(t, req)
	assert.Equal(t, model.PriorityCritical, req.Priority)
	assert.Equal(t, "customer threatened to churn", req.Summary)
}

type recordingChannel struct {
	name string
	sent []notify.Notification
}

func (c *recordingChannel) Name() string { return c.name }
func (c *recordingChannel) Send(_ context.Context, n notify.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func TestEscalationManager_MatchDispatchesNotificationAndEvent(t *testing.T) {
	q := New(config.DefaultQueueConfig())
	dispatcher := notify.NewDispatcher()
	ch := &recordingChannel{name: "slack"}
	dispatcher.Register(ch)
	bus := events.NewBus()

	var published []model.Event
	bus.SubscribeAll(func(evt model.Event) error {
		published = append(published, evt)
		return nil
	})

	mgr := NewEscalationManager(q, dispatcher, bus)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}})

	req, _, err := mgr.EvaluateAndEscalate(context.Background(), "agent-1", "t1", "exec-1", map[string]any{"confidence": 0.1})
	require.NoError(t, err)
	require.NotNil(t, req)

	require.Len(t, ch.sent, 1)
	assert.Equal(t, req.RequestID, ch.sent[0].RequestID)

	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeEscalationRaised, published[0].Type)
}

func TestEscalationManager_PlaybookHintBumpsPriorityBelowSuccessRateFloor(t *testing.T) {
	store := statestore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveGoldenPath(ctx, &model.GoldenPath{
		PathID: "fp-1", Fingerprint: "fp-1", Blueprint: "support",
		SuccessCount: 1, FailureCount: 4, // success rate 0.2, below the 0.3 floor
	}))

	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.SetPlaybookStore(store)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}})

	req, rule, err := mgr.EvaluateAndEscalate(ctx, "agent-1", "t1", "exec-1", map[string]any{
		"confidence": 0.5, "playbook_fingerprint": "fp-1",
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "low-confidence", rule.Name)
	assert.Equal(t, model.PriorityCritical, req.Priority, "high bumped one band to critical")
}

func TestEscalationManager_PlaybookHintNoOpAboveSuccessRateFloor(t *testing.T) {
	store := statestore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveGoldenPath(ctx, &model.GoldenPath{
		PathID: "fp-2", Fingerprint: "fp-2", Blueprint: "support",
		SuccessCount: 9, FailureCount: 1, // success rate 0.9, above the floor
	}))

	q := New(config.DefaultQueueConfig())
	mgr := NewEscalationManager(q, nil, nil)
	mgr.SetPlaybookStore(store)
	mgr.CreatePolicy(model.EscalationPolicy{TenantID: "t1", Rules: []model.EscalationRule{lowConfidenceRule()}})

	req, _, err := mgr.EvaluateAndEscalate(ctx, "agent-1", "t1", "exec-1", map[string]any{
		"confidence": 0.5, "playbook_fingerprint": "fp-2",
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, model.PriorityHigh, req.Priority)
}
