package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/registry"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
	"github.com/coreflow-dev/agentcore/pkg/tenant"
)

func testConfig() *config.Config {
	return &config.Config{TenantTiers: config.DefaultTenantTiers()}
}

func newTestHarness(t *testing.T) (*Executor, *registry.Registry, *tenant.Manager, string, string) {
	t.Helper()
	reg := registry.New()
	tenants := tenant.New(testConfig())
	store := statestore.NewMemoryStore()
	bus := events.NewBus()

	tn, err := tenants.CreateTenant("acme", model.TierEnterprise)
	require.NoError(t, err)

	exec := NewExecutor(config.DefaultExecutorConfig(), reg, tenants, store, bus)
	return exec, reg, tenants, tn.TenantID, testLabel()
}

// testLabel is a throwaway unique-ish string, avoiding a google/uuid import
// in the test just for a label nothing asserts on.
func testLabel() string { return time.Now().Format("150405.000000000") }

// countingBehavior runs exactly N tool-less steps via its own ExecuteStep
// (no tool lookup), then finishes. A channel-based hook lets tests pause it
// mid-run to exercise approval/suspension paths.
type countingBehavior struct {
	steps            int
	requireApprovalAt int // -1 disables; else the iteration index that requests approval
	planErr          error
	stepErr          string
	sameActionErr    bool
}

func (b *countingBehavior) Plan(_ context.Context, state *model.AgentState) (model.Action, error) {
	if b.planErr != nil {
		return model.Action{}, b.planErr
	}
	_, alreadyResponded := state.Context["human_response"]
	if state.Iteration == b.requireApprovalAt && !alreadyResponded {
		return model.Action{Kind: model.ActionTool, Name: "sensitive", RequiresApproval: true, ApprovalReason: "needs sign-off"}, nil
	}
	return model.Action{Kind: model.ActionTool, Name: "step"}, nil
}

func (b *countingBehavior) ExecuteStep(_ context.Context, state *model.AgentState, action model.Action) (model.StepRecord, error) {
	rec := model.StepRecord{Action: action}
	if b.stepErr != "" && (b.sameActionErr || state.Iteration == 0) {
		rec.Err = b.stepErr
		return rec, nil
	}
	rec.Result = map[string]any{"ok": true}
	return rec, nil
}

func (b *countingBehavior) ShouldContinue(state *model.AgentState) bool {
	return state.Iteration < b.steps
}

func seedBlueprint(t *testing.T, reg *registry.Registry, name string, behavior model.Behavior, cfg model.AgentConfig) {
	t.Helper()
	require.NoError(t, reg.RegisterBlueprint(model.Blueprint{Name: name, Behavior: behavior, Defaults: cfg}))
}

func TestExecutor_ExecuteRunsToCompletion(t *testing.T) {
	exec, reg, _, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 3, requireApprovalAt: -1}, model.AgentConfig{})

	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, result.Status)
	assert.Len(t, result.Steps, 3)
}

func TestExecutor_ExecuteUnknownAgentReturnsNotFound(t *testing.T) {
	exec, _, _, _, _ := newTestHarness(t)
	_, err := exec.Execute(context.Background(), "does-not-exist", ExecuteOptions{})
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestExecutor_ExecuteSuspendedAgentFailsIllegalState(t *testing.T) {
	exec, reg, _, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 1}, model.AgentConfig{})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)
	require.NoError(t, reg.SetSuspended(rec.AgentID, true))

	_, err = exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	assert.True(t, apierr.Is(err, apierr.KindIllegalState))
}

func TestExecutor_ExecuteSecondCallWhileBusyReturnsErrBusy(t *testing.T) {
	exec, reg, _, tenantID, _ := newTestHarness(t)

	release := make(chan struct{})
	blocking := &blockingBehavior{release: release}
	seedBlueprint(t, reg, "bp", blocking, model.AgentConfig{})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	}()

	blocking.waitUntilEntered()
	_, err = exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
}

// blockingBehavior parks inside ExecuteStep until release is closed, letting
// a test observe per-agent lock contention deterministically.
type blockingBehavior struct {
	release chan struct{}
	mu      sync.Mutex
	entered bool
	notify  chan struct{}
}

func (b *blockingBehavior) waitUntilEntered() {
	for {
		b.mu.Lock()
		entered := b.entered
		b.mu.Unlock()
		if entered {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (b *blockingBehavior) Plan(_ context.Context, state *model.AgentState) (model.Action, error) {
	return model.Action{Kind: model.ActionTool, Name: "block"}, nil
}

func (b *blockingBehavior) ExecuteStep(_ context.Context, state *model.AgentState, action model.Action) (model.StepRecord, error) {
	b.mu.Lock()
	b.entered = true
	b.mu.Unlock()
	<-b.release
	return model.StepRecord{Action: action, Result: map[string]any{"ok": true}}, nil
}

func (b *blockingBehavior) ShouldContinue(state *model.AgentState) bool {
	return state.Iteration < 1
}

func TestExecutor_TwoConsecutiveSameActionErrorsAborts(t *testing.T) {
	exec, reg, _, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 5, requireApprovalAt: -1, stepErr: "boom", sameActionErr: true}, model.AgentConfig{})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindFatal))
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Len(t, result.Steps, 2)
}

type fakeHITLBridge struct {
	lastRequest model.HITLRequestInput
	requestID   string
	err         error
}

func (f *fakeHITLBridge) RequestApproval(_ context.Context, req model.HITLRequestInput) (string, error) {
	f.lastRequest = req
	if f.err != nil {
		return "", f.err
	}
	return f.requestID, nil
}

func TestExecutor_RequiresApprovalSuspendsAndReleasesWorker(t *testing.T) {
	exec, reg, tenants, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 3, requireApprovalAt: 0}, model.AgentConfig{RequireHumanApproval: true})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{RequireHumanApproval: true})
	require.NoError(t, err)

	bridge := &fakeHITLBridge{requestID: "req-1"}
	exec.SetHITLBridge(bridge)

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingHuman, result.Status)
	assert.Equal(t, "req-1", result.HumanFeedbackRequest)
	assert.Equal(t, rec.AgentID, bridge.lastRequest.AgentID)
	assert.Equal(t, "needs sign-off", bridge.lastRequest.Summary)

	tn, err := tenants.Get(tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, tn.ConcurrentExecutions) // still counted while awaiting_human
}

func TestExecutor_ResumeContinuesAndCompletes(t *testing.T) {
	exec, reg, tenants, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 2, requireApprovalAt: 0}, model.AgentConfig{RequireHumanApproval: true})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{RequireHumanApproval: true})
	require.NoError(t, err)

	bridge := &fakeHITLBridge{requestID: "req-1"}
	exec.SetHITLBridge(bridge)

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.NoError(t, err)
	require.Equal(t, model.StatusAwaitingHuman, result.Status)

	err = exec.Resume(context.Background(), rec.AgentID, model.HITLResponse{RequestID: "req-1", Decision: "approve"})
	require.NoError(t, err)

	tn, err := tenants.Get(tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, tn.ConcurrentExecutions)
}

func TestExecutor_SetAwaitingHumanSuspendsMidExecuteStep(t *testing.T) {
	exec, reg, _, tenantID, _ := newTestHarness(t)
	suspendingBehavior := &selfSuspendingBehavior{exec: exec}
	seedBlueprint(t, reg, "bp", suspendingBehavior, model.AgentConfig{})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)
	suspendingBehavior.agentID = rec.AgentID

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingHuman, result.Status)
	assert.Equal(t, "req-out-of-band", result.HumanFeedbackRequest)
}

// selfSuspendingBehavior models suspension point 2: a tool calls back into
// the executor's AgentResumer.SetAwaitingHuman directly, bypassing the
// requires_approval gate entirely.
type selfSuspendingBehavior struct {
	exec    *Executor
	agentID string
}

func (b *selfSuspendingBehavior) Plan(_ context.Context, _ *model.AgentState) (model.Action, error) {
	return model.Action{Kind: model.ActionTool, Name: "ask_human"}, nil
}

func (b *selfSuspendingBehavior) ExecuteStep(ctx context.Context, state *model.AgentState, action model.Action) (model.StepRecord, error) {
	_ = b.exec.SetAwaitingHuman(ctx, b.agentID, "req-out-of-band")
	return model.StepRecord{Action: action, Result: map[string]any{}}, nil
}

func (b *selfSuspendingBehavior) ShouldContinue(state *model.AgentState) bool {
	return state.Iteration < 1
}

func TestExecutor_CancelRunningExecutionFailsCooperatively(t *testing.T) {
	exec, reg, tenants, tenantID, _ := newTestHarness(t)
	release := make(chan struct{})
	blocking := &blockingBehavior{release: release}
	seedBlueprint(t, reg, "bp", blocking, model.AgentConfig{})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)

	done := make(chan *Result, 1)
	go func() {
		result, _ := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
		done <- result
	}()
	blocking.waitUntilEntered()

	require.NoError(t, exec.Cancel(context.Background(), rec.AgentID))
	close(release)

	result := <-done
	require.NotNil(t, result)
	assert.Equal(t, model.StatusFailed, result.Status)
	assert.Equal(t, "cancelled", result.Error)

	tn, err := tenants.Get(tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, tn.ConcurrentExecutions)
}

func TestExecutor_CancelSuspendedExecutionFailsDirectly(t *testing.T) {
	exec, reg, tenants, tenantID, _ := newTestHarness(t)
	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 3, requireApprovalAt: 0}, model.AgentConfig{RequireHumanApproval: true})
	rec, err := reg.CreateAgent(tenantID, "bp", model.AgentConfig{RequireHumanApproval: true})
	require.NoError(t, err)
	exec.SetHITLBridge(&fakeHITLBridge{requestID: "req-1"})

	result, err := exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{})
	require.NoError(t, err)
	require.Equal(t, model.StatusAwaitingHuman, result.Status)

	require.NoError(t, exec.Cancel(context.Background(), rec.AgentID))

	tn, err := tenants.Get(tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, tn.ConcurrentExecutions)

	// A lock left held by a cancelled suspension would make this hang.
	done := make(chan struct{})
	go func() {
		_, _ = exec.Execute(context.Background(), rec.AgentID, ExecuteOptions{Wait: true})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("execute did not return: per-agent lock was not released on cancel")
	}
}

func TestExecutor_QuotaExceededPropagates(t *testing.T) {
	reg := registry.New()
	tenants := tenant.New(testConfig())
	store := statestore.NewMemoryStore()
	exec := NewExecutor(config.DefaultExecutorConfig(), reg, tenants, store, nil)

	tn, err := tenants.CreateTenant("smallco", model.TierFree)
	require.NoError(t, err)

	seedBlueprint(t, reg, "bp", &countingBehavior{steps: 1}, model.AgentConfig{})
	rec1, err := reg.CreateAgent(tn.TenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)
	rec2, err := reg.CreateAgent(tn.TenantID, "bp", model.AgentConfig{})
	require.NoError(t, err)

	blocking := &blockingBehavior{release: make(chan struct{})}
	require.NoError(t, reg.RegisterBlueprint(model.Blueprint{Name: "blocking", Behavior: blocking}))
	rec1.Blueprint = "blocking"

	done := make(chan struct{})
	go func() {
		_, _ = exec.Execute(context.Background(), rec1.AgentID, ExecuteOptions{})
		close(done)
	}()
	blocking.waitUntilEntered()

	_, err = exec.Execute(context.Background(), rec2.AgentID, ExecuteOptions{})
	assert.True(t, apierr.Is(err, apierr.KindQuotaExceeded))

	close(blocking.release)
	<-done
}
