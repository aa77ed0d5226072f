// Package agent implements the plan/act loop scheduler described in spec
// §4.1: the Executor drives a blueprint's Behavior through repeated
// Plan/ExecuteStep iterations, enforces per-process concurrency and
// per-tenant quota admission, and suspends/resumes execution across human
// review points.
//
// Grounded on the teacher's pkg/queue/{pool,worker,executor}.go: the
// process-wide semaphore + per-key cancel-func registry from pool.go, the
// timeout-context/terminal-status-under-background-context idiom from
// worker.go, and the resolve-config/build-context/invoke/handle-outcome
// shape of executor.go's RealSessionExecutor.Execute — reworked from a
// polling multi-stage chain runner into a directly-invoked single-agent
// loop, since this domain has no queue to poll.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/registry"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
	"github.com/coreflow-dev/agentcore/pkg/tenant"
)

// ErrBusy is returned by Execute when a second execution is requested for an
// agent that already has one in flight and the caller did not opt into
// waiting (spec §5: "blocks or returns Busy per caller policy"). Following
// the teacher's pkg/queue/types.go sentinel idiom (ErrNoSessionsAvailable,
// ErrAtCapacity) rather than stretching apierr.Kind — none of its seven
// kinds names lock contention, and every one of them is a fixed, never-true-
// again disposition, whereas Busy resolves itself the moment the other
// execution finishes.
var ErrBusy = errors.New("agent: execution already in flight for this agent")

var tracer = otel.Tracer("github.com/coreflow-dev/agentcore/pkg/agent")

// ExecuteOptions carries the per-call overrides Execute accepts.
type ExecuteOptions struct {
	Input          map[string]any
	TimeoutSeconds int
	// Wait, when true, blocks for the per-agent lock instead of returning
	// ErrBusy immediately.
	Wait bool
}

// Executor is the process-wide scheduler for agent executions. Safe for
// concurrent use; construct one per process via NewExecutor.
type Executor struct {
	cfg      *config.ExecutorConfig
	registry *registry.Registry
	tenants  *tenant.Manager
	store    statestore.Store
	bus      *events.Bus
	hitl     model.HITLBridge
	hooks    Hooks
	logger   *slog.Logger

	sem chan struct{}

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	cancels  map[string]context.CancelFunc
	inFlight map[string]*model.AgentState // keyed by agent_id; present while running OR awaiting_human
}

var _ model.AgentResumer = (*Executor)(nil)

// NewExecutor constructs an Executor. tenants and store are required;
// bus and a later SetHITLBridge call are optional (audit events and human
// suspension are both no-ops without them).
func NewExecutor(cfg *config.ExecutorConfig, reg *registry.Registry, tenants *tenant.Manager, store statestore.Store, bus *events.Bus) *Executor {
	if cfg == nil {
		cfg = config.DefaultExecutorConfig()
	}
	return &Executor{
		cfg:      cfg,
		registry: reg,
		tenants:  tenants,
		store:    store,
		bus:      bus,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		locks:    map[string]*sync.Mutex{},
		cancels:  map[string]context.CancelFunc{},
		inFlight: map[string]*model.AgentState{},
		logger:   slog.Default().With("component", "executor"),
	}
}

// SetHITLBridge wires the HITL subsystem's suspend side. Setter injection
// breaks the cycle: hitl.Manager needs an AgentResumer (this Executor) and
// the Executor needs a model.HITLBridge (that same Manager).
func (e *Executor) SetHITLBridge(bridge model.HITLBridge) {
	e.hitl = bridge
}

// Hooks returns the lifecycle hook set for registration (spec §4.1:
// pre_step, post_step, on_error, on_human_request, on_complete).
func (e *Executor) Hooks() *Hooks {
	return &e.hooks
}

func (e *Executor) lockFor(agentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[agentID] = l
	}
	return l
}

func (e *Executor) trackInFlight(agentID string, state *model.AgentState, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight[agentID] = state
	e.cancels[agentID] = cancel
}

func (e *Executor) untrackInFlight(agentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, agentID)
	delete(e.cancels, agentID)
}

// Execute runs a fresh execution of the named agent instance to completion
// or suspension. NotFound, IllegalState (suspended agent), QuotaExceeded,
// and ErrBusy are all returned directly so callers can disposition on them
// without string-matching.
func (e *Executor) Execute(ctx context.Context, agentID string, opts ExecuteOptions) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Execute", trace.WithAttributes(attribute.String("agent.id", agentID)))
	defer span.End()

	rec, err := e.registry.GetAgent(agentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if rec.Suspended {
		err := apierr.IllegalState("executor", agentID, "agent is suspended")
		span.RecordError(err)
		return nil, err
	}

	lock := e.lockFor(agentID)
	if opts.Wait {
		lock.Lock()
	} else if !lock.TryLock() {
		span.RecordError(ErrBusy)
		return nil, ErrBusy
	}

	if err := e.tenants.AdmitExecution(rec.TenantID); err != nil {
		lock.Unlock()
		span.RecordError(err)
		return nil, err
	}

	bp, err := e.registry.GetBlueprint(rec.Blueprint)
	if err != nil {
		e.tenants.ReleaseExecution(rec.TenantID)
		lock.Unlock()
		span.RecordError(err)
		return nil, err
	}

	timeoutSeconds := opts.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = rec.Config.TimeoutSeconds
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = e.cfg.DefaultTimeoutSeconds
	}

	now := time.Now()
	state := &model.AgentState{
		AgentID:             agentID,
		ExecutionID:         uuid.NewString(),
		TenantID:            rec.TenantID,
		Blueprint:           rec.Blueprint,
		Status:              model.StatusPending,
		Input:               opts.Input,
		Context:             map[string]any{"__tools__": bp.Tools},
		ConfidenceThreshold: rec.Config.ConfidenceThreshold,
		CreatedAt:           now,
		StartedAt:           now,
		DeadlineAt:          now.Add(time.Duration(timeoutSeconds) * time.Second),
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.trackInFlight(agentID, state, cancel)

	result, suspended := e.runLoop(runCtx, &bp, rec, state)
	span.SetAttributes(attribute.String("agent.status", string(state.Status)))
	resultErr := terminalError(state)
	if resultErr != nil {
		span.SetStatus(codes.Error, state.FailureReason)
		span.RecordError(resultErr)
	}

	if suspended {
		return result, nil
	}

	e.tenants.ReleaseExecution(rec.TenantID)
	e.untrackInFlight(agentID)
	lock.Unlock()
	return result, resultErr
}

// terminalError converts a runLoop-terminated state into the Timeout/
// ExecutionFailed disposition spec §4.1 documents for Execute alongside the
// pre-loop NotFound/QuotaExceeded returns: Timeout when the run's deadline
// elapsed, a Fatal (ExecutionFailed) error for every other terminal failure
// reason, and nil for a successful or still-suspended run.
func terminalError(state *model.AgentState) error {
	if state.Status != model.StatusFailed {
		return nil
	}
	if state.FailureReason == "timeout" {
		return apierr.Timeout("executor", state.AgentID, "execution deadline exceeded")
	}
	return apierr.Fatal("executor", state.AgentID, errors.New(state.FailureReason))
}

// Resume continues a suspended execution with a human's response. Valid
// only from awaiting_human; arriving for an agent that is no longer
// suspended (already resumed, cancelled, or unknown) is a deliberate no-op
// (DESIGN.md's resolved Open Question 3a) rather than an error, since
// hitl.Manager.Respond cannot itself tell whether a resume raced a timeout.
func (e *Executor) Resume(ctx context.Context, agentID string, response model.HITLResponse) error {
	ctx, span := tracer.Start(ctx, "Resume", trace.WithAttributes(attribute.String("agent.id", agentID)))
	defer span.End()

	e.mu.Lock()
	state, ok := e.inFlight[agentID]
	e.mu.Unlock()
	if !ok || state.Status != model.StatusAwaitingHuman {
		return nil
	}

	rec, err := e.registry.GetAgent(agentID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	bp, err := e.registry.GetBlueprint(rec.Blueprint)
	if err != nil {
		span.RecordError(err)
		return err
	}

	state.HumanFeedbackRequest = ""
	if state.Context == nil {
		state.Context = map[string]any{}
	}
	state.Context["human_response"] = response
	state.Status = model.StatusPlanning

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[agentID] = cancel
	e.mu.Unlock()

	_, suspended := e.runLoop(runCtx, &bp, rec, state)
	span.SetAttributes(attribute.String("agent.status", string(state.Status)))
	resultErr := terminalError(state)
	if resultErr != nil {
		span.RecordError(resultErr)
	}

	if suspended {
		return nil
	}

	e.tenants.ReleaseExecution(rec.TenantID)
	e.untrackInFlight(agentID)
	e.lockFor(agentID).Unlock()
	return resultErr
}

// SetAwaitingHuman implements model.AgentResumer: it is invoked by the HITL
// subsystem when an agent calls RequestFeedback/RequestReview directly
// (suspension point 2 of spec §5), out of band from this package's own
// requires_approval gating. It mutates the same *model.AgentState the
// in-flight loop is holding, which notices the status change the moment the
// current ExecuteStep call returns.
func (e *Executor) SetAwaitingHuman(_ context.Context, agentID, requestID string) error {
	e.mu.Lock()
	state, ok := e.inFlight[agentID]
	e.mu.Unlock()
	if !ok {
		return apierr.NotFound("executor", agentID)
	}
	state.Status = model.StatusAwaitingHuman
	state.HumanFeedbackRequest = requestID
	return nil
}

// Cancel cooperatively stops a running execution, or directly fails a
// suspended one (spec §5: "On cancellation, the mutex is released and the
// state transitions to failed.").
func (e *Executor) Cancel(ctx context.Context, agentID string) error {
	e.mu.Lock()
	state, inFlight := e.inFlight[agentID]
	cancel, hasCancel := e.cancels[agentID]
	e.mu.Unlock()

	if !inFlight {
		return apierr.NotFound("executor", agentID)
	}

	if state.Status != model.StatusAwaitingHuman {
		if hasCancel {
			cancel()
		}
		return nil
	}

	state.Status = model.StatusFailed
	state.FailureReason = "cancelled"
	state.CompletedAt = time.Now()
	e.finalize(ctx, state)

	if rec, err := e.registry.GetAgent(agentID); err == nil {
		e.tenants.ReleaseExecution(rec.TenantID)
	}
	e.untrackInFlight(agentID)
	e.lockFor(agentID).Unlock()
	return nil
}

// runLoop drives Plan/ExecuteStep iterations until the run either reaches a
// terminal status or suspends awaiting human input. It always acquires and
// releases the process-wide semaphore itself; the caller is only
// responsible for the per-agent lock and tenant admission.
func (e *Executor) runLoop(ctx context.Context, bp *model.Blueprint, rec *model.AgentRecord, state *model.AgentState) (*Result, bool) {
	acquired := false
	select {
	case e.sem <- struct{}{}:
		acquired = true
	case <-ctx.Done():
		state.Status = model.StatusFailed
		state.FailureReason = "cancelled"
		state.CompletedAt = time.Now()
		e.finalize(ctx, state)
		return resultFrom(state), false
	}
	defer func() {
		if acquired {
			<-e.sem
		}
	}()

	logger := e.logger.With("agent_id", state.AgentID, "execution_id", state.ExecutionID)
	var lastErrorAction string

	for {
		if err := ctx.Err(); err != nil {
			state.Status = model.StatusFailed
			state.FailureReason = "cancelled"
			break
		}
		if time.Now().After(state.DeadlineAt) {
			state.Status = model.StatusFailed
			state.FailureReason = "timeout"
			break
		}
		if rec.Config.MaxIterations > 0 && state.Iteration >= rec.Config.MaxIterations {
			state.Status = model.StatusCompleted
			break
		}
		if !bp.Behavior.ShouldContinue(state) {
			state.Status = model.StatusCompleted
			break
		}

		e.hooks.runPreStep(ctx, logger, state)

		// stepCtx gives the in-flight Plan/ExecuteStep call a short window
		// past the run's own deadline to unwind cooperatively (spec §4.1's
		// CancelGracePeriod) before the *next* loop check forces a timeout;
		// it never extends how long the run as a whole is allowed to take.
		stepCtx, stepCancel := context.WithDeadline(ctx, state.DeadlineAt.Add(e.cfg.CancelGracePeriod))
		defer stepCancel()

		state.Status = model.StatusPlanning
		action, err := bp.Behavior.Plan(stepCtx, state)
		if err != nil {
			state.Status = model.StatusFailed
			state.FailureReason = fmt.Sprintf("plan error: %v", err)
			e.hooks.runOnError(ctx, logger, state, err)
			break
		}

		if action.Kind == model.ActionFinish {
			state.Status = model.StatusCompleted
			state.Output = action.Output
			if state.Output == nil {
				state.Output = summarizeFinalContext(state)
			}
			break
		}

		if action.RequiresApproval && rec.Config.RequireHumanApproval {
			if e.hitl == nil {
				state.Status = model.StatusFailed
				state.FailureReason = "requires_approval but no HITL bridge is configured"
				break
			}
			requestID, err := e.hitl.RequestApproval(ctx, model.HITLRequestInput{
				AgentID:     state.AgentID,
				ExecutionID: state.ExecutionID,
				TenantID:    state.TenantID,
				Type:        string(model.RequestApproval),
				Priority:    "medium",
				Summary:     action.ApprovalReason,
				Payload:     action.Input,
			})
			if err != nil {
				state.Status = model.StatusFailed
				state.FailureReason = fmt.Sprintf("approval request failed: %v", err)
				e.hooks.runOnError(ctx, logger, state, err)
				break
			}
			state.Status = model.StatusAwaitingHuman
			state.HumanFeedbackRequest = requestID
			e.hooks.runOnHumanRequest(ctx, logger, state, requestID)
			break
		}

		state.Status = model.StatusActing
		step, stepErr := bp.Behavior.ExecuteStep(stepCtx, state, action)
		step.Index = state.Iteration
		state.Steps = append(state.Steps, step)
		state.Iteration++
		e.publishStep(state, step)
		e.hooks.runPostStep(ctx, logger, state, step)

		// Suspension points 2/3: a tool called the HITL bridge directly
		// (SetAwaitingHuman landed on this same *AgentState mid-ExecuteStep)
		// or returned a terminal awaiting_human sentinel in its result.
		if requestID, ok := step.Result["awaiting_human_request_id"].(string); ok && requestID != "" {
			state.Status = model.StatusAwaitingHuman
			state.HumanFeedbackRequest = requestID
		}
		if state.Status == model.StatusAwaitingHuman {
			e.hooks.runOnHumanRequest(ctx, logger, state, state.HumanFeedbackRequest)
			break
		}

		if step.Err != "" {
			stepCause := stepErr
			if stepCause == nil {
				stepCause = errors.New(step.Err)
			}
			e.hooks.runOnError(ctx, logger, state, stepCause)
			if action.Name != "" && action.Name == lastErrorAction {
				state.Status = model.StatusFailed
				state.FailureReason = "repeated error on action " + action.Name
				break
			}
			lastErrorAction = action.Name
		} else {
			lastErrorAction = ""
		}
	}

	if state.Status == model.StatusAwaitingHuman {
		if e.store != nil {
			if err := e.store.SaveAgentState(ctx, state); err != nil {
				logger.Error("failed to persist suspended agent state", "error", err)
			}
		}
		e.publishStatus(state)
		return resultFrom(state), true
	}

	if !state.Status.Terminal() {
		state.Status = model.StatusCompleted
	}
	if state.Status == model.StatusCompleted && state.Output == nil {
		state.Output = summarizeFinalContext(state)
	}
	state.CompletedAt = time.Now()
	e.finalize(ctx, state)
	return resultFrom(state), false
}

// finalize persists and publishes a terminal transition using a
// cancellation-detached context, matching the teacher's worker.go
// discipline of updating terminal status via context.Background() since the
// run's own ctx may already be the thing that just got cancelled.
func (e *Executor) finalize(ctx context.Context, state *model.AgentState) {
	bgCtx := context.WithoutCancel(ctx)
	if e.store != nil {
		if err := e.store.SaveAgentState(bgCtx, state); err != nil {
			e.logger.Error("failed to persist terminal agent state", "agent_id", state.AgentID, "error", err)
		}
	}
	if err := e.registry.PersistState(bgCtx, state); err != nil {
		e.logger.Error("state persistence hook failed", "agent_id", state.AgentID, "error", err)
	}
	e.publishStatus(state)
	e.hooks.runOnComplete(bgCtx, e.logger, state)
}

func (e *Executor) publishStatus(state *model.AgentState) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(model.Event{
		Type:     events.EventTypeAgentStatus,
		AgentID:  state.AgentID,
		TenantID: state.TenantID,
		Payload: map[string]any{
			"execution_id": state.ExecutionID,
			"status":       string(state.Status),
			"iteration":    state.Iteration,
			"reason":       state.FailureReason,
		},
	})
}

func (e *Executor) publishStep(state *model.AgentState, step model.StepRecord) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(model.Event{
		Type:     events.EventTypeAgentStep,
		AgentID:  state.AgentID,
		TenantID: state.TenantID,
		Payload: map[string]any{
			"execution_id": state.ExecutionID,
			"index":        step.Index,
			"action":       step.Action.Name,
			"error":        step.Err,
		},
	})
}

func summarizeFinalContext(state *model.AgentState) map[string]any {
	out := map[string]any{"steps_completed": len(state.Steps)}
	for k, v := range state.Context {
		if k == "__tools__" || k == "human_response" {
			continue
		}
		out[k] = v
	}
	return out
}
