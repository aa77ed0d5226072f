package agent

import (
	"context"
	"log/slog"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// Hooks are lifecycle callbacks the Executor runs around each plan/act
// iteration (spec §4.1: pre_step, post_step, on_error, on_human_request,
// on_complete). Each slice runs in registration order; a callback that
// panics never aborts the run — the panic is recovered and logged and the
// loop continues, matching the teacher's "a subscriber error never blocks
// delivery to other subscribers" discipline from pkg/events/manager.go.
type Hooks struct {
	PreStep        []func(ctx context.Context, state *model.AgentState)
	PostStep       []func(ctx context.Context, state *model.AgentState, step model.StepRecord)
	OnError        []func(ctx context.Context, state *model.AgentState, err error)
	OnHumanRequest []func(ctx context.Context, state *model.AgentState, requestID string)
	OnComplete     []func(ctx context.Context, state *model.AgentState)
}

// OnPreStep registers a hook run immediately before Plan is invoked.
func (h *Hooks) OnPreStep(fn func(ctx context.Context, state *model.AgentState)) {
	h.PreStep = append(h.PreStep, fn)
}

// OnPostStep registers a hook run after a step record is appended.
func (h *Hooks) OnPostStep(fn func(ctx context.Context, state *model.AgentState, step model.StepRecord)) {
	h.PostStep = append(h.PostStep, fn)
}

// OnErrorHook registers a hook run whenever a step records an error.
func (h *Hooks) OnErrorHook(fn func(ctx context.Context, state *model.AgentState, err error)) {
	h.OnError = append(h.OnError, fn)
}

// OnHumanRequestHook registers a hook run when the loop suspends for human input.
func (h *Hooks) OnHumanRequestHook(fn func(ctx context.Context, state *model.AgentState, requestID string)) {
	h.OnHumanRequest = append(h.OnHumanRequest, fn)
}

// OnCompleteHook registers a hook run once the run reaches a terminal status.
func (h *Hooks) OnCompleteHook(fn func(ctx context.Context, state *model.AgentState)) {
	h.OnComplete = append(h.OnComplete, fn)
}

func runSafely(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("executor hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}

func (h *Hooks) runPreStep(ctx context.Context, logger *slog.Logger, state *model.AgentState) {
	for _, fn := range h.PreStep {
		fn := fn
		runSafely(logger, "pre_step", func() { fn(ctx, state) })
	}
}

func (h *Hooks) runPostStep(ctx context.Context, logger *slog.Logger, state *model.AgentState, step model.StepRecord) {
	for _, fn := range h.PostStep {
		fn := fn
		runSafely(logger, "post_step", func() { fn(ctx, state, step) })
	}
}

func (h *Hooks) runOnError(ctx context.Context, logger *slog.Logger, state *model.AgentState, err error) {
	for _, fn := range h.OnError {
		fn := fn
		runSafely(logger, "on_error", func() { fn(ctx, state, err) })
	}
}

func (h *Hooks) runOnHumanRequest(ctx context.Context, logger *slog.Logger, state *model.AgentState, requestID string) {
	for _, fn := range h.OnHumanRequest {
		fn := fn
		runSafely(logger, "on_human_request", func() { fn(ctx, state, requestID) })
	}
}

func (h *Hooks) runOnComplete(ctx context.Context, logger *slog.Logger, state *model.AgentState) {
	for _, fn := range h.OnComplete {
		fn := fn
		runSafely(logger, "on_complete", func() { fn(ctx, state) })
	}
}
