// Package blueprint provides the built-in Behavior implementations seeded
// into the registry at startup (SPEC_FULL.md §C's blueprint catalog), plus a
// small ToolChainBehavior base that the concrete blueprints embed.
//
// Grounded on original_source's core/base_agent.py plan/act/observe loop:
// a behavior walks a fixed or confidence-gated sequence of named tool
// calls, consulting AgentState.Context for accumulated observations,
// and finishes once the chain is exhausted or a step's output clears the
// configured confidence threshold.
package blueprint

import (
	"context"
	"fmt"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// ToolChainBehavior plans a fixed ordered sequence of tool invocations,
// finishing once the chain completes or a step's result carries
// sufficient confidence (>= ConfidenceThreshold) to stop early.
type ToolChainBehavior struct {
	Chain []string

	// EarlyFinishOn, when non-empty, names an output field on a step's
	// result that, when present and >= the agent's ConfidenceThreshold,
	// ends the loop before the chain is exhausted.
	EarlyFinishOn string
}

var _ model.Behavior = (*ToolChainBehavior)(nil)

func (b *ToolChainBehavior) Plan(_ context.Context, state *model.AgentState) (model.Action, error) {
	if state.Iteration >= len(b.Chain) {
		return model.Action{Kind: model.ActionFinish, Output: summarize(state)}, nil
	}
	return model.Action{
		Kind:  model.ActionTool,
		Name:  b.Chain[state.Iteration],
		Input: state.Input,
	}, nil
}

func (b *ToolChainBehavior) ExecuteStep(ctx context.Context, state *model.AgentState, action model.Action) (model.StepRecord, error) {
	started := startedAt()
	rec := model.StepRecord{Index: state.Iteration, Action: action, StartedAt: started}

	tool, ok := toolFor(state, action.Name)
	if !ok {
		rec.Err = fmt.Sprintf("unknown tool %q for blueprint %q", action.Name, state.Blueprint)
		rec.EndedAt = started
		return rec, fmt.Errorf("blueprint: %s", rec.Err)
	}

	out, err := tool.Invoke(ctx, action.Input)
	rec.EndedAt = started
	if err != nil {
		rec.Err = err.Error()
		return rec, err
	}
	rec.Result = out
	mergeContext(state, out)
	return rec, nil
}

func (b *ToolChainBehavior) ShouldContinue(state *model.AgentState) bool {
	if state.Iteration >= len(b.Chain) {
		return false
	}
	if b.EarlyFinishOn == "" || len(state.Steps) == 0 {
		return true
	}
	last := state.Steps[len(state.Steps)-1]
	if conf, ok := last.Result[b.EarlyFinishOn].(float64); ok {
		return conf < state.ConfidenceThreshold
	}
	return true
}

func toolFor(state *model.AgentState, name string) (model.Tool, bool) {
	// Tools are resolved by the executor against the owning blueprint and
	// copied into state.Context["__tools__"] when Execute builds the
	// AgentState; behaviors never
	// hold a registry reference of their own.
	tools, _ := state.Context["__tools__"].(map[string]model.Tool)
	t, ok := tools[name]
	return t, ok
}

func mergeContext(state *model.AgentState, out map[string]any) {
	if state.Context == nil {
		state.Context = map[string]any{}
	}
	for k, v := range out {
		state.Context[k] = v
	}
}

func summarize(state *model.AgentState) map[string]any {
	out := map[string]any{"steps_completed": len(state.Steps)}
	for k, v := range state.Context {
		if k == "__tools__" {
			continue
		}
		out[k] = v
	}
	return out
}

// startedAt returns the current time, used to stamp a step's StartedAt.
func startedAt() time.Time { return time.Now() }
