// Package model holds the domain types shared across the orchestration
// runtime's packages: blueprints and behaviors, agent state, tenants, HITL
// requests, and golden paths. Keeping these in one leaf package (grounded on
// the teacher's pkg/models DTO split) lets pkg/agent, pkg/hitl, pkg/tenant,
// and pkg/feedback depend on a common vocabulary without importing each
// other directly.
package model

import (
	"context"
	"time"
)

// ActionKind distinguishes the two things a Behavior can ask the executor to
// do on a given iteration.
type ActionKind string

const (
	ActionTool   ActionKind = "tool"
	ActionFinish ActionKind = "finish"
)

// Action is what Behavior.Plan decides to do next. Sum-typed over Kind: a
// "tool" action carries Name/Input, a "finish" action carries only Output.
type Action struct {
	Kind             ActionKind
	Name             string
	Input            map[string]any
	Output           map[string]any
	RequiresApproval bool
	ApprovalReason   string
}

// StepRecord is the immutable audit trail entry produced by one plan/act
// iteration.
type StepRecord struct {
	Index     int
	Action    Action
	Result    map[string]any
	Err       string
	StartedAt time.Time
	EndedAt   time.Time
}

// Tool is a capability a Behavior may invoke via Action.Name. The executor
// resolves Action.Name against the blueprint's Tools at execution time; it
// never calls out to a tool registry of its own.
type Tool struct {
	Name        string
	Description string
	Invoke      func(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Behavior implements a blueprint's plan/act loop contract (spec "Blueprint
// behavior interface"). Implementations are expected to be stateless and
// safe for concurrent use across agents sharing the same blueprint;
// per-agent state lives on AgentState, not on the Behavior.
type Behavior interface {
	// Plan decides the next action given the current state.
	Plan(ctx context.Context, state *AgentState) (Action, error)
	// ExecuteStep carries out a previously planned action and returns its
	// record. Called only for actions that did not require approval, or
	// after approval/feedback has been granted.
	ExecuteStep(ctx context.Context, state *AgentState, action Action) (StepRecord, error)
	// ShouldContinue reports whether the loop should keep iterating.
	ShouldContinue(state *AgentState) bool
}

// Blueprint is an immutable, registered template: a name, a Behavior
// implementation, and the tool set available to it.
type Blueprint struct {
	Name        string
	Description string
	Behavior    Behavior
	Tools       map[string]Tool
	Defaults    AgentConfig
}
