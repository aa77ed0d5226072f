package model

import (
	"context"
	"time"
)

// Status is the agent's position in its state machine (spec §4.1).
type Status string

// Cancellation and timeout are both recorded as StatusFailed with a
// FailureReason ("cancelled"/"timeout") rather than as distinct terminal
// statuses (spec §4.1, §8: "the state transitions to failed with reason
// timeout") — a dedicated status would let any status == "failed" filter
// (a retry dashboard, the retention sweep) silently miss these runs.
const (
	StatusPending       Status = "pending"
	StatusPlanning      Status = "planning"
	StatusActing        Status = "acting"
	StatusAwaitingHuman Status = "awaiting_human"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further transitions leave this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// validTransitions enumerates the state machine's allowed edges. An edge not
// listed here is rejected by anyone enforcing the graph (pkg/agent).
var validTransitions = map[Status][]Status{
	StatusPending:       {StatusPlanning, StatusFailed},
	StatusPlanning:      {StatusActing, StatusAwaitingHuman, StatusCompleted, StatusFailed},
	StatusActing:        {StatusPlanning, StatusAwaitingHuman, StatusCompleted, StatusFailed},
	StatusAwaitingHuman: {StatusPlanning, StatusFailed},
}

// CanTransition reports whether moving from `from` to `to` is a legal edge.
func CanTransition(from, to Status) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AgentConfig is the per-instance tunable overlay on top of a blueprint's
// defaults (spec §6 Defaults + per-agent overrides).
type AgentConfig struct {
	MaxIterations        int
	TimeoutSeconds        int
	ConfidenceThreshold  float64
	RequireHumanApproval bool
}

// AgentState is the mutable record an Executor owns for one running agent
// instance. It is passed by pointer into Behavior methods so a Behavior can
// read context accumulated so far without the executor exposing its
// internal bookkeeping.
type AgentState struct {
	AgentID     string
	ExecutionID string
	TenantID    string
	Blueprint   string

	Status   Status
	Input    map[string]any
	Context  map[string]any
	Steps    []StepRecord
	Iteration int

	HumanFeedbackRequest string
	Output                map[string]any
	FailureReason         string
	ConfidenceThreshold   float64

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	DeadlineAt  time.Time
}

// AgentRecord is the stable, registered identity of an agent instance — a
// blueprint bound to a tenant with a config overlay. It outlives any single
// execution; the Executor creates a fresh AgentState (keyed by a new
// ExecutionID) each time it runs the agent.
type AgentRecord struct {
	AgentID   string
	TenantID  string
	Blueprint string
	Config    AgentConfig
	Suspended bool
	CreatedAt time.Time
}

// HITLResponse is what a human reviewer supplies back to a suspended agent.
type HITLResponse struct {
	RequestID string
	Decision  string // approve | reject | edit | answer
	Payload   map[string]any
	Reviewer  string
	RespondedAt time.Time
}

// HITLBridge is the narrow view of the HITL subsystem an Executor needs: a
// way to suspend an agent on a human decision. Defined here (not in
// pkg/hitl) so pkg/agent and pkg/hitl can each depend on this package
// without depending on each other — pkg/hitl.Manager implements it, and the
// concrete value is wired into the Executor after both are constructed.
type HITLBridge interface {
	RequestApproval(ctx context.Context, req HITLRequestInput) (requestID string, err error)
}

// HITLRequestInput is what an Executor submits when an agent's plan wants
// human sign-off.
type HITLRequestInput struct {
	AgentID     string
	ExecutionID string
	TenantID    string
	Type        string
	Priority    string
	Summary     string
	Payload     map[string]any
}

// AgentResumer is the narrow view of the Executor a HITL Manager needs: a
// way to wake a suspended agent back up once a human has responded.
// pkg/agent.Executor implements it.
type AgentResumer interface {
	Resume(ctx context.Context, agentID string, response HITLResponse) error
	SetAwaitingHuman(ctx context.Context, agentID, requestID string) error
}
