package agent

import (
	"time"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// Result is the record Execute/Resume return: a snapshot of the run at the
// point control returned to the caller, terminal or suspended (spec §4.1).
type Result struct {
	AgentID     string
	ExecutionID string
	Status      model.Status
	Output      map[string]any
	Steps       []model.StepRecord
	DurationMs  int64
	Error       string

	// HumanFeedbackRequest is set when Status is awaiting_human — the HITL
	// request id the caller (or a human reviewer via the HITL subsystem)
	// must resolve before the run can continue.
	HumanFeedbackRequest string
}

func resultFrom(state *model.AgentState) *Result {
	end := state.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	return &Result{
		AgentID:              state.AgentID,
		ExecutionID:          state.ExecutionID,
		Status:               state.Status,
		Output:               state.Output,
		Steps:                append([]model.StepRecord{}, state.Steps...),
		DurationMs:           end.Sub(state.StartedAt).Milliseconds(),
		Error:                state.FailureReason,
		HumanFeedbackRequest: state.HumanFeedbackRequest,
	}
}
