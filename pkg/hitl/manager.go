package hitl

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/feedback"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

var tracer = otel.Tracer("github.com/coreflow-dev/agentcore/pkg/hitl")

// FeedbackRecorder is the narrow view of the continuous-learning feedback
// loop a Manager needs once a human decision resolves a request (spec
// §4.5 step 4: "forwards the outcome to the FeedbackCollector"). A nil
// recorder is a legitimate "feedback loop not wired" state.
type FeedbackRecorder interface {
	RecordSuccess(ctx context.Context, trace feedback.Trace, approvedBy, tenantID string) (*model.GoldenPath, error)
	RecordFailure(ctx context.Context, trace feedback.Trace, reason, tenantID string) (*model.GoldenPath, error)
	RecordCorrection(ctx context.Context, originalTraceID, correctedOutput, correctedBy, tenantID, blueprint, category string) error
}

// traceFromRequest rebuilds the feedback.Trace a resolved HITL request
// represents from whatever the requesting agent and the responding human
// attached to the request/response payloads.
func traceFromRequest(req *model.HITLRequest, response model.HITLResponse) feedback.Trace {
	trace := feedback.Trace{InputQuery: req.Summary}
	if bp, ok := req.Payload["blueprint"].(string); ok {
		trace.Blueprint = bp
	}
	if cat, ok := req.Payload["category"].(string); ok {
		trace.Category = cat
	}
	if res, ok := response.Payload["resolution"].(string); ok {
		trace.Resolution = res
	} else if res, ok := response.Payload["corrected_output"].(string); ok {
		trace.Resolution = res
	}
	if conf, ok := response.Payload["confidence"].(float64); ok {
		trace.Confidence = conf
	}
	return trace
}

// auditEventForDecision maps a human decision to the audit event name step
// 3 of Respond must emit (spec §4.5).
func auditEventForDecision(decision string) string {
	switch decision {
	case "approve":
		return "HumanApprovalGranted"
	case "reject":
		return "HumanApprovalDenied"
	default:
		return "HumanFeedbackProvided"
	}
}

// Manager couples the HITL queue to agent suspension: it implements
// model.HITLBridge for the Executor side and depends on model.AgentResumer
// to wake a suspended agent back up. Grounded on
// original_source/hitl/manager.py's HITLManager.
type Manager struct {
	mu         sync.Mutex
	queue      *Queue
	bus        *events.Bus
	feedback   FeedbackRecorder
	executor   model.AgentResumer
	reviewers  map[string]*model.Reviewer
	assignedBy map[string]string // request_id -> reviewer_id, for workload decrement on respond
}

var _ model.HITLBridge = (*Manager)(nil)

// NewManager wires a Queue and event Bus together. Executor and
// FeedbackRecorder are optional and set later via SetExecutor/SetFeedbackRecorder,
// since both typically depend on the Manager in turn (setter injection
// breaks the cycle).
func NewManager(queue *Queue, bus *events.Bus) *Manager {
	return &Manager{
		queue:      queue,
		bus:        bus,
		reviewers:  map[string]*model.Reviewer{},
		assignedBy: map[string]string{},
	}
}

// SetExecutor wires the Executor side of the resume bridge.
func (m *Manager) SetExecutor(executor model.AgentResumer) {
	m.executor = executor
}

// SetFeedbackRecorder wires the continuous-learning feedback loop.
func (m *Manager) SetFeedbackRecorder(fr FeedbackRecorder) {
	m.feedback = fr
}

// RegisterReviewer adds or replaces a reviewer in the directory.
func (m *Manager) RegisterReviewer(reviewer model.Reviewer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := reviewer
	m.reviewers[reviewer.ReviewerID] = &cp
}

// SetReviewerAvailability toggles a reviewer's availability for auto-assignment.
func (m *Manager) SetReviewerAvailability(reviewerID string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reviewer, ok := m.reviewers[reviewerID]
	if !ok {
		return apierr.NotFound("reviewer", reviewerID)
	}
	reviewer.Available = available
	return nil
}

// RequestApproval implements model.HITLBridge: it enqueues an approval
// request, suspends the agent, and attempts auto-assignment.
func (m *Manager) RequestApproval(ctx context.Context, req model.HITLRequestInput) (string, error) {
	return m.request(ctx, model.RequestApproval, req)
}

// RequestFeedback enqueues a feedback request and suspends the agent.
func (m *Manager) RequestFeedback(ctx context.Context, req model.HITLRequestInput) (string, error) {
	return m.request(ctx, model.RequestFeedback, req)
}

// RequestReview enqueues a review request and suspends the agent.
func (m *Manager) RequestReview(ctx context.Context, req model.HITLRequestInput) (string, error) {
	return m.request(ctx, model.RequestReview, req)
}

func (m *Manager) request(ctx context.Context, kind model.RequestType, in model.HITLRequestInput) (string, error) {
	priority := model.Priority(in.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}

	created := m.queue.Enqueue(ctx, EnqueueInput{
		AgentID:     in.AgentID,
		ExecutionID: in.ExecutionID,
		TenantID:    in.TenantID,
		Type:        kind,
		Priority:    priority,
		Summary:     in.Summary,
		Payload:     in.Payload,
	})

	if m.executor != nil {
		if err := m.executor.SetAwaitingHuman(ctx, in.AgentID, created.RequestID); err != nil {
			return "", apierr.Transient("hitl_manager", in.AgentID, err)
		}
	}

	if m.bus != nil {
		m.bus.Publish(model.Event{
			Type:     events.EventTypeHITLCreated,
			AgentID:  in.AgentID,
			TenantID: in.TenantID,
			Payload:  map[string]any{"request_id": created.RequestID, "type": string(kind), "priority": string(priority)},
		})
	}

	if priority == model.PriorityCritical || priority == model.PriorityHigh {
		m.tryAutoAssign(ctx, created)
	}

	return created.RequestID, nil
}

// tryAutoAssign assigns a newly created critical/high request to the
// least-loaded available reviewer in the same tenant whose workload is
// below capacity. Failure to find one leaves the request pending.
func (m *Manager) tryAutoAssign(ctx context.Context, req *model.HITLRequest) {
	m.mu.Lock()
	var candidates []*model.Reviewer
	for _, reviewer := range m.reviewers {
		if !reviewer.Available || reviewer.Workload >= reviewer.MaxWorkload {
			continue
		}
		if reviewer.TenantID != "" && reviewer.TenantID != req.TenantID {
			continue
		}
		candidates = append(candidates, reviewer)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Workload < candidates[j].Workload })

	if len(candidates) == 0 {
		m.mu.Unlock()
		return
	}
	chosen := candidates[0]
	chosen.Workload++
	m.assignedBy[req.RequestID] = chosen.ReviewerID
	m.mu.Unlock()

	if err := m.queue.Assign(req.RequestID, chosen.ReviewerID); err != nil {
		m.mu.Lock()
		chosen.Workload--
		if chosen.Workload < 0 {
			chosen.Workload = 0
		}
		delete(m.assignedBy, req.RequestID)
		m.mu.Unlock()
		return
	}

	if m.bus != nil {
		m.bus.Publish(model.Event{
			Type:     events.EventTypeHITLAssigned,
			AgentID:  req.AgentID,
			TenantID: req.TenantID,
			Payload:  map[string]any{"request_id": req.RequestID, "reviewer_id": chosen.ReviewerID},
		})
	}
}

// Respond runs the five-step resolution flow from spec §4.5: write the
// response, decrement the assigned reviewer's workload, emit a
// decision-keyed audit event, forward the outcome to the feedback loop,
// and resume the originating agent if it is still awaiting_human.
func (m *Manager) Respond(ctx context.Context, requestID string, response model.HITLResponse) (*model.HITLRequest, error) {
	ctx, span := tracer.Start(ctx, "Respond", trace.WithAttributes(
		attribute.String("hitl.request_id", requestID),
		attribute.String("hitl.decision", response.Decision),
	))
	defer span.End()

	req, err := m.queue.Respond(requestID, response)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	m.mu.Lock()
	if reviewerID, ok := m.assignedBy[requestID]; ok {
		if reviewer, ok := m.reviewers[reviewerID]; ok {
			reviewer.Workload--
			if reviewer.Workload < 0 {
				reviewer.Workload = 0
			}
		}
		delete(m.assignedBy, requestID)
	}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(model.Event{
			Type:     events.EventTypeHITLResolved,
			AgentID:  req.AgentID,
			TenantID: req.TenantID,
			Payload: map[string]any{
				"request_id":  requestID,
				"audit_event": auditEventForDecision(response.Decision),
				"decision":    response.Decision,
			},
		})
	}

	if m.feedback != nil {
		m.forwardToFeedbackLoop(ctx, req, response)
	}

	// Step 5: only resume if the agent is still awaiting_human. That check
	// is the Executor's own state-machine guard (model.AgentResumer keeps
	// no status query, so Resume on an agent no longer awaiting_human is a
	// no-op there, not here).
	if m.executor != nil {
		if err := m.executor.Resume(ctx, req.AgentID, response); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return req, apierr.Transient("hitl_manager", req.AgentID, err)
		}
	}

	return req, nil
}

// forwardToFeedbackLoop implements step 4 of Respond (spec §4.5): every
// decision is forwarded to the continuous-learning feedback loop, not just
// edits — approve/reject become RecordSuccess/RecordFailure signals on the
// golden path the request's run context named, and edit keeps recording a
// correction.
func (m *Manager) forwardToFeedbackLoop(ctx context.Context, req *model.HITLRequest, response model.HITLResponse) {
	logger := slog.Default().With("component", "hitl-manager")
	switch response.Decision {
	case "approve":
		trace := traceFromRequest(req, response)
		if _, err := m.feedback.RecordSuccess(ctx, trace, response.Reviewer, req.TenantID); err != nil {
			logger.Error("feedback recording failed", "request_id", req.RequestID, "error", err)
		}
	case "reject":
		trace := traceFromRequest(req, response)
		if _, err := m.feedback.RecordFailure(ctx, trace, "hitl_rejected", req.TenantID); err != nil {
			logger.Error("feedback recording failed", "request_id", req.RequestID, "error", err)
		}
	case "edit":
		corrected, ok := response.Payload["corrected_output"].(string)
		if !ok {
			return
		}
		blueprint, _ := req.Payload["blueprint"].(string)
		category, _ := req.Payload["category"].(string)
		if err := m.feedback.RecordCorrection(ctx, req.ExecutionID, corrected, response.Reviewer, req.TenantID, blueprint, category); err != nil {
			logger.Error("feedback recording failed", "request_id", req.RequestID, "error", err)
		}
	}
}
