package hitl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/events"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/notify"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

// playbookLowSuccessRate is the GoldenPath success-rate floor below which a
// matching playbook hint bumps the resulting request's priority one band.
const playbookLowSuccessRate = 0.3

// playbookHintKey is the runCtx key a caller sets to the fingerprint of the
// golden path it believes applies to the current run. Present only when the
// caller has one to offer; its absence is not an error.
const playbookHintKey = "playbook_fingerprint"

// LevelHandler runs after a rule match raises a HITL request, in
// registration order, so a deployment can attach its own per-level side
// effects (paging a rotation, opening a ticket) to the Escalation Engine
// without it knowing about them (spec §4.4's "runs registered level
// handlers in order"). A handler error is logged but never aborts
// escalation.
type LevelHandler func(ctx context.Context, level model.EscalationLevel, req *model.HITLRequest) error

// EscalationManager holds one EscalationPolicy per tenant and evaluates it
// against a running agent's context to decide whether to raise a HITL
// request (spec §4.4). Grounded on original_source's EscalationEngine,
// which keeps a single ordered rule list per tenant and stops at the first
// match.
type EscalationManager struct {
	mu         sync.RWMutex
	policies   map[string]*model.EscalationPolicy
	queue      *Queue
	dispatcher *notify.Dispatcher
	bus        *events.Bus
	store      statestore.Store
	handlers   []LevelHandler
	logger     *slog.Logger
}

// NewEscalationManager wires a Queue, notification Dispatcher and event Bus
// together. dispatcher and bus may be nil; both are optional collaborators.
func NewEscalationManager(queue *Queue, dispatcher *notify.Dispatcher, bus *events.Bus) *EscalationManager {
	return &EscalationManager{
		policies:   map[string]*model.EscalationPolicy{},
		queue:      queue,
		dispatcher: dispatcher,
		bus:        bus,
		logger:     slog.Default().With("component", "escalation-manager"),
	}
}

// RegisterLevelHandler adds h to the ordered list of handlers run after
// every rule match.
func (m *EscalationManager) RegisterLevelHandler(h LevelHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// SetPlaybookStore wires the GoldenPath lookup used by the playbook-informed
// priority bump. Optional: with no store set, EvaluateAndEscalate skips the
// bump and behaves exactly as base rule matching describes.
func (m *EscalationManager) SetPlaybookStore(store statestore.Store) {
	m.store = store
}

// CreatePolicy registers or replaces the escalation policy for a tenant.
func (m *EscalationManager) CreatePolicy(policy model.EscalationPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := policy
	m.policies[policy.TenantID] = &cp
}

// GetPolicy returns the policy registered for tenantID, if any.
func (m *EscalationManager) GetPolicy(tenantID string) (*model.EscalationPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	policy, ok := m.policies[tenantID]
	if !ok {
		return nil, apierr.NotFound("escalation_policy", tenantID)
	}
	cp := *policy
	return &cp, nil
}

// EvaluateAndEscalate checks the tenant's policy, in rule order, against
// runCtx; the first matching rule creates a HITL request at the rule's
// priority and fans a notification out over its channel. Returns the
// created request, or nil if no rule in the policy matched (or the tenant
// has no policy registered, which is not an error — escalation is opt-in).
func (m *EscalationManager) EvaluateAndEscalate(ctx context.Context, agentID, tenantID, executionID string, runCtx map[string]any) (*model.HITLRequest, *model.EscalationRule, error) {
	ctx, span := tracer.Start(ctx, "EvaluateAndEscalate", trace.WithAttributes(
		attribute.String("agent.id", agentID),
		attribute.String("tenant.id", tenantID),
	))
	defer span.End()

	m.mu.RLock()
	policy, ok := m.policies[tenantID]
	m.mu.RUnlock()
	if !ok {
		span.SetAttributes(attribute.Bool("escalation.matched", false))
		return nil, nil, nil
	}

	for _, rule := range policy.Rules {
		if !rule.Matches(runCtx) {
			continue
		}
		if bumped, ok := m.playbookBump(ctx, runCtx, rule.Priority); ok {
			rule.Priority = bumped
		}
		level := rule.Level
		if level == "" {
			level = policy.DefaultLevel
		}
		req := m.raise(ctx, agentID, tenantID, executionID, rule, level, fmt.Sprintf("escalation rule %q matched", rule.Name), policy.NotificationChannels)
		m.runLevelHandlers(ctx, level, req)
		span.SetAttributes(
			attribute.Bool("escalation.matched", true),
			attribute.String("escalation.rule", rule.Name),
			attribute.String("escalation.priority", string(rule.Priority)),
			attribute.String("escalation.level", string(level)),
		)
		return req, &rule, nil
	}
	span.SetAttributes(attribute.Bool("escalation.matched", false))
	return nil, nil, nil
}

// runLevelHandlers invokes every registered handler for the raised request,
// in order; a handler's error is logged, never propagated (spec §4.4).
func (m *EscalationManager) runLevelHandlers(ctx context.Context, level model.EscalationLevel, req *model.HITLRequest) {
	m.mu.RLock()
	handlers := append([]LevelHandler(nil), m.handlers...)
	m.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, level, req); err != nil {
			m.logger.Error("escalation level handler failed", "request_id", req.RequestID, "level", level, "error", err)
		}
	}
}

// playbookBump looks up the golden path named by runCtx's playbook hint (if
// any) and, when its success rate is below playbookLowSuccessRate, returns
// base bumped one priority band. This is additive to rule matching (SPEC
// §C's playbook-informed escalation priority bump) — it never changes which
// rule matched, only how urgently the resulting request is queued.
func (m *EscalationManager) playbookBump(ctx context.Context, runCtx map[string]any, base model.Priority) (model.Priority, bool) {
	if m.store == nil {
		return base, false
	}
	fingerprint, _ := runCtx[playbookHintKey].(string)
	if fingerprint == "" {
		return base, false
	}
	gp, err := m.store.GetGoldenPath(ctx, fingerprint)
	if err != nil || gp == nil {
		return base, false
	}
	if gp.SuccessRate() >= playbookLowSuccessRate {
		return base, false
	}
	return base.Bump(), true
}

// ManualEscalate bypasses rule evaluation entirely: a human or an external
// caller names the priority and reason directly (spec §4.4's "equivalent,
// but bypasses rule evaluation").
func (m *EscalationManager) ManualEscalate(ctx context.Context, agentID, tenantID, executionID string, priority model.Priority, reason, notifyChannel, notifyUrgency string) *model.HITLRequest {
	rule := model.EscalationRule{
		Name:          "manual",
		Priority:      priority,
		Level:         model.LevelManager,
		NotifyChannel: notifyChannel,
		NotifyUrgency: notifyUrgency,
	}
	req := m.raise(ctx, agentID, tenantID, executionID, rule, rule.Level, reason, nil)
	m.runLevelHandlers(ctx, rule.Level, req)
	return req
}

// raise enqueues the escalation HITL request (spec §4.4: escalation
// requests use the dedicated "escalation" type, not "review", so a
// Filter.Type query can tell the two apart) and fans the notification out
// over the rule's own channel plus the policy's channel list.
func (m *EscalationManager) raise(ctx context.Context, agentID, tenantID, executionID string, rule model.EscalationRule, level model.EscalationLevel, reason string, policyChannels []string) *model.HITLRequest {
	req := m.queue.Enqueue(ctx, EnqueueInput{
		AgentID:     agentID,
		ExecutionID: executionID,
		TenantID:    tenantID,
		Type:        model.RequestEscalation,
		Priority:    rule.Priority,
		Summary:     reason,
		Payload:     map[string]any{"escalation_rule": rule.Name, "escalation_level": string(level)},
	})

	if m.bus != nil {
		m.bus.Publish(model.Event{
			Type:     events.EventTypeEscalationRaised,
			AgentID:  agentID,
			TenantID: tenantID,
			Payload:  map[string]any{"request_id": req.RequestID, "rule": rule.Name, "priority": string(rule.Priority), "level": string(level)},
		})
	}

	if m.dispatcher != nil {
		channels := append([]string{}, policyChannels...)
		if rule.NotifyChannel != "" {
			channels = append(channels, rule.NotifyChannel)
		}
		if len(channels) > 0 {
			m.dispatcher.Dispatch(ctx, channels, notify.Notification{
				TenantID:  tenantID,
				AgentID:   agentID,
				RequestID: req.RequestID,
				Urgency:   rule.NotifyUrgency,
				Title:     fmt.Sprintf("Escalation: %s", reason),
				Body:      req.Summary,
			})
		}
	}

	return req
}
