// Package registry holds the blueprint catalog and the agent instance
// directory: RegisterBlueprint/GetBlueprint/ListBlueprints and
// CreateAgent/GetAgent/ListAgents/RemoveAgent (spec §4.2).
//
// Grounded on the teacher's pkg/config registries (agent/chain/MCP-server
// catalogs keyed by name under a single RWMutex) — here the in-memory
// catalog is a runtime object rather than config-file-loaded, since
// blueprints are Go types (their Behavior is code, not data).
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

// StatePersistenceHook is invoked by the Executor after every terminal state
// transition to persist the final snapshot (spec §4.2). It is set once at
// wiring time, typically to a thin wrapper around a statestore.Store.
type StatePersistenceHook func(ctx context.Context, s *model.AgentState) error

// Registry is the process-wide blueprint catalog and agent instance
// directory. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	blueprints map[string]model.Blueprint
	agents     map[string]*model.AgentRecord
	persistHook StatePersistenceHook
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		blueprints: map[string]model.Blueprint{},
		agents:     map[string]*model.AgentRecord{},
	}
}

// RegisterBlueprint adds a blueprint by name, failing with apierr.Validation
// if the name is already taken — a blueprint's Behavior is code wired at
// startup, so a silent overwrite would leave whichever agents were created
// against the old registration running a different implementation than the
// catalog now reports (spec §4.2).
func (r *Registry) RegisterBlueprint(bp model.Blueprint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blueprints[bp.Name]; exists {
		return apierr.Validation("registry", bp.Name, "blueprint already registered")
	}
	r.blueprints[bp.Name] = bp
	return nil
}

// SetStatePersistenceHook wires the hook the Executor invokes after each
// terminal transition. Passing nil clears it.
func (r *Registry) SetStatePersistenceHook(hook StatePersistenceHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistHook = hook
}

// PersistState invokes the configured StatePersistenceHook, if any. A nil
// hook is a legitimate "no durable persistence wired" state, not an error.
func (r *Registry) PersistState(ctx context.Context, s *model.AgentState) error {
	r.mu.RLock()
	hook := r.persistHook
	r.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(ctx, s)
}

// GetBlueprint returns the named blueprint, or apierr.NotFound.
func (r *Registry) GetBlueprint(name string) (model.Blueprint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.blueprints[name]
	if !ok {
		return model.Blueprint{}, apierr.NotFound("blueprint", name)
	}
	return bp, nil
}

// ListBlueprints returns every registered blueprint, unordered.
func (r *Registry) ListBlueprints() []model.Blueprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Blueprint, 0, len(r.blueprints))
	for _, bp := range r.blueprints {
		out = append(out, bp)
	}
	return out
}

// CreateAgent registers a new agent instance bound to a blueprint and
// tenant, with a config overlay merged over the blueprint's defaults.
func (r *Registry) CreateAgent(tenantID, blueprintName string, overlay model.AgentConfig) (*model.AgentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bp, ok := r.blueprints[blueprintName]
	if !ok {
		return nil, apierr.NotFound("blueprint", blueprintName)
	}

	cfg := bp.Defaults
	if overlay.MaxIterations > 0 {
		cfg.MaxIterations = overlay.MaxIterations
	}
	if overlay.TimeoutSeconds > 0 {
		cfg.TimeoutSeconds = overlay.TimeoutSeconds
	}
	if overlay.ConfidenceThreshold > 0 {
		cfg.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.RequireHumanApproval {
		cfg.RequireHumanApproval = true
	}

	rec := &model.AgentRecord{
		AgentID:   uuid.NewString(),
		TenantID:  tenantID,
		Blueprint: blueprintName,
		Config:    cfg,
		CreatedAt: time.Now(),
	}
	r.agents[rec.AgentID] = rec
	return rec, nil
}

// GetAgent returns the named agent instance, or apierr.NotFound.
func (r *Registry) GetAgent(agentID string) (*model.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[agentID]
	if !ok {
		return nil, apierr.NotFound("agent", agentID)
	}
	return rec, nil
}

// ListAgents returns every registered agent for a tenant, or all tenants
// when tenantID is empty.
func (r *Registry) ListAgents(tenantID string) []*model.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.AgentRecord, 0, len(r.agents))
	for _, rec := range r.agents {
		if tenantID == "" || rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out
}

// RemoveAgent deletes an agent instance. Callers are responsible for
// ensuring no execution is in flight (pkg/agent.Executor.Cancel first).
func (r *Registry) RemoveAgent(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; !ok {
		return apierr.NotFound("agent", agentID)
	}
	delete(r.agents, agentID)
	return nil
}

// SetSuspended flips an agent instance's suspended flag, used by
// orchestratorctl to pause scheduling without deleting the record.
func (r *Registry) SetSuspended(agentID string, suspended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.agents[agentID]
	if !ok {
		return apierr.NotFound("agent", agentID)
	}
	rec.Suspended = suspended
	return nil
}
