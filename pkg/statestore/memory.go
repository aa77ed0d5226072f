package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

// MemoryStore is an in-process Store, suitable for tests and single-node
// deployments that accept losing in-flight state on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	agentStates map[string]*model.AgentState
	hitlReqs    map[string]*model.HITLRequest
	tenants     map[string]*model.Tenant
	goldenPaths map[string]*model.GoldenPath
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agentStates: map[string]*model.AgentState{},
		hitlReqs:    map[string]*model.HITLRequest{},
		tenants:     map[string]*model.Tenant{},
		goldenPaths: map[string]*model.GoldenPath{},
	}
}

func (m *MemoryStore) SaveAgentState(_ context.Context, s *model.AgentState) error {
	cp := *s
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentStates[s.ExecutionID] = &cp
	return nil
}

func (m *MemoryStore) GetAgentState(_ context.Context, executionID string) (*model.AgentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.agentStates[executionID]
	if !ok {
		return nil, apierr.NotFound("agent_state", executionID)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListAgentStates(_ context.Context, filter AgentStateFilter) ([]*model.AgentState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*model.AgentState{}
	for _, s := range m.agentStates {
		if filter.TenantID != "" && s.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) SaveHITLRequest(_ context.Context, r *model.HITLRequest) error {
	cp := *r
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hitlReqs[r.RequestID] = &cp
	return nil
}

func (m *MemoryStore) GetHITLRequest(_ context.Context, requestID string) (*model.HITLRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.hitlReqs[requestID]
	if !ok {
		return nil, apierr.NotFound("hitl_request", requestID)
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListHITLRequests(_ context.Context, filter HITLRequestFilter) ([]*model.HITLRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*model.HITLRequest{}
	for _, r := range m.hitlReqs {
		if filter.TenantID != "" && r.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) SaveTenant(_ context.Context, t *model.Tenant) error {
	cp := *t
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.TenantID] = &cp
	return nil
}

func (m *MemoryStore) GetTenant(_ context.Context, tenantID string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, apierr.NotFound("tenant", tenantID)
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTenants(_ context.Context) ([]*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) SaveGoldenPath(_ context.Context, p *model.GoldenPath) error {
	cp := *p
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goldenPaths[p.PathID] = &cp
	return nil
}

func (m *MemoryStore) GetGoldenPath(_ context.Context, pathID string) (*model.GoldenPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.goldenPaths[pathID]
	if !ok {
		return nil, apierr.NotFound("golden_path", pathID)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListGoldenPaths(_ context.Context, blueprint string) ([]*model.GoldenPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*model.GoldenPath{}
	for _, p := range m.goldenPaths {
		if blueprint != "" && p.Blueprint != blueprint {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) PurgeCompletedAgentStates(_ context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.agentStates {
		if s.Status.Terminal() && !s.CompletedAt.IsZero() && s.CompletedAt.Before(cutoff) {
			delete(m.agentStates, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error { return nil }
