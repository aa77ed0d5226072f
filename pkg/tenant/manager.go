// Package tenant tracks tenant records and enforces the per-tier quotas
// described in spec §3/§4.6: active agents, concurrent executions, requests
// per minute, and daily token budget.
//
// Grounded on pkg/queue/pool.go's process-wide semaphore + per-key mutex
// idiom: quota state lives behind a single mutex, checked and committed in
// the same critical section (DESIGN.md's resolved check-then-commit
// ordering) so two concurrent admission checks can never both observe
// headroom and both proceed.
package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

// Manager owns the tenant directory and quota bookkeeping.
type Manager struct {
	mu      sync.Mutex
	cfg     *config.Config
	tenants map[string]*model.Tenant

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Manager. Call Run in a goroutine to start the quota
// window reset loop.
func New(cfg *config.Config) *Manager {
	return &Manager{
		cfg:     cfg,
		tenants: map[string]*model.Tenant{},
		stopCh:  make(chan struct{}),
	}
}

// CreateTenant registers a new tenant at the given tier.
func (m *Manager) CreateTenant(name string, tier model.Tier) (*model.Tenant, error) {
	if _, err := m.cfg.TenantTier(string(tier)); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	t := &model.Tenant{
		TenantID:              newID(),
		Name:                  name,
		Tier:                  tier,
		Status:                model.TenantActive,
		CreatedAt:             now,
		MinuteWindowStartedAt: now,
		DayWindowStartedAt:    now,
	}
	m.tenants[t.TenantID] = t
	return t, nil
}

// Get returns a tenant record, or apierr.NotFound.
func (m *Manager) Get(tenantID string) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, apierr.NotFound("tenant", tenantID)
	}
	cp := *t
	return &cp, nil
}

// List returns every registered tenant.
func (m *Manager) List() []*model.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// Suspend flips a tenant to suspended, rejecting all further admission
// checks until Resume is called.
func (m *Manager) Suspend(tenantID string) error {
	return m.setStatus(tenantID, model.TenantSuspended)
}

// Resume flips a suspended tenant back to active.
func (m *Manager) Resume(tenantID string) error {
	return m.setStatus(tenantID, model.TenantActive)
}

// DeleteTenant removes a tenant record permanently. Refuses to delete a
// tenant with agents still registered against it — callers must delete
// those agents first, which drives ActiveAgents back to zero via
// ReleaseAgent.
func (m *Manager) DeleteTenant(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return apierr.NotFound("tenant", tenantID)
	}
	if t.ActiveAgents > 0 {
		return apierr.IllegalState("tenant", tenantID, "tenant still has active agents")
	}
	delete(m.tenants, tenantID)
	return nil
}

func (m *Manager) setStatus(tenantID string, status model.TenantStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return apierr.NotFound("tenant", tenantID)
	}
	t.Status = status
	return nil
}

// AdmitAgentCreation checks and, on success, commits one unit against the
// tenant's max_agents quota in a single critical section.
func (m *Manager) AdmitAgentCreation(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, tier, err := m.lookup(tenantID)
	if err != nil {
		return err
	}
	if tier.MaxAgents > 0 && t.ActiveAgents >= tier.MaxAgents {
		return apierr.QuotaExceeded("tenant", tenantID, "max_agents quota exceeded", 0)
	}
	t.ActiveAgents++
	return nil
}

// ReleaseAgent decrements the active agent count (agent removed).
func (m *Manager) ReleaseAgent(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[tenantID]; ok && t.ActiveAgents > 0 {
		t.ActiveAgents--
	}
}

// AdmitExecution checks and commits one unit against max_concurrent_executions
// and rate_limit_per_minute together, since both gate the same call
// (spec §4.6: a single admission decision per execution start).
func (m *Manager) AdmitExecution(tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, tier, err := m.lookup(tenantID)
	if err != nil {
		return err
	}
	m.rollWindowsLocked(t)

	if tier.MaxConcurrentExecutions > 0 && t.ConcurrentExecutions >= tier.MaxConcurrentExecutions {
		return apierr.QuotaExceeded("tenant", tenantID, "max_concurrent_executions quota exceeded", 1)
	}
	if tier.RateLimitPerMinute > 0 && t.RequestsThisMinute >= tier.RateLimitPerMinute {
		retryAfter := int((time.Minute - time.Since(t.MinuteWindowStartedAt)) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return apierr.QuotaExceeded("tenant", tenantID, "rate_limit_per_minute quota exceeded", retryAfter)
	}

	t.ConcurrentExecutions++
	t.RequestsThisMinute++
	return nil
}

// ReleaseExecution decrements the concurrent execution count when one ends.
func (m *Manager) ReleaseExecution(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tenants[tenantID]; ok && t.ConcurrentExecutions > 0 {
		t.ConcurrentExecutions--
	}
}

// AdmitTokens checks and commits usage against daily_token_limit.
func (m *Manager) AdmitTokens(tenantID string, tokens int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, tier, err := m.lookup(tenantID)
	if err != nil {
		return err
	}
	m.rollWindowsLocked(t)

	if tier.DailyTokenLimit > 0 && t.TokensUsedToday+tokens > tier.DailyTokenLimit {
		retryAfter := int((24*time.Hour - time.Since(t.DayWindowStartedAt)) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return apierr.QuotaExceeded("tenant", tenantID, "daily_token_limit quota exceeded", retryAfter)
	}
	t.TokensUsedToday += tokens
	return nil
}

func (m *Manager) lookup(tenantID string) (*model.Tenant, config.TenantTierConfig, error) {
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, config.TenantTierConfig{}, apierr.NotFound("tenant", tenantID)
	}
	if t.Status == model.TenantSuspended {
		return nil, config.TenantTierConfig{}, apierr.IllegalState("tenant", tenantID, "tenant is suspended")
	}
	tier, err := m.cfg.TenantTier(string(t.Tier))
	if err != nil {
		return nil, config.TenantTierConfig{}, err
	}
	return t, tier, nil
}

// rollWindowsLocked resets the minute/day counters when their window has
// elapsed. Must be called with m.mu held.
func (m *Manager) rollWindowsLocked(t *model.Tenant) {
	now := time.Now()
	if now.Sub(t.MinuteWindowStartedAt) >= time.Minute {
		t.RequestsThisMinute = 0
		t.MinuteWindowStartedAt = now
	}
	if now.Sub(t.DayWindowStartedAt) >= 24*time.Hour {
		t.TokensUsedToday = 0
		t.DayWindowStartedAt = now
	}
}

// Run starts the single scheduler-owned window reset loop (DESIGN.md's
// resolved Open Question: one goroutine owns time-based resets; admission
// checks also self-heal via rollWindowsLocked so a slow tick never wedges a
// tenant past its window boundary).
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.resetElapsedWindows()
		}
	}
}

func (m *Manager) resetElapsedWindows() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		m.rollWindowsLocked(t)
	}
}

// Stop ends the Run loop.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
