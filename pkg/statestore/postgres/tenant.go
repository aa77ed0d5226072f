package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func (s *Store) SaveTenant(ctx context.Context, t *model.Tenant) error {
	const q = `
INSERT INTO tenants (
	tenant_id, name, tier, status, created_at, active_agents, concurrent_executions,
	requests_this_minute, minute_window_started_at, tokens_used_today, day_window_started_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (tenant_id) DO UPDATE SET
	name = EXCLUDED.name, tier = EXCLUDED.tier, status = EXCLUDED.status,
	active_agents = EXCLUDED.active_agents, concurrent_executions = EXCLUDED.concurrent_executions,
	requests_this_minute = EXCLUDED.requests_this_minute, minute_window_started_at = EXCLUDED.minute_window_started_at,
	tokens_used_today = EXCLUDED.tokens_used_today, day_window_started_at = EXCLUDED.day_window_started_at`

	_, err := s.db().ExecContext(ctx, q,
		t.TenantID, t.Name, string(t.Tier), string(t.Status), t.CreatedAt, t.ActiveAgents, t.ConcurrentExecutions,
		t.RequestsThisMinute, t.MinuteWindowStartedAt, t.TokensUsedToday, t.DayWindowStartedAt,
	)
	if err != nil {
		return apierr.Transient("tenant", t.TenantID, err)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	const q = tenantSelect + ` WHERE tenant_id = $1`
	row := s.db().QueryRowContext(ctx, q, tenantID)
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("tenant", tenantID)
	}
	if err != nil {
		return nil, apierr.Transient("tenant", tenantID, err)
	}
	return t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]*model.Tenant, error) {
	rows, err := s.db().QueryContext(ctx, tenantSelect)
	if err != nil {
		return nil, apierr.Transient("tenant", "", err)
	}
	defer rows.Close()

	out := []*model.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, apierr.Fatal("tenant", "", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const tenantSelect = `SELECT tenant_id, name, tier, status, created_at, active_agents, concurrent_executions,
	requests_this_minute, minute_window_started_at, tokens_used_today, day_window_started_at FROM tenants`

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var t model.Tenant
	var tier, status string
	if err := row.Scan(&t.TenantID, &t.Name, &tier, &status, &t.CreatedAt, &t.ActiveAgents, &t.ConcurrentExecutions,
		&t.RequestsThisMinute, &t.MinuteWindowStartedAt, &t.TokensUsedToday, &t.DayWindowStartedAt); err != nil {
		return nil, err
	}
	t.Tier = model.Tier(tier)
	t.Status = model.TenantStatus(status)
	return &t, nil
}
