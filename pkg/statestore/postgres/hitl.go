package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

func (s *Store) SaveHITLRequest(ctx context.Context, r *model.HITLRequest) error {
	payload, err := marshal(r.Payload)
	if err != nil {
		return apierr.Fatal("hitl_request", r.RequestID, err)
	}
	var response []byte
	if r.Response != nil {
		response, err = marshal(r.Response)
		if err != nil {
			return apierr.Fatal("hitl_request", r.RequestID, err)
		}
	}

	const q = `
INSERT INTO hitl_requests (
	request_id, agent_id, execution_id, tenant_id, type, priority, status, summary, payload,
	assigned_to, created_at, sla_due_at, resolved_at, response, escalated_from, escalation_count
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (request_id) DO UPDATE SET
	status = EXCLUDED.status, assigned_to = EXCLUDED.assigned_to, resolved_at = EXCLUDED.resolved_at,
	response = EXCLUDED.response, escalation_count = EXCLUDED.escalation_count, priority = EXCLUDED.priority`

	_, err = s.db().ExecContext(ctx, q,
		r.RequestID, r.AgentID, r.ExecutionID, r.TenantID, string(r.Type), string(r.Priority), string(r.Status),
		r.Summary, payload, nullableString(r.AssignedTo), r.CreatedAt, r.SLADueAt, nullableTime(r.ResolvedAt),
		response, nullableString(r.EscalatedFrom), r.EscalationCount,
	)
	if err != nil {
		return apierr.Transient("hitl_request", r.RequestID, err)
	}
	return nil
}

func (s *Store) GetHITLRequest(ctx context.Context, requestID string) (*model.HITLRequest, error) {
	const q = hitlSelect + ` WHERE request_id = $1`
	row := s.db().QueryRowContext(ctx, q, requestID)
	r, err := scanHITLRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("hitl_request", requestID)
	}
	if err != nil {
		return nil, apierr.Transient("hitl_request", requestID, err)
	}
	return r, nil
}

func (s *Store) ListHITLRequests(ctx context.Context, filter statestore.HITLRequestFilter) ([]*model.HITLRequest, error) {
	q := hitlSelect + ` WHERE 1=1`
	args := []any{}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		q += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		q += fmt.Sprintf(" AND type = $%d", len(args))
	}
	q += ` ORDER BY sla_due_at ASC`

	rows, err := s.db().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apierr.Transient("hitl_request", "", err)
	}
	defer rows.Close()

	out := []*model.HITLRequest{}
	for rows.Next() {
		r, err := scanHITLRequest(rows)
		if err != nil {
			return nil, apierr.Fatal("hitl_request", "", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const hitlSelect = `SELECT request_id, agent_id, execution_id, tenant_id, type, priority, status, summary,
	payload, assigned_to, created_at, sla_due_at, resolved_at, response, escalated_from, escalation_count
	FROM hitl_requests`

func scanHITLRequest(row rowScanner) (*model.HITLRequest, error) {
	var r model.HITLRequest
	var typ, priority, status string
	var payload, response []byte
	var assignedTo, escalatedFrom sql.NullString
	var resolvedAt sql.NullTime

	if err := row.Scan(&r.RequestID, &r.AgentID, &r.ExecutionID, &r.TenantID, &typ, &priority, &status,
		&r.Summary, &payload, &assignedTo, &r.CreatedAt, &r.SLADueAt, &resolvedAt, &response,
		&escalatedFrom, &r.EscalationCount); err != nil {
		return nil, err
	}

	r.Type = model.RequestType(typ)
	r.Priority = model.Priority(priority)
	r.Status = model.RequestStatus(status)
	r.AssignedTo = assignedTo.String
	r.EscalatedFrom = escalatedFrom.String
	r.ResolvedAt = resolvedAt.Time

	_ = json.Unmarshal(payload, &r.Payload)
	if len(response) > 0 {
		var resp model.HITLResponse
		if err := json.Unmarshal(response, &resp); err == nil {
			r.Response = &resp
		}
	}
	return &r, nil
}
