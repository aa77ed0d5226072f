// Package postgres implements pkg/statestore.Store on top of pkg/database's
// pooled connection, storing JSON-shaped columns for the parts of
// pkg/model's structs that don't map cleanly onto relational columns
// (Context, Steps, Payload, StepsDigest, Supersedes).
//
// Grounded on pkg/database/client.go's pool+migration pattern and on
// test/util/database.go's testcontainers fixture style (adapted into
// test/integration without ent).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/database"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
)

// Store is a PostgreSQL-backed statestore.Store.
type Store struct {
	client *database.Client
}

var _ statestore.Store = (*Store)(nil)

// New wraps an already-migrated database.Client.
func New(client *database.Client) *Store {
	return &Store{client: client}
}

func (s *Store) db() *sql.DB { return s.client.DB() }

func (s *Store) Close() error { return s.client.Close() }

func marshal(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (s *Store) SaveAgentState(ctx context.Context, st *model.AgentState) error {
	input, err := marshal(st.Input)
	if err != nil {
		return apierr.Fatal("agent_state", st.ExecutionID, err)
	}
	stCtx, err := marshal(st.Context)
	if err != nil {
		return apierr.Fatal("agent_state", st.ExecutionID, err)
	}
	steps, err := marshal(st.Steps)
	if err != nil {
		return apierr.Fatal("agent_state", st.ExecutionID, err)
	}
	output, err := marshal(st.Output)
	if err != nil {
		return apierr.Fatal("agent_state", st.ExecutionID, err)
	}

	const q = `
INSERT INTO agent_states (
	execution_id, agent_id, tenant_id, blueprint, status, input, context, steps,
	iteration, human_feedback_request, output, failure_reason, confidence_threshold,
	created_at, started_at, completed_at, deadline_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (execution_id) DO UPDATE SET
	status = EXCLUDED.status, context = EXCLUDED.context, steps = EXCLUDED.steps,
	iteration = EXCLUDED.iteration, human_feedback_request = EXCLUDED.human_feedback_request,
	output = EXCLUDED.output, failure_reason = EXCLUDED.failure_reason,
	started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at,
	deadline_at = EXCLUDED.deadline_at`

	_, err = s.db().ExecContext(ctx, q,
		st.ExecutionID, st.AgentID, st.TenantID, st.Blueprint, string(st.Status), input, stCtx, steps,
		st.Iteration, nullableString(st.HumanFeedbackRequest), output, nullableString(st.FailureReason), st.ConfidenceThreshold,
		st.CreatedAt, nullableTime(st.StartedAt), nullableTime(st.CompletedAt), nullableTime(st.DeadlineAt),
	)
	if err != nil {
		return apierr.Transient("agent_state", st.ExecutionID, err)
	}
	return nil
}

func (s *Store) GetAgentState(ctx context.Context, executionID string) (*model.AgentState, error) {
	const q = `SELECT execution_id, agent_id, tenant_id, blueprint, status, input, context, steps,
		iteration, human_feedback_request, output, failure_reason, confidence_threshold,
		created_at, started_at, completed_at, deadline_at
		FROM agent_states WHERE execution_id = $1`
	row := s.db().QueryRowContext(ctx, q, executionID)
	st, err := scanAgentState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("agent_state", executionID)
	}
	if err != nil {
		return nil, apierr.Transient("agent_state", executionID, err)
	}
	return st, nil
}

func (s *Store) ListAgentStates(ctx context.Context, filter statestore.AgentStateFilter) ([]*model.AgentState, error) {
	q := `SELECT execution_id, agent_id, tenant_id, blueprint, status, input, context, steps,
		iteration, human_feedback_request, output, failure_reason, confidence_threshold,
		created_at, started_at, completed_at, deadline_at
		FROM agent_states WHERE 1=1`
	args := []any{}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		q += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}

	rows, err := s.db().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apierr.Transient("agent_state", "", err)
	}
	defer rows.Close()

	out := []*model.AgentState{}
	for rows.Next() {
		st, err := scanAgentState(rows)
		if err != nil {
			return nil, apierr.Fatal("agent_state", "", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgentState(row rowScanner) (*model.AgentState, error) {
	var st model.AgentState
	var status string
	var input, stCtx, steps, output []byte
	var humanFeedback, failureReason sql.NullString
	var started, completed, deadline sql.NullTime

	if err := row.Scan(&st.ExecutionID, &st.AgentID, &st.TenantID, &st.Blueprint, &status,
		&input, &stCtx, &steps, &st.Iteration, &humanFeedback, &output, &failureReason,
		&st.ConfidenceThreshold, &st.CreatedAt, &started, &completed, &deadline); err != nil {
		return nil, err
	}

	st.Status = model.Status(status)
	st.HumanFeedbackRequest = humanFeedback.String
	st.FailureReason = failureReason.String
	st.StartedAt = started.Time
	st.CompletedAt = completed.Time
	st.DeadlineAt = deadline.Time

	_ = json.Unmarshal(input, &st.Input)
	_ = json.Unmarshal(stCtx, &st.Context)
	_ = json.Unmarshal(steps, &st.Steps)
	if len(output) > 0 {
		_ = json.Unmarshal(output, &st.Output)
	}
	return &st, nil
}

func (s *Store) PurgeCompletedAgentStates(ctx context.Context, olderThan time.Duration) (int, error) {
	const q = `DELETE FROM agent_states
		WHERE completed_at IS NOT NULL
		AND completed_at < $1
		AND status IN ($2, $3)`
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db().ExecContext(ctx, q, cutoff,
		string(model.StatusCompleted), string(model.StatusFailed))
	if err != nil {
		return 0, apierr.Transient("agent_state", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apierr.Transient("agent_state", "", err)
	}
	return int(n), nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
