package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func (s *Store) SaveGoldenPath(ctx context.Context, p *model.GoldenPath) error {
	digest, err := marshal(p.StepsDigest)
	if err != nil {
		return apierr.Fatal("golden_path", p.PathID, err)
	}
	articles, err := marshal(p.ArticlesUsed)
	if err != nil {
		return apierr.Fatal("golden_path", p.PathID, err)
	}
	supersedes, err := marshal(p.Supersedes)
	if err != nil {
		return apierr.Fatal("golden_path", p.PathID, err)
	}

	const q = `
INSERT INTO golden_paths (
	path_id, fingerprint, blueprint, category, tenant_id, input_query, resolution,
	steps_digest, articles_used, confidence, outcome, approved_by,
	success_count, failure_count, first_seen_at, last_seen_at, supersedes
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (path_id) DO UPDATE SET
	resolution = EXCLUDED.resolution, confidence = EXCLUDED.confidence, outcome = EXCLUDED.outcome,
	approved_by = EXCLUDED.approved_by, success_count = EXCLUDED.success_count,
	failure_count = EXCLUDED.failure_count, last_seen_at = EXCLUDED.last_seen_at,
	supersedes = EXCLUDED.supersedes`

	_, err = s.db().ExecContext(ctx, q,
		p.PathID, p.Fingerprint, p.Blueprint, p.Category, p.TenantID, p.InputQuery, p.Resolution,
		digest, articles, p.Confidence, string(p.Outcome), p.ApprovedBy,
		p.SuccessCount, p.FailureCount, p.FirstSeenAt, p.LastSeenAt, supersedes,
	)
	if err != nil {
		return apierr.Transient("golden_path", p.PathID, err)
	}
	return nil
}

func (s *Store) GetGoldenPath(ctx context.Context, pathID string) (*model.GoldenPath, error) {
	const q = goldenPathSelect + ` WHERE path_id = $1`
	row := s.db().QueryRowContext(ctx, q, pathID)
	p, err := scanGoldenPath(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("golden_path", pathID)
	}
	if err != nil {
		return nil, apierr.Transient("golden_path", pathID, err)
	}
	return p, nil
}

func (s *Store) ListGoldenPaths(ctx context.Context, blueprint string) ([]*model.GoldenPath, error) {
	q := goldenPathSelect
	args := []any{}
	if blueprint != "" {
		q += ` WHERE blueprint = $1`
		args = append(args, blueprint)
	}

	rows, err := s.db().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apierr.Transient("golden_path", "", err)
	}
	defer rows.Close()

	out := []*model.GoldenPath{}
	for rows.Next() {
		p, err := scanGoldenPath(rows)
		if err != nil {
			return nil, apierr.Fatal("golden_path", "", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const goldenPathSelect = `SELECT path_id, fingerprint, blueprint, category, tenant_id, input_query, resolution,
	steps_digest, articles_used, confidence, outcome, approved_by, success_count, failure_count,
	first_seen_at, last_seen_at, supersedes FROM golden_paths`

func scanGoldenPath(row rowScanner) (*model.GoldenPath, error) {
	var p model.GoldenPath
	var outcome string
	var digest, articles, supersedes []byte
	if err := row.Scan(&p.PathID, &p.Fingerprint, &p.Blueprint, &p.Category, &p.TenantID, &p.InputQuery,
		&p.Resolution, &digest, &articles, &p.Confidence, &outcome, &p.ApprovedBy, &p.SuccessCount,
		&p.FailureCount, &p.FirstSeenAt, &p.LastSeenAt, &supersedes); err != nil {
		return nil, err
	}
	p.Outcome = model.FeedbackOutcome(outcome)
	_ = json.Unmarshal(digest, &p.StepsDigest)
	_ = json.Unmarshal(articles, &p.ArticlesUsed)
	_ = json.Unmarshal(supersedes, &p.Supersedes)
	return &p, nil
}
