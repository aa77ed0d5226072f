// Package feedback implements the continuous-learning loop: HITL decisions
// and external customer signals become deduplicated, decaying GoldenPath
// records that future agent runs can retrieve via similarity search (spec
// §4.7). Grounded on
// original_source/packages/agent_framework/learning/feedback_loop.py.
package feedback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/model"
	"github.com/coreflow-dev/agentcore/pkg/statestore"
	"github.com/coreflow-dev/agentcore/pkg/vectorstore"
)

// lowSuccessRateThreshold is the success_rate below which a golden path is
// pulled from the vector store (but kept in the catalog) on a failure
// update (spec §4.7).
const lowSuccessRateThreshold = 0.3

// fingerprintLength is how many hex characters of the sha256 digest are
// kept as the dedup key.
const fingerprintLength = 16

// inputQueryFingerprintChars bounds how much of the input query feeds the
// fingerprint, so near-duplicate long queries still collide.
const inputQueryFingerprintChars = 200

// Fingerprint computes the content-addressed dedup key for a trace: the
// first 16 hex characters of sha256(blueprint ":" category ":" input_query[:200]).
func Fingerprint(blueprint, category, inputQuery string) string {
	if len(inputQuery) > inputQueryFingerprintChars {
		inputQuery = inputQuery[:inputQueryFingerprintChars]
	}
	sum := sha256.Sum256([]byte(blueprint + ":" + category + ":" + inputQuery))
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// Trace is the execution trajectory a feedback signal is recorded against.
type Trace struct {
	Blueprint    string
	Category     string
	InputQuery   string
	Resolution   string
	StepsTaken   []string
	ArticlesUsed []string
	Confidence   float64
}

// Collector writes golden paths to the state store catalog and mirrors
// them into the vector store for similarity retrieval. Both store and
// vectorStore may be nil-safe collaborators in the sense that a nil
// vectorStore simply skips the embedding-index side (search degrades to
// "no matches" rather than failing).
type Collector struct {
	store       statestore.Store
	vectorStore vectorstore.Store
	logger      *slog.Logger
}

// NewCollector wires a Collector. vectorStore may be nil.
func NewCollector(store statestore.Store, vectorStore vectorstore.Store) *Collector {
	return &Collector{
		store:       store,
		vectorStore: vectorStore,
		logger:      slog.Default().With("component", "feedback-collector"),
	}
}

// RecordSuccess upserts (or creates) a golden path for trace, incrementing
// success_count, and replaces resolution/confidence if the new trace is
// more confident than the stored one (spec §4.7).
func (c *Collector) RecordSuccess(ctx context.Context, trace Trace, approvedBy, tenantID string) (*model.GoldenPath, error) {
	gp, err := c.upsertCatalog(ctx, trace, tenantID, func(existing *model.GoldenPath) {
		existing.SuccessCount++
		if trace.Confidence > existing.Confidence {
			existing.Confidence = trace.Confidence
			existing.Resolution = trace.Resolution
		}
	}, func(fresh *model.GoldenPath) {
		fresh.SuccessCount = 1
		fresh.FailureCount = 0
	})
	if err != nil {
		return nil, err
	}
	gp.Outcome = model.OutcomeApproved
	gp.ApprovedBy = approvedBy
	gp.VectorIndexed = true

	if err := c.save(ctx, gp); err != nil {
		return nil, err
	}
	c.upsertVector(ctx, gp)
	return gp, nil
}

// RecordFailure increments failure_count for trace's fingerprint, creating
// a fresh 0/1 entry if none exists. If the resulting success rate drops
// below 0.3, the vector store entry is deleted but the catalog row stays
// (spec §4.7).
func (c *Collector) RecordFailure(ctx context.Context, trace Trace, reason, tenantID string) (*model.GoldenPath, error) {
	gp, err := c.upsertCatalog(ctx, trace, tenantID, func(existing *model.GoldenPath) {
		existing.FailureCount++
	}, func(fresh *model.GoldenPath) {
		fresh.SuccessCount = 0
		fresh.FailureCount = 1
	})
	if err != nil {
		return nil, err
	}
	gp.Outcome = model.OutcomeRejected

	if err := c.save(ctx, gp); err != nil {
		return nil, err
	}

	if gp.VectorIndexed && gp.SuccessRate() < lowSuccessRateThreshold {
		c.deleteVector(ctx, gp, reason)
		gp.VectorIndexed = false
		if err := c.save(ctx, gp); err != nil {
			return nil, err
		}
	}
	return gp, nil
}

// RecordCorrection treats correctedOutput as the new canonical resolution
// at confidence 0.95, incrementing success_count, and records any
// lower-confidence catalog entry for the same blueprint/category it
// displaces in Supersedes (spec §4.7).
func (c *Collector) RecordCorrection(ctx context.Context, originalTraceID, correctedOutput, correctedBy, tenantID, blueprint, category string) error {
	trace := Trace{Blueprint: blueprint, Category: category, InputQuery: originalTraceID, Resolution: correctedOutput}
	gp, err := c.upsertCatalog(ctx, trace, tenantID, func(existing *model.GoldenPath) {
		existing.Resolution = correctedOutput
		existing.Confidence = 0.95
		existing.SuccessCount++
	}, func(fresh *model.GoldenPath) {
		fresh.Resolution = correctedOutput
		fresh.Confidence = 0.95
		fresh.SuccessCount = 1
	})
	if err != nil {
		return err
	}
	gp.Outcome = model.OutcomeCorrected
	gp.ApprovedBy = correctedBy
	gp.VectorIndexed = true
	c.displaceLowerConfidence(ctx, gp)

	if err := c.save(ctx, gp); err != nil {
		return err
	}
	c.upsertVector(ctx, gp)
	return nil
}

// displaceLowerConfidence records, in gp.Supersedes, every other catalog
// entry sharing gp's blueprint and category whose confidence is strictly
// lower than gp's — the golden paths this correction makes obsolete.
func (c *Collector) displaceLowerConfidence(ctx context.Context, gp *model.GoldenPath) {
	peers, err := c.store.ListGoldenPaths(ctx, gp.Blueprint)
	if err != nil {
		c.logger.Warn("listing golden paths for displacement check failed", "path_id", gp.PathID, "error", err)
		return
	}
	seen := make(map[string]bool, len(gp.Supersedes))
	for _, id := range gp.Supersedes {
		seen[id] = true
	}
	for _, peer := range peers {
		if peer.PathID == gp.PathID || peer.Category != gp.Category || peer.Confidence >= gp.Confidence {
			continue
		}
		if seen[peer.PathID] {
			continue
		}
		gp.Supersedes = append(gp.Supersedes, peer.PathID)
		seen[peer.PathID] = true
	}
}

// RecordCSAT maps a customer satisfaction score to a success or failure
// signal: score >= 4 is a success, score <= 2 is a failure, anything in
// between is a no-op (spec §4.7).
func (c *Collector) RecordCSAT(ctx context.Context, ticketID string, score float64, trace Trace, tenantID string) (*model.GoldenPath, error) {
	switch {
	case score >= 4:
		return c.RecordSuccess(ctx, trace, "", tenantID)
	case score <= 2:
		return c.RecordFailure(ctx, trace, "low CSAT on ticket "+ticketID, tenantID)
	default:
		return nil, nil
	}
}

// defaultMinSuccessRate is SearchGoldenPaths' default floor when the
// caller does not specify one (spec §4.7).
const defaultMinSuccessRate = 0.5

// SearchGoldenPaths finds golden paths similar to embedding, scoped to
// tenantID if non-empty, discarding matches below minSuccessRate (0 uses
// the spec default of 0.5).
func (c *Collector) SearchGoldenPaths(ctx context.Context, embedding []float32, tenantID string, topK int, minSuccessRate float64) ([]*model.GoldenPath, error) {
	if c.vectorStore == nil {
		return nil, nil
	}
	if minSuccessRate == 0 {
		minSuccessRate = defaultMinSuccessRate
	}

	matches, err := c.vectorStore.Search(ctx, embedding, topK*2)
	if err != nil {
		return nil, apierr.Transient("feedback_collector", "", err)
	}

	out := make([]*model.GoldenPath, 0, topK)
	for _, match := range matches {
		if tenantID != "" {
			if mt, _ := match.Document.Metadata["tenant_id"].(string); mt != tenantID {
				continue
			}
		}
		gp, err := c.store.GetGoldenPath(ctx, match.Document.ID)
		if err != nil {
			continue
		}
		if gp.SuccessRate() < minSuccessRate {
			continue
		}
		out = append(out, gp)
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}

// upsertCatalog looks the trace's fingerprint up in the state store catalog
// and applies onExisting, or builds a fresh entry via onNew.
func (c *Collector) upsertCatalog(ctx context.Context, trace Trace, tenantID string, onExisting, onNew func(*model.GoldenPath)) (*model.GoldenPath, error) {
	fp := Fingerprint(trace.Blueprint, trace.Category, trace.InputQuery)

	existing, err := c.store.GetGoldenPath(ctx, fp)
	if err == nil {
		onExisting(existing)
		existing.LastSeenAt = time.Now()
		return existing, nil
	}
	if !apierr.Is(err, apierr.KindNotFound) {
		return nil, apierr.Transient("feedback_collector", fp, err)
	}

	now := time.Now()
	fresh := &model.GoldenPath{
		PathID:       fp,
		Fingerprint:  fp,
		Blueprint:    trace.Blueprint,
		Category:     trace.Category,
		TenantID:     tenantID,
		InputQuery:   trace.InputQuery,
		Resolution:   trace.Resolution,
		StepsDigest:  trace.StepsTaken,
		ArticlesUsed: trace.ArticlesUsed,
		Confidence:   trace.Confidence,
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}
	onNew(fresh)
	return fresh, nil
}

func (c *Collector) save(ctx context.Context, gp *model.GoldenPath) error {
	if err := c.store.SaveGoldenPath(ctx, gp); err != nil {
		return apierr.Transient("feedback_collector", gp.PathID, err)
	}
	return nil
}

func (c *Collector) upsertVector(ctx context.Context, gp *model.GoldenPath) {
	if c.vectorStore == nil {
		return
	}
	doc := vectorstore.Document{
		ID:        gp.PathID,
		Embedding: gp.Embedding,
		Metadata: map[string]any{
			"type":          "golden_path",
			"blueprint":     gp.Blueprint,
			"category":      gp.Category,
			"tenant_id":     gp.TenantID,
			"input_query":   gp.InputQuery,
			"resolution":    gp.Resolution,
			"confidence":    gp.Confidence,
			"outcome":       string(gp.Outcome),
			"success_count": gp.SuccessCount,
			"failure_count": gp.FailureCount,
			"success_rate":  gp.SuccessRate(),
		},
	}
	if err := c.vectorStore.Upsert(ctx, doc); err != nil {
		c.logger.Warn("vector store upsert failed", "path_id", gp.PathID, "error", err)
	}
}

func (c *Collector) deleteVector(ctx context.Context, gp *model.GoldenPath, reason string) {
	if c.vectorStore == nil {
		return
	}
	if err := c.vectorStore.Delete(ctx, gp.PathID); err != nil {
		c.logger.Warn("vector store delete failed", "path_id", gp.PathID, "reason", reason, "error", err)
		return
	}
	c.logger.Info("removed low-success golden path from vector store", "path_id", gp.PathID, "success_rate", gp.SuccessRate())
}
