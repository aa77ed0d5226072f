package model

import "time"

// FeedbackOutcome labels how a GoldenPath's last update was recorded (spec
// §4.7).
type FeedbackOutcome string

const (
	OutcomeApproved  FeedbackOutcome = "approved"
	OutcomeRejected  FeedbackOutcome = "rejected"
	OutcomeCorrected FeedbackOutcome = "corrected"
)

// GoldenPath is a deduplicated, decaying record of a successful plan/act
// trajectory worth surfacing to future agents of the same blueprint (spec
// §4.7). PathID is the content fingerprint itself — dedup is a lookup by
// PathID, not a separate index.
type GoldenPath struct {
	PathID      string
	Fingerprint string
	Blueprint   string
	Category    string
	TenantID    string

	InputQuery  string
	Resolution  string
	StepsDigest []string
	ArticlesUsed []string
	Embedding   []float32
	Confidence  float64

	Outcome    FeedbackOutcome
	ApprovedBy string

	SuccessCount int
	FailureCount int

	// VectorIndexed tracks whether this path currently has a live vector
	// store entry, so the low-success-rate delete (spec §4.7) fires once
	// on the crossing rather than on every subsequent failure.
	VectorIndexed bool

	FirstSeenAt time.Time
	LastSeenAt  time.Time

	// Supersedes names older path_ids this one has replaced via the
	// graph-based relation supplement (SPEC_FULL.md §C).
	Supersedes []string
}

// SuccessRate is success_count / (success_count + failure_count), or 0 if
// the path has never been recorded against.
func (g *GoldenPath) SuccessRate() float64 {
	total := g.SuccessCount + g.FailureCount
	if total == 0 {
		return 0
	}
	return float64(g.SuccessCount) / float64(total)
}

// Outcome is what a FeedbackCollector records at the end of an execution.
type Outcome struct {
	AgentID     string
	ExecutionID string
	Blueprint   string
	Success     bool
	Steps       []StepRecord
	RecordedAt  time.Time
}
