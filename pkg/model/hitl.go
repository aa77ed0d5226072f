package model

import "time"

// RequestType distinguishes the three kinds of human-in-the-loop work item
// (spec §4.3).
type RequestType string

const (
	RequestApproval     RequestType = "approval"
	RequestFeedback     RequestType = "feedback"
	RequestReview       RequestType = "review"
	RequestEscalation   RequestType = "escalation"
	RequestOverride     RequestType = "override"
	RequestClarification RequestType = "clarification"
)

// Priority drives both queue ordering and SLA lookup (config.QueueConfig.SLA).
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityRank gives a total order for the queue's heap comparator; lower
// ranks come first.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Rank returns the priority's sort weight, defaulting unknown values to the
// lowest precedence rather than panicking.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// rankPriority is the inverse of priorityRank, used by Bump.
var rankPriority = map[int]Priority{
	0: PriorityCritical,
	1: PriorityHigh,
	2: PriorityMedium,
	3: PriorityLow,
}

// Bump raises a priority one band (e.g. medium -> high), floored at
// PriorityCritical. Unknown priorities bump to the lowest known band.
func (p Priority) Bump() Priority {
	r := p.Rank() - 1
	if r < 0 {
		r = 0
	}
	if next, ok := rankPriority[r]; ok {
		return next
	}
	return PriorityCritical
}

// RequestStatus is a HITL request's lifecycle status.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAssigned  RequestStatus = "assigned"
	RequestResolved  RequestStatus = "resolved"
	RequestExpired   RequestStatus = "expired"
	RequestCancelled RequestStatus = "cancelled"
)

// HITLRequest is one unit of queued human work (spec §4.3).
type HITLRequest struct {
	RequestID   string
	AgentID     string
	ExecutionID string
	TenantID    string

	Type     RequestType
	Priority Priority
	Status   RequestStatus

	Summary string
	Payload map[string]any

	AssignedTo string

	CreatedAt time.Time
	SLADueAt  time.Time
	ResolvedAt time.Time

	Response *HITLResponse

	// EscalatedFrom records the request_id this one superseded via an
	// escalation rule, if any.
	EscalatedFrom string
	EscalationCount int
}

// Reviewer is a human operator the queue can assign requests to (spec §C
// reviewer workload tracking).
type Reviewer struct {
	ReviewerID  string
	Name        string
	TenantID    string
	MaxWorkload int
	Workload    int
	Available   bool
}

// EscalationLevel names the target handler tier an escalation is routed to
// (spec §4.4).
type EscalationLevel string

const (
	LevelL1        EscalationLevel = "l1"
	LevelL2        EscalationLevel = "l2"
	LevelL3        EscalationLevel = "l3"
	LevelManager   EscalationLevel = "manager"
	LevelExecutive EscalationLevel = "executive"
)

// EscalationRule matches a runtime context (confidence, sentiment, and
// similar signals an agent or HITL request carries) against a set of
// conditions and names the HITL priority, target level, and notification
// target to use on a match (spec §4.4).
//
// Each entry in Conditions is either a scalar (matched by strict equality
// against ctx[key]) or a predicate map with any of "min", "max", "in",
// "not_in" keys (all defined sub-clauses must hold).
type EscalationRule struct {
	Name          string
	Conditions    map[string]any
	Priority      Priority        // HITL priority assigned to the request this rule creates
	Level         EscalationLevel // target handler tier; falls back to the policy's DefaultLevel when empty
	NotifyChannel string
	NotifyUrgency string
}

// Matches reports whether every condition in the rule holds against ctx.
func (r EscalationRule) Matches(ctx map[string]any) bool {
	for key, expected := range r.Conditions {
		actual, present := ctx[key]

		if predicate, ok := expected.(map[string]any); ok {
			if !present {
				return false
			}
			if !matchesPredicate(actual, predicate) {
				return false
			}
			continue
		}

		if !present || actual != expected {
			return false
		}
	}
	return true
}

func matchesPredicate(actual any, predicate map[string]any) bool {
	af, isNum := toFloat64(actual)

	if min, ok := predicate["min"]; ok {
		mf, _ := toFloat64(min)
		if !isNum || af < mf {
			return false
		}
	}
	if max, ok := predicate["max"]; ok {
		mf, _ := toFloat64(max)
		if !isNum || af > mf {
			return false
		}
	}
	if in, ok := predicate["in"]; ok {
		if !containsAny(in, actual) {
			return false
		}
	}
	if notIn, ok := predicate["not_in"]; ok {
		if containsAny(notIn, actual) {
			return false
		}
	}
	return true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsAny(set any, needle any) bool {
	items, ok := set.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}

// EscalationPolicy is the ordered set of rules evaluated for a tenant;
// rules are checked in declaration order and the first match wins.
type EscalationPolicy struct {
	Name     string
	TenantID string
	Rules    []EscalationRule

	// DefaultLevel is used for a matched rule that doesn't name its own Level.
	DefaultLevel EscalationLevel
	// AutoEscalationTimeout, if nonzero, is how long an unresolved escalation
	// waits before a further automatic escalation is warranted.
	AutoEscalationTimeout time.Duration
	// NotificationChannels are dispatched on every escalation this policy
	// raises, in addition to any rule-specific NotifyChannel.
	NotificationChannels []string
}
