// Package hitl implements the human-in-the-loop request queue, the
// escalation engine that feeds it, and the resume bridge that couples
// resolved requests back to suspended agents (spec §4.3-§4.5).
package hitl

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
	"github.com/coreflow-dev/agentcore/pkg/config"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

// RequestCallback is invoked after a queue mutation releases its lock, so a
// callback can re-enter the queue (e.g. auto-assign) without deadlocking.
type RequestCallback func(context.Context, *model.HITLRequest)

// Filter narrows GetPending to a subset of requests.
type Filter struct {
	TenantID string
	Priority model.Priority
	Type     model.RequestType
}

// Queue is a priority queue of HITLRequests: four priority bands, FIFO
// within a band by creation time. All mutations hold a single queue-wide
// lock; callback fan-out always runs after the lock is released.
type Queue struct {
	mu       sync.Mutex
	requests map[string]*model.HITLRequest
	sla      map[string]time.Duration

	onNewRequest []RequestCallback
	onSLABreach  []RequestCallback
}

// New constructs an empty Queue using the given SLA overrides (falling back
// to config.DefaultSLA for any priority band not present).
func New(cfg *config.QueueConfig) *Queue {
	sla := make(map[string]time.Duration, len(config.DefaultSLA))
	for k, v := range config.DefaultSLA {
		sla[k] = v
	}
	if cfg != nil {
		for k, v := range cfg.SLA {
			sla[k] = v
		}
	}
	return &Queue{requests: map[string]*model.HITLRequest{}, sla: sla}
}

// OnNewRequest registers a callback invoked for every freshly enqueued request.
func (q *Queue) OnNewRequest(cb RequestCallback) {
	q.onNewRequest = append(q.onNewRequest, cb)
}

// OnSLABreach registers a callback invoked the first time a request's SLA is breached.
func (q *Queue) OnSLABreach(cb RequestCallback) {
	q.onSLABreach = append(q.onSLABreach, cb)
}

// EnqueueInput carries the fields needed to create a HITLRequest.
type EnqueueInput struct {
	AgentID     string
	ExecutionID string
	TenantID    string
	Type        model.RequestType
	Priority    model.Priority
	Summary     string
	Payload     map[string]any
	ExpiresIn   time.Duration // zero means never expires
}

// Enqueue adds a new request to the queue, always succeeding for a live
// tenant. sla_deadline is created_at + SLA[priority]; expires_at is set
// only if ExpiresIn is non-zero.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) *model.HITLRequest {
	now := time.Now()
	sla := q.sla[string(in.Priority)]
	if sla == 0 {
		sla = time.Hour
	}

	payload := in.Payload
	if in.ExpiresIn > 0 {
		payload = make(map[string]any, len(in.Payload)+1)
		for k, v := range in.Payload {
			payload[k] = v
		}
		payload["expires_at"] = now.Add(in.ExpiresIn)
	}

	req := &model.HITLRequest{
		RequestID:   uuid.NewString(),
		AgentID:     in.AgentID,
		ExecutionID: in.ExecutionID,
		TenantID:    in.TenantID,
		Type:        in.Type,
		Priority:    in.Priority,
		Status:      model.RequestPending,
		Summary:     in.Summary,
		Payload:     payload,
		CreatedAt:   now,
		SLADueAt:    now.Add(sla),
	}

	q.mu.Lock()
	q.requests[req.RequestID] = req
	q.mu.Unlock()

	q.fanOut(ctx, q.onNewRequest, req)
	return req
}

// Get returns a request by ID.
func (q *Queue) Get(requestID string) (*model.HITLRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.requests[requestID]
	if !ok {
		return nil, apierr.NotFound("hitl_request", requestID)
	}
	cp := *req
	return &cp, nil
}

// GetPending returns pending, unexpired requests matching filter, ordered
// by (priority band ascending, created_at ascending), capped at limit (0 = no cap).
func (q *Queue) GetPending(filter Filter, limit int) []*model.HITLRequest {
	q.mu.Lock()
	now := time.Now()
	matched := make([]*model.HITLRequest, 0)
	for _, req := range q.requests {
		if req.Status != model.RequestPending {
			continue
		}
		if isExpired(req, now) {
			continue
		}
		if filter.TenantID != "" && req.TenantID != filter.TenantID {
			continue
		}
		if filter.Priority != "" && req.Priority != filter.Priority {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		cp := *req
		matched = append(matched, &cp)
	}
	q.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Priority.Rank() != matched[j].Priority.Rank() {
			return matched[i].Priority.Rank() < matched[j].Priority.Rank()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Assign transitions a pending request to assigned. Valid only from pending.
func (q *Queue) Assign(requestID, reviewerID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok {
		return apierr.NotFound("hitl_request", requestID)
	}
	if req.Status != model.RequestPending {
		return apierr.IllegalState("hitl_request", requestID, "assign is only valid from pending")
	}
	req.Status = model.RequestAssigned
	req.AssignedTo = reviewerID
	return nil
}

// Unassign returns an assigned request to pending.
func (q *Queue) Unassign(requestID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok {
		return apierr.NotFound("hitl_request", requestID)
	}
	if req.Status != model.RequestAssigned {
		return apierr.IllegalState("hitl_request", requestID, "unassign is only valid from assigned")
	}
	req.Status = model.RequestPending
	req.AssignedTo = ""
	return nil
}

// Respond transitions a pending or assigned request to resolved, recording
// the response and responded_at. First-writer-wins: a second Respond call
// on an already-terminal request fails with IllegalState (spec §9 Open
// Question #3).
func (q *Queue) Respond(requestID string, response model.HITLResponse) (*model.HITLRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok {
		return nil, apierr.NotFound("hitl_request", requestID)
	}
	if req.Status != model.RequestPending && req.Status != model.RequestAssigned {
		return nil, apierr.IllegalState("hitl_request", requestID, "respond is only valid from pending or assigned")
	}

	response.RequestID = requestID
	response.RespondedAt = time.Now()
	req.Response = &response
	req.Status = model.RequestResolved
	req.ResolvedAt = response.RespondedAt

	cp := *req
	return &cp, nil
}

// Cancel transitions a non-terminal request to cancelled.
func (q *Queue) Cancel(requestID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[requestID]
	if !ok {
		return apierr.NotFound("hitl_request", requestID)
	}
	if req.Status == model.RequestResolved || req.Status == model.RequestCancelled || req.Status == model.RequestExpired {
		return apierr.IllegalState("hitl_request", requestID, "cancel is only valid from a non-terminal status")
	}
	req.Status = model.RequestCancelled
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}
	req.Payload["cancellation_reason"] = reason
	return nil
}

// CheckExpirations transitions pending/assigned requests past their
// expiry into expired, returning the ones that changed.
func (q *Queue) CheckExpirations() []*model.HITLRequest {
	now := time.Now()
	q.mu.Lock()
	var expired []*model.HITLRequest
	for _, req := range q.requests {
		if (req.Status == model.RequestPending || req.Status == model.RequestAssigned) && isExpired(req, now) {
			req.Status = model.RequestExpired
			cp := *req
			expired = append(expired, &cp)
		}
	}
	q.mu.Unlock()
	return expired
}

// CheckSLABreaches fires HITLSLABreach callbacks exactly once per request,
// flagging already-notified requests in their payload so a repeat sweep is
// a no-op for them.
func (q *Queue) CheckSLABreaches(ctx context.Context) []*model.HITLRequest {
	now := time.Now()
	q.mu.Lock()
	var breached []*model.HITLRequest
	for _, req := range q.requests {
		if req.Status != model.RequestPending && req.Status != model.RequestAssigned {
			continue
		}
		if req.SLADueAt.IsZero() || now.Before(req.SLADueAt) {
			continue
		}
		if req.Payload != nil {
			if notified, _ := req.Payload["sla_notified"].(bool); notified {
				continue
			}
		}
		if req.Payload == nil {
			req.Payload = map[string]any{}
		}
		req.Payload["sla_notified"] = true
		cp := *req
		breached = append(breached, &cp)
	}
	q.mu.Unlock()

	for _, req := range breached {
		q.fanOut(ctx, q.onSLABreach, req)
	}
	return breached
}

// Stats summarizes queue occupancy, optionally scoped to a tenant.
type Stats struct {
	Total       int
	Pending     int
	Assigned    int
	Resolved    int
	SLABreached int
	ByPriority  map[model.Priority]int
}

// GetStats computes queue statistics, optionally scoped to tenantID (empty = all).
func (q *Queue) GetStats(tenantID string) Stats {
	now := time.Now()
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{ByPriority: map[model.Priority]int{
		model.PriorityCritical: 0, model.PriorityHigh: 0, model.PriorityMedium: 0, model.PriorityLow: 0,
	}}
	for _, req := range q.requests {
		if tenantID != "" && req.TenantID != tenantID {
			continue
		}
		stats.Total++
		switch req.Status {
		case model.RequestPending:
			stats.Pending++
			stats.ByPriority[req.Priority]++
		case model.RequestAssigned:
			stats.Assigned++
		case model.RequestResolved:
			stats.Resolved++
		}
		if (req.Status == model.RequestPending || req.Status == model.RequestAssigned) && !req.SLADueAt.IsZero() && now.After(req.SLADueAt) {
			stats.SLABreached++
		}
	}
	return stats
}

// Run periodically sweeps expirations and SLA breaches until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, cfg *config.QueueConfig) {
	expInterval := cfg.ExpirationCheckInterval
	slaInterval := cfg.SLACheckInterval
	if expInterval <= 0 {
		expInterval = 30 * time.Second
	}
	if slaInterval <= 0 {
		slaInterval = 30 * time.Second
	}

	expTicker := time.NewTicker(expInterval)
	slaTicker := time.NewTicker(slaInterval)
	defer expTicker.Stop()
	defer slaTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expTicker.C:
			q.CheckExpirations()
		case <-slaTicker.C:
			q.CheckSLABreaches(ctx)
		}
	}
}

func (q *Queue) fanOut(ctx context.Context, callbacks []RequestCallback, req *model.HITLRequest) {
	for _, cb := range callbacks {
		cp := *req
		cb(ctx, &cp)
	}
}

func isExpired(req *model.HITLRequest, now time.Time) bool {
	expiresAt, ok := req.Payload["expires_at"].(time.Time)
	return ok && now.After(expiresAt)
}
