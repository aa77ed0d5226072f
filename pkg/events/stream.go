package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coreflow-dev/agentcore/pkg/activitylog"
)

// ActivityStream is a durable, per-tenant append-only log of ActivityEvents,
// backed by activitylog.Log (Redis Streams in production, in-memory in
// tests). Ordering within a tenant is total; ordering across tenants is
// undefined, matching each tenant owning an independent stream.
type ActivityStream struct {
	log activitylog.Log
}

// NewActivityStream wraps an activitylog.Log.
func NewActivityStream(log activitylog.Log) *ActivityStream {
	return &ActivityStream{log: log}
}

func streamKey(tenantID string) string {
	return fmt.Sprintf("activity:%s", tenantID)
}

// Publish appends an ActivityEvent to the tenant's stream and returns the
// assigned entry ID.
func (s *ActivityStream) Publish(ctx context.Context, evt ActivityEvent) (string, error) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	fields := map[string]any{
		"event_id":   evt.EventID,
		"event_type": evt.EventType,
		"source":     evt.Source,
		"tenant_id":  evt.TenantID,
		"payload":    evt.Payload,
		"metadata":   evt.Metadata,
	}
	entry, err := s.log.Append(ctx, streamKey(evt.TenantID), fields)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Read returns up to count entries, oldest first, passing cursor to the
// log's Range as its start bound. With RedisLog that bound is inclusive
// (XRANGE), so the entry at cursor is returned again; MemoryLog ignores the
// bounds and reads from the beginning. An empty cursor reads from the
// beginning of the stream.
func (s *ActivityStream) Read(ctx context.Context, tenantID, cursor string, count int64) ([]activitylog.Entry, error) {
	return s.log.Range(ctx, streamKey(tenantID), cursor, "", count)
}

// ReadLatest returns the most recent count entries, newest first.
func (s *ActivityStream) ReadLatest(ctx context.Context, tenantID string, count int64) ([]activitylog.Entry, error) {
	return s.log.ReverseRange(ctx, streamKey(tenantID), "", "", count)
}

// ReadGroup delivers undelivered entries to a named consumer group,
// blocking up to the given duration if none are immediately available.
func (s *ActivityStream) ReadGroup(ctx context.Context, tenantID, consumerGroup, consumer string, count int64, block time.Duration) ([]activitylog.Entry, error) {
	return s.log.ReadGroup(ctx, streamKey(tenantID), consumerGroup, consumer, count, block)
}

// Ack acknowledges delivered entry IDs for a consumer group.
func (s *ActivityStream) Ack(ctx context.Context, tenantID, consumerGroup string, entryIDs ...string) error {
	return s.log.Ack(ctx, streamKey(tenantID), consumerGroup, entryIDs...)
}

// Trim caps the tenant's stream to maxLen entries, discarding the oldest.
func (s *ActivityStream) Trim(ctx context.Context, tenantID string, maxLen int64) error {
	return s.log.Trim(ctx, streamKey(tenantID), maxLen)
}

// StreamLength returns the number of entries currently retained for a tenant.
func (s *ActivityStream) StreamLength(ctx context.Context, tenantID string) (int64, error) {
	return s.log.Length(ctx, streamKey(tenantID))
}
