package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/activitylog"
)

func TestActivityStream_PublishAndRead(t *testing.T) {
	s := NewActivityStream(activitylog.NewMemoryLog())
	ctx := context.Background()

	id, err := s.Publish(ctx, ActivityEvent{
		EventType: EventTypeHITLCreated,
		TenantID:  "tenant-1",
		Payload:   map[string]any{"request_id": "req-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := s.Read(ctx, "tenant-1", "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventTypeHITLCreated, entries[0].Fields["event_type"])
}

func TestActivityStream_ReadLatestAndLength(t *testing.T) {
	s := NewActivityStream(activitylog.NewMemoryLog())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Publish(ctx, ActivityEvent{EventType: EventTypeAgentStatus, TenantID: "tenant-1"})
		require.NoError(t, err)
	}

	n, err := s.StreamLength(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	latest, err := s.ReadLatest(ctx, "tenant-1", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
}

func TestActivityStream_TenantsAreIsolated(t *testing.T) {
	s := NewActivityStream(activitylog.NewMemoryLog())
	ctx := context.Background()

	_, err := s.Publish(ctx, ActivityEvent{EventType: EventTypeAgentStatus, TenantID: "tenant-a"})
	require.NoError(t, err)

	entries, err := s.Read(ctx, "tenant-b", "", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestActivityStream_ReadGroupAndAck(t *testing.T) {
	s := NewActivityStream(activitylog.NewMemoryLog())
	ctx := context.Background()

	_, err := s.Publish(ctx, ActivityEvent{EventType: EventTypeEscalationRaised, TenantID: "tenant-1"})
	require.NoError(t, err)

	entries, err := s.ReadGroup(ctx, "tenant-1", "workers", "c1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.Ack(ctx, "tenant-1", "workers", entries[0].ID))
}
