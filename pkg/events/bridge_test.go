package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/activitylog"
	"github.com/coreflow-dev/agentcore/pkg/model"
)

func TestBridge_PublishedEventsLandInActivityStream(t *testing.T) {
	bus := NewBus()
	stream := NewActivityStream(activitylog.NewMemoryLog())
	Bridge(bus, stream)

	bus.Publish(model.Event{
		Type:      EventTypeHITLCreated,
		AgentID:   "agent-1",
		TenantID:  "tenant-1",
		Payload:   map[string]any{"request_id": "req-1"},
		Timestamp: time.Now(),
	})

	entries, err := stream.Read(t.Context(), "tenant-1", "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventTypeHITLCreated, entries[0].Fields["event_type"])
	assert.Equal(t, SourceInternal, entries[0].Fields["source"])
}

func TestBridge_DoesNotPanicOnEmptyTenant(t *testing.T) {
	bus := NewBus()
	stream := NewActivityStream(activitylog.NewMemoryLog())
	Bridge(bus, stream)

	bus.Publish(model.Event{Type: EventTypeAgentStatus})
}
