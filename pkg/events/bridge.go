package events

import (
	"context"
	"log/slog"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

// Bridge registers a wildcard subscriber on bus that serializes every
// published Event into an ActivityEvent and appends it to stream. The
// subscriber runs synchronously inside Bus.Publish; a stream-publish failure
// is logged and dropped rather than returned, since the bus's ring buffer
// remains authoritative for short-term replay.
func Bridge(bus *Bus, stream *ActivityStream) {
	logger := slog.Default().With("component", "event-bridge")
	bus.SubscribeAll(func(evt model.Event) error {
		activity := ActivityEvent{
			EventType: evt.Type,
			Source:    SourceInternal,
			TenantID:  evt.TenantID,
			Payload:   evt.Payload,
			Timestamp: evt.Timestamp,
			Metadata:  map[string]any{"agent_id": evt.AgentID},
		}
		if _, err := stream.Publish(context.Background(), activity); err != nil {
			logger.Warn("activity stream publish failed, dropping", "event_type", evt.Type, "tenant_id", evt.TenantID, "error", err)
		}
		return nil
	})
}
