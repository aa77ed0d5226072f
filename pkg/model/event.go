package model

import "time"

// Event is an in-process notification published on the EventBus (spec
// §4.8). Subscribers receive it synchronously per the teacher's
// ConnectionManager fan-out idiom, adapted to drop the WebSocket transport.
type Event struct {
	Type      string
	AgentID   string
	TenantID  string
	Payload   map[string]any
	Timestamp time.Time
}
