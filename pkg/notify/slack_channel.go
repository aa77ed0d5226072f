package notify

import (
	"context"

	"github.com/coreflow-dev/agentcore/pkg/slack"
)

// SlackChannel adapts pkg/slack.Service to the Channel interface so it can
// be registered with a Dispatcher alongside other notification backends.
type SlackChannel struct {
	service *slack.Service
}

var _ Channel = (*SlackChannel)(nil)

// NewSlackChannel wraps an already-constructed Service. Returns nil if
// service is nil, matching slack.Service's own nil-safe convention — a
// Dispatcher is never handed a non-nil Channel that silently no-ops.
func NewSlackChannel(service *slack.Service) *SlackChannel {
	if service == nil {
		return nil
	}
	return &SlackChannel{service: service}
}

func (c *SlackChannel) Name() string {
	return "slack"
}

func (c *SlackChannel) Send(ctx context.Context, n Notification) error {
	c.service.NotifyEscalation(ctx, slack.EscalationInput{
		RequestID: n.RequestID,
		AgentID:   n.AgentID,
		TenantID:  n.TenantID,
		Urgency:   n.Urgency,
		Title:     n.Title,
		Body:      n.Body,
	})
	return nil
}
