// Package notify fans escalation and HITL notifications out to one or more
// channels (spec §4.4's notify_channel, §C's notification fan-out
// supplement). Every delivery is best-effort: a channel failing to deliver
// never blocks or fails the escalation that triggered it.
//
// Grounded on pkg/slack/service.go's nil-safe, fail-open idiom: Channel
// implementations log their own delivery errors and never return one to
// the Dispatcher, and a Dispatcher with zero registered channels for a
// requested name simply skips it.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Notification is one message to deliver.
type Notification struct {
	TenantID  string
	AgentID   string
	RequestID string
	Urgency   string // low | medium | high | critical
	Title     string
	Body      string
	Metadata  map[string]any
}

// Channel delivers notifications to one destination (Slack, email, webhook, ...).
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Dispatcher fans a notification out to named channels.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
	logger   *slog.Logger
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		channels: map[string]Channel{},
		logger:   slog.Default().With("component", "notify-dispatcher"),
	}
}

// Register adds a channel, keyed by its own Name().
func (d *Dispatcher) Register(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[ch.Name()] = ch
}

// Dispatch delivers a notification to the named channels, logging (never
// returning) any per-channel failure. An unregistered channel name is
// logged and skipped, not treated as an error — deployments commonly run
// with a subset of channels configured.
func (d *Dispatcher) Dispatch(ctx context.Context, channelNames []string, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, name := range channelNames {
		ch, ok := d.channels[name]
		if !ok {
			d.logger.Warn("notification channel not registered, skipping", "channel", name, "request_id", n.RequestID)
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			d.logger.Error("failed to deliver notification", "channel", name, "request_id", n.RequestID, "error", err)
		}
	}
}
