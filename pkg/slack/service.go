package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service handles Slack notification delivery for HITL requests and
// escalations. Nil-safe: all methods are no-ops when service is nil, so
// callers can wire it unconditionally without a feature-flag branch.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyEscalation sends a HITL request or escalation notification. When a
// prior message for the same request ID was already posted (reusing the
// request ID itself as the dedup fingerprint), the new notification threads
// under it instead of starting a fresh top-level message.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyEscalation(ctx context.Context, input EscalationInput) {
	if s == nil {
		return
	}

	threadTS, err := s.client.FindMessageByFingerprint(ctx, input.RequestID)
	if err != nil {
		s.logger.Warn("failed to find existing Slack thread for request",
			"request_id", input.RequestID, "error", err)
	}

	blocks := BuildEscalationMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 10*time.Second); err != nil {
		s.logger.Error("failed to send Slack escalation notification",
			"request_id", input.RequestID, "urgency", input.Urgency, "error", err)
	}
}
