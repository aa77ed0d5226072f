package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	name string
	sent []Notification
	err  error
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, n Notification) error {
	c.sent = append(c.sent, n)
	return c.err
}

func TestDispatcher_DispatchFansOutToRegisteredChannels(t *testing.T) {
	d := NewDispatcher()
	slack := &recordingChannel{name: "slack"}
	email := &recordingChannel{name: "email"}
	d.Register(slack)
	d.Register(email)

	n := Notification{RequestID: "req-1", Title: "needs review"}
	d.Dispatch(context.Background(), []string{"slack", "email"}, n)

	require.Len(t, slack.sent, 1)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "req-1", slack.sent[0].RequestID)
}

func TestDispatcher_UnregisteredChannelIsSkippedNotFatal(t *testing.T) {
	d := NewDispatcher()
	slack := &recordingChannel{name: "slack"}
	d.Register(slack)

	// Should not panic or block on the unknown "pagerduty" channel.
	d.Dispatch(context.Background(), []string{"slack", "pagerduty"}, Notification{RequestID: "req-2"})

	assert.Len(t, slack.sent, 1)
}

func TestDispatcher_ChannelFailureDoesNotStopOtherDeliveries(t *testing.T) {
	d := NewDispatcher()
	failing := &recordingChannel{name: "failing", err: errors.New("boom")}
	ok := &recordingChannel{name: "ok"}
	d.Register(failing)
	d.Register(ok)

	d.Dispatch(context.Background(), []string{"failing", "ok"}, Notification{RequestID: "req-3"})

	assert.Len(t, failing.sent, 1)
	assert.Len(t, ok.sent, 1)
}
