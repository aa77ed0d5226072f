package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow-dev/agentcore/pkg/model"
)

func TestBus_PublishDeliversToTypedAndWildcardSubscribers(t *testing.T) {
	b := NewBus()
	var typedSeen, wildcardSeen []model.Event

	b.Subscribe(EventTypeAgentStatus, func(e model.Event) error {
		typedSeen = append(typedSeen, e)
		return nil
	})
	b.SubscribeAll(func(e model.Event) error {
		wildcardSeen = append(wildcardSeen, e)
		return nil
	})

	b.Publish(model.Event{Type: EventTypeAgentStatus, AgentID: "a1"})
	b.Publish(model.Event{Type: EventTypeHITLCreated, AgentID: "a2"})

	require.Len(t, typedSeen, 1)
	assert.Equal(t, "a1", typedSeen[0].AgentID)
	require.Len(t, wildcardSeen, 2)
}

func TestBus_SubscriberErrorDoesNotBlockOthers(t *testing.T) {
	b := NewBus()
	var secondCalled bool

	b.Subscribe(EventTypeAgentStatus, func(model.Event) error {
		return errors.New("boom")
	})
	b.Subscribe(EventTypeAgentStatus, func(model.Event) error {
		secondCalled = true
		return nil
	})

	b.Publish(model.Event{Type: EventTypeAgentStatus})
	assert.True(t, secondCalled)
}

func TestBus_RecentReturnsNewestLast(t *testing.T) {
	b := NewBus()
	for i := 0; i < 5; i++ {
		b.Publish(model.Event{Type: EventTypeAgentStatus, AgentID: string(rune('a' + i))})
	}

	recent := b.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[2].AgentID)
}

func TestBus_RecentWrapsAroundRingBuffer(t *testing.T) {
	b := NewBus()
	for i := 0; i < ringSize+10; i++ {
		b.Publish(model.Event{Type: EventTypeAgentStatus, Payload: map[string]any{"i": i}})
	}

	recent := b.Recent(5)
	require.Len(t, recent, 5)
	last := recent[4].Payload["i"].(int)
	assert.Equal(t, ringSize+9, last)
}
