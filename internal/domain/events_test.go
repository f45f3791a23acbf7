package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusFiltersByType(t *testing.T) {
	bus := NewEventBus()
	statuses := bus.Subscribe([]EventType{EventTypeChatStatus})
	all := bus.Subscribe(nil)

	bus.Publish(ChatStatusEvent{ChatGID: "g", Status: StatusOK, EventTime: time.Now()})
	bus.Publish(PresenceUpdatedEvent{MemberID: 2, Online: true, EventTime: time.Now()})

	require.Len(t, statuses, 1)
	ev := <-statuses
	assert.Equal(t, EventTypeChatStatus, ev.Type())
	assert.Len(t, all, 2)
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBusSize(1)
	ch := bus.Subscribe(nil)
	bus.Publish(ChatRemovedEvent{ChatGID: "a"})
	bus.Publish(ChatRemovedEvent{ChatGID: "b"})

	ev := <-ch
	assert.Equal(t, "a", ev.(ChatRemovedEvent).ChatGID)
	assert.Len(t, ch, 0)
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(nil)
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	bus.Publish(ChatRemovedEvent{ChatGID: "a"})
}
