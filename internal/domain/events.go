package domain

import (
	"sync"
	"time"
)

type EventType string

const (
	EventTypeChatStatus      EventType = "chat.status"
	EventTypeChatUpdated     EventType = "chat.updated"
	EventTypeChatRemoved     EventType = "chat.removed"
	EventTypeMessageReceived EventType = "message.received"
	EventTypeMessageRead     EventType = "message.read"
	EventTypePresenceUpdated EventType = "presence.updated"
)

type Event interface {
	Type() EventType
	Timestamp() time.Time
}

type ChatStatusEvent struct {
	ChatGID   string
	Status    ChatStatus
	EventTime time.Time
}

func (e ChatStatusEvent) Type() EventType      { return EventTypeChatStatus }
func (e ChatStatusEvent) Timestamp() time.Time { return e.EventTime }

// ChatUpdatedEvent carries a snapshot, so subscribers never share the live chat.
type ChatUpdatedEvent struct {
	Chat      ChatRecord
	EventTime time.Time
}

func (e ChatUpdatedEvent) Type() EventType      { return EventTypeChatUpdated }
func (e ChatUpdatedEvent) Timestamp() time.Time { return e.EventTime }

type ChatRemovedEvent struct {
	ChatGID   string
	EventTime time.Time
}

func (e ChatRemovedEvent) Type() EventType      { return EventTypeChatRemoved }
func (e ChatRemovedEvent) Timestamp() time.Time { return e.EventTime }

type MessageReceivedEvent struct {
	ChatGID   string
	Messages  []Message
	EventTime time.Time
}

func (e MessageReceivedEvent) Type() EventType      { return EventTypeMessageReceived }
func (e MessageReceivedEvent) Timestamp() time.Time { return e.EventTime }

type MessageReadEvent struct {
	ChatGID     string
	MessageGIDs []string
	EventTime   time.Time
}

func (e MessageReadEvent) Type() EventType      { return EventTypeMessageRead }
func (e MessageReadEvent) Timestamp() time.Time { return e.EventTime }

type PresenceUpdatedEvent struct {
	MemberID  MemberID
	Online    bool
	EventTime time.Time
}

func (e PresenceUpdatedEvent) Type() EventType      { return EventTypePresenceUpdated }
func (e PresenceUpdatedEvent) Timestamp() time.Time { return e.EventTime }

// EventBus provides pub/sub for domain events
type EventBus interface {
	Publish(event Event)
	Subscribe(eventTypes []EventType) <-chan Event
	Unsubscribe(ch <-chan Event)
}

// SimpleEventBus fans events out to buffered subscriber channels. A subscriber
// whose buffer is full misses the event instead of blocking the publisher.
type SimpleEventBus struct {
	mu          sync.RWMutex
	bufferSize  int
	subscribers map[<-chan Event]subscription
}

type subscription struct {
	ch    chan Event
	types map[EventType]struct{}
}

func (s subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

func NewEventBus() *SimpleEventBus {
	return NewEventBusSize(100)
}

func NewEventBusSize(bufferSize int) *SimpleEventBus {
	return &SimpleEventBus{
		bufferSize:  bufferSize,
		subscribers: make(map[<-chan Event]subscription),
	}
}

func (b *SimpleEventBus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.wants(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving events of the given types, or of every
// type when eventTypes is empty.
func (b *SimpleEventBus) Subscribe(eventTypes []EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscription{
		ch:    make(chan Event, b.bufferSize),
		types: make(map[EventType]struct{}, len(eventTypes)),
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
	b.subscribers[sub.ch] = sub
	return sub.ch
}

func (b *SimpleEventBus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[ch]; ok {
		close(sub.ch)
		delete(b.subscribers, ch)
	}
}
