package service

import (
	"context"
	"sync"
	"time"

	"github.com/clippy-oss/homie/im-client/internal/domain"
	"github.com/clippy-oss/homie/im-client/internal/logger"
)

// PresenceTracker keeps the online state of members as reported by
// presence.updated events.
type PresenceTracker struct {
	eventBus domain.EventBus

	mu     sync.RWMutex
	online map[domain.MemberID]bool
}

func NewPresenceTracker(eventBus domain.EventBus) *PresenceTracker {
	return &PresenceTracker{
		eventBus: eventBus,
		online:   make(map[domain.MemberID]bool),
	}
}

func (p *PresenceTracker) IsOnline(id domain.MemberID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online[id]
}

// Report publishes a presence change. The tracker picks it up through Run.
func (p *PresenceTracker) Report(id domain.MemberID, online bool) {
	p.eventBus.Publish(domain.PresenceUpdatedEvent{
		MemberID:  id,
		Online:    online,
		EventTime: time.Now(),
	})
}

// apply records the state and reports whether it changed.
func (p *PresenceTracker) apply(id domain.MemberID, online bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online[id] == online {
		return false
	}
	if online {
		p.online[id] = true
	} else {
		delete(p.online, id)
	}
	return true
}

// Run consumes presence events until ctx is done.
func (p *PresenceTracker) Run(ctx context.Context) {
	log := logger.Module("presence")
	ch := p.eventBus.Subscribe([]domain.EventType{domain.EventTypePresenceUpdated})
	defer p.eventBus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			e, ok := evt.(domain.PresenceUpdatedEvent)
			if !ok {
				continue
			}
			if p.apply(e.MemberID, e.Online) {
				log.Debug().Int64("member", int64(e.MemberID)).Bool("online", e.Online).Msg("Presence changed")
			}
		}
	}
}
