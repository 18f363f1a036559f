package server

import (
	"context"
	"sync"
	"time"
)

const (
	SessionEventSignedIn  = "signed-in"
	SessionEventSignedOut = "signed-out"
	sessionEventHeartbeat = "heartbeat"
)

// SessionEvent announces one sign-in or sign-out transition for an identity.
type SessionEvent struct {
	IdentityID string
	Email      string
	EventType  string
	Timestamp  time.Time
}

// SessionBroadcaster fans session events out to the subscribers of the affected
// identity. Slow subscribers drop events rather than block the publisher.
type SessionBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*sessionSubscriber
	nextID      int64
	bufferSize  int
}

type sessionSubscriber struct {
	id     int64
	stream chan SessionEvent
}

func NewSessionBroadcaster() *SessionBroadcaster {
	return &SessionBroadcaster{
		subscribers: make(map[string]map[int64]*sessionSubscriber),
		bufferSize:  16,
	}
}

func (b *SessionBroadcaster) Subscribe(ctx context.Context, identityID string) (<-chan SessionEvent, func()) {
	if identityID == "" {
		ch := make(chan SessionEvent)
		close(ch)
		return ch, func() {}
	}
	subscriber := &sessionSubscriber{
		id:     b.nextSequence(),
		stream: make(chan SessionEvent, b.bufferSize),
	}
	b.registerSubscriber(identityID, subscriber)
	cleanup := func() {
		b.unregisterSubscriber(identityID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (b *SessionBroadcaster) Publish(event SessionEvent) {
	if event.IdentityID == "" || event.EventType == "" {
		return
	}
	b.mu.RLock()
	subscribers := b.subscribers[event.IdentityID]
	if len(subscribers) == 0 {
		b.mu.RUnlock()
		return
	}
	copies := make([]*sessionSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	b.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (b *SessionBroadcaster) nextSequence() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

func (b *SessionBroadcaster) registerSubscriber(identityID string, subscriber *sessionSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[identityID]; !ok {
		b.subscribers[identityID] = make(map[int64]*sessionSubscriber)
	}
	b.subscribers[identityID][subscriber.id] = subscriber
}

func (b *SessionBroadcaster) unregisterSubscriber(identityID string, subscriberID int64) {
	b.mu.Lock()
	subscribers := b.subscribers[identityID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(b.subscribers, identityID)
		}
	}
	b.mu.Unlock()
}
