package service

import "sync"

// EventType names a sync lifecycle notification.
type EventType string

const (
	EventSyncStart           EventType = "sync-start"
	EventSyncComplete        EventType = "sync-complete"
	EventSyncError           EventType = "sync-error"
	EventConflictResolved    EventType = "conflict-resolved"
	EventInitialSyncProgress EventType = "initial-sync-progress"
)

// ConflictType tells how a local record was overridden by the server.
type ConflictType string

const (
	ConflictUpdated ConflictType = "updated"
	ConflictDeleted ConflictType = "deleted"
)

// Conflict describes a record reconciled during pull.
type Conflict struct {
	Table    string
	RecordID string
	// Title is the entry title when known, otherwise the record id.
	Title string
	Type  ConflictType
}

// Event is delivered to every subscriber of an [EventBus].
type Event struct {
	Type EventType

	// ChangedIDs is set on sync-complete.
	ChangedIDs []string

	// Err is set on sync-error.
	Err error

	// Progress is the cumulative number of records applied, set on
	// initial-sync-progress.
	Progress int

	// Conflict is set on conflict-resolved.
	Conflict *Conflict
}

// EventBus is an in-process publish/subscribe bus. Listeners run
// synchronously on the publishing goroutine, in subscription order.
type EventBus struct {
	mu        sync.RWMutex
	nextID    int
	order     []int
	listeners map[int]func(Event)
}

func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *EventBus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers e to every current listener.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.listeners))
	for _, id := range b.order {
		if fn, ok := b.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
