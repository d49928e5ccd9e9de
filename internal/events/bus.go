package events

import (
	"sync"
	"time"

	"github.com/vaani/client/internal/model"
)

// Type represents different change notification types
type Type string

const (
	// Session events
	SessionStarted Type = "session_started"
	SessionEnded   Type = "session_ended"
	ProfileUpdated Type = "profile_updated"

	// Contact directory events
	ContactAdded   Type = "contact_added"
	ContactUpdated Type = "contact_updated"
	ContactRemoved Type = "contact_removed"

	// Conversation events
	MessageAppended  Type = "message_appended"
	MessageUpdated   Type = "message_updated"
	ConversationRead Type = "conversation_read"

	// Friend request events
	FriendRequestAdded    Type = "friend_request_added"
	FriendRequestResolved Type = "friend_request_resolved"
	FriendRequestSent     Type = "friend_request_sent"

	// Call events
	CallStateChanged Type = "call_state_changed"
	CallTick         Type = "call_tick"
)

// Event is a single change notification
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives events. Handlers run on the bus goroutine and must not block.
type Handler func(Event)

// Publisher is the side of the bus the stores see
type Publisher interface {
	Publish(t Type, payload any)
}

type subscription struct {
	id uint64
	fn Handler
}

// Bus queues events and delivers them, in publish order, on a single
// goroutine. Publish never runs handlers, so stores may publish while
// holding their own locks.
type Bus struct {
	clock model.Clock

	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	queue  []Event
	closed bool

	pending int
	drained *sync.Cond

	wake chan struct{}
	done chan struct{}
}

// NewBus creates a bus and starts its dispatch goroutine
func NewBus(clock model.Clock) *Bus {
	if clock == nil {
		clock = model.LocalTime
	}
	b := &Bus{
		clock: clock,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	b.drained = sync.NewCond(&b.mu)
	go b.run()
	return b
}

// Publish queues an event; it is dropped once the bus is closed
func (b *Bus) Publish(t Type, payload any) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, Event{Type: t, Payload: payload, Timestamp: b.clock.Now()})
	b.pending++
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Subscribe registers fn and returns a function that removes it
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Flush blocks until every event published so far has been delivered
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.pending > 0 {
		b.drained.Wait()
	}
}

// Close delivers the queued events, then stops the dispatch goroutine
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.Flush()
	close(b.done)
}

func (b *Bus) run() {
	for {
		select {
		case <-b.wake:
		case <-b.done:
			return
		}

		for {
			b.mu.Lock()
			if len(b.queue) == 0 {
				b.mu.Unlock()
				break
			}
			batch := b.queue
			b.queue = nil
			subs := append([]subscription(nil), b.subs...)
			b.mu.Unlock()

			for _, ev := range batch {
				for _, s := range subs {
					s.fn(ev)
				}
			}

			b.mu.Lock()
			b.pending -= len(batch)
			if b.pending == 0 {
				b.drained.Broadcast()
			}
			b.mu.Unlock()
		}
	}
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Type, any) {}
