package friends

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/model"
)

// Directory is the part of the contact directory an accepted request writes to
type Directory interface {
	Add(c model.Contact) (model.Contact, error)
}

// Queue holds pending inbound friend requests and the requests the local
// user has sent.
type Queue struct {
	mu       sync.Mutex
	pending  []model.FriendRequest
	outgoing []model.OutgoingRequest

	contacts  Directory
	ownHandle func() string
	bus       events.Publisher
	clock     model.Clock
}

// NewQueue creates an empty queue. ownHandle reports the local user's public
// handle so that it cannot be sent a request.
func NewQueue(contacts Directory, ownHandle func() string, bus events.Publisher, clock model.Clock) *Queue {
	if ownHandle == nil {
		ownHandle = func() string { return "" }
	}
	if bus == nil {
		bus = events.Discard
	}
	if clock == nil {
		clock = model.LocalTime
	}
	return &Queue{
		contacts:  contacts,
		ownHandle: ownHandle,
		bus:       bus,
		clock:     clock,
	}
}

// Enqueue adds an inbound request. A request id already pending is ignored.
func (q *Queue) Enqueue(req model.FriendRequest) error {
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.FromID) == "" {
		return fmt.Errorf("request id and sender are required: %w", model.ErrInvalidInput)
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = q.clock.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexLocked(req.ID) >= 0 {
		return nil
	}
	q.pending = append(q.pending, req)
	q.bus.Publish(events.FriendRequestAdded, req)
	return nil
}

// Pending returns the inbound requests, oldest first
func (q *Queue) Pending() []model.FriendRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.FriendRequest{}, q.pending...)
}

// Accept removes the request and adds its sender to the contact directory
func (q *Queue) Accept(id string) (model.Contact, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(id)
	if i < 0 {
		return model.Contact{}, fmt.Errorf("friend request %q: %w", id, model.ErrNotFound)
	}
	req := q.pending[i]

	contact, err := q.contacts.Add(model.Contact{
		ID:          req.FromID,
		DisplayName: req.FromDisplayName,
		AvatarRef:   req.FromAvatarRef,
		Presence:    model.PresenceOffline,
	})
	if err != nil {
		return model.Contact{}, fmt.Errorf("accept friend request %q: %w", id, err)
	}

	q.removeLocked(i)
	q.bus.Publish(events.FriendRequestResolved, map[string]any{"id": id, "accepted": true})
	return contact, nil
}

// Decline removes the request without creating a contact
func (q *Queue) Decline(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("friend request %q: %w", id, model.ErrNotFound)
	}
	q.removeLocked(i)
	q.bus.Publish(events.FriendRequestResolved, map[string]any{"id": id, "accepted": false})
	return nil
}

// SendRequest records an outgoing request to the user with the given public handle
func (q *Queue) SendRequest(handle string) (model.OutgoingRequest, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if !auth.ValidHandle(handle) {
		return model.OutgoingRequest{}, fmt.Errorf("handle %q: %w", handle, model.ErrInvalidInput)
	}
	if handle == q.ownHandle() {
		return model.OutgoingRequest{}, fmt.Errorf("cannot send a request to yourself: %w", model.ErrInvalidInput)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, r := range q.outgoing {
		if r.ToHandle == handle {
			return model.OutgoingRequest{}, fmt.Errorf("request to %s already sent: %w", handle, model.ErrInvalidState)
		}
	}
	req := model.OutgoingRequest{
		ID:        uuid.New().String(),
		ToHandle:  handle,
		CreatedAt: q.clock.Now(),
	}
	q.outgoing = append(q.outgoing, req)
	q.bus.Publish(events.FriendRequestSent, req)
	return req, nil
}

// Outgoing returns the requests sent by the local user, oldest first
func (q *Queue) Outgoing() []model.OutgoingRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.OutgoingRequest{}, q.outgoing...)
}

// CancelRequest withdraws an outgoing request
func (q *Queue) CancelRequest(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.outgoing {
		if r.ID == id {
			q.outgoing = append(q.outgoing[:i], q.outgoing[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("outgoing request %q: %w", id, model.ErrNotFound)
}

// Reset drops every inbound and outgoing request
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.outgoing = nil
}

func (q *Queue) indexLocked(id string) int {
	for i, r := range q.pending {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) removeLocked(i int) {
	q.pending = append(q.pending[:i], q.pending[i+1:]...)
}
