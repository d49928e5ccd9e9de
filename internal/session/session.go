package session

import (
	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/contacts"
	"github.com/vaani/client/internal/conversation"
	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/friends"
	"github.com/vaani/client/internal/model"
)

// Transport is the messaging and signaling collaborator of a session
type Transport interface {
	conversation.Outbox
	call.Signaler
}

// Session groups the per-user stores. It exists only while a user is signed in.
type Session struct {
	Identity      model.Identity
	Bus           *events.Bus
	Contacts      *contacts.Directory
	Conversations *conversation.Store
	Friends       *friends.Queue
	Calls         *call.Controller
}

func newSession(identity model.Identity, ownHandle func() string, opts Options) *Session {
	bus := events.NewBus(opts.Clock)
	dir := contacts.NewDirectory(bus, opts.Clock)
	calls := call.NewController(opts.Call, dir, nil, opts.Scheduler, bus, opts.Clock)

	var transport Transport
	if opts.NewTransport != nil {
		transport = opts.NewTransport(calls)
		calls.SetSignaler(transport)
	}
	var outbox conversation.Outbox
	if transport != nil {
		outbox = transport
	}

	return &Session{
		Identity:      identity,
		Bus:           bus,
		Contacts:      dir,
		Conversations: conversation.NewStore(dir, outbox, bus, opts.Clock),
		Friends:       friends.NewQueue(dir, ownHandle, bus, opts.Clock),
		Calls:         calls,
	}
}

// Close ends any call, drops every store's state and stops the event bus
func (s *Session) Close() {
	s.Calls.Close()
	s.Friends.Reset()
	s.Conversations.Reset()
	s.Contacts.Reset()
	s.Bus.Publish(events.SessionEnded, s.Identity)
	s.Bus.Close()
}
