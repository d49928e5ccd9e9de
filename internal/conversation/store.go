package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/model"
)

// Directory is the part of the contact directory the store updates after
// every append. Calls into it happen under the store's lock.
type Directory interface {
	GetContact(id string) (model.Contact, error)
	RecordMessage(id, preview string, at time.Time, fromRemote bool) (model.Contact, error)
	ResetUnread(id string) error
	Remove(id string) error
}

// Outbox receives messages written by the local user
type Outbox interface {
	OnLocalMessageSent(contactID string, msg model.Message)
}

type OutboxFunc func(contactID string, msg model.Message)

func (fn OutboxFunc) OnLocalMessageSent(contactID string, msg model.Message) {
	fn(contactID, msg)
}

type thread struct {
	messages []model.Message
	index    map[string]int // message id -> position
	cursor   string         // last read message id
}

func (l *thread) last() (model.Message, bool) {
	if len(l.messages) == 0 {
		return model.Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Store keeps one append-only message log per contact
type Store struct {
	mu      sync.Mutex
	threads map[string]*thread

	contacts Directory
	outbox   Outbox
	bus      events.Publisher
	clock    model.Clock
}

// NewStore creates a conversation store backed by the given directory
func NewStore(contacts Directory, outbox Outbox, bus events.Publisher, clock model.Clock) *Store {
	if bus == nil {
		bus = events.Discard
	}
	if clock == nil {
		clock = model.LocalTime
	}
	return &Store{
		threads:  make(map[string]*thread),
		contacts: contacts,
		outbox:   outbox,
		bus:      bus,
		clock:    clock,
	}
}

// Preview returns the contact list summary of a message
func Preview(msg model.Message) string {
	if msg.Kind == model.KindText || msg.Kind == "" {
		return msg.Body
	}
	return "[" + string(msg.Kind) + "]"
}

// AppendMessage adds msg to the conversation with contactID. A message whose
// id is already in the log is ignored; one older than the last entry is
// rejected with ErrOutOfOrderMessage.
func (s *Store) AppendMessage(contactID string, msg model.Message) error {
	if strings.TrimSpace(msg.ID) == "" {
		return fmt.Errorf("message id is required: %w", model.ErrInvalidInput)
	}
	if msg.Kind == "" {
		msg.Kind = model.KindText
	}
	if !msg.Kind.Valid() {
		return fmt.Errorf("message kind %q: %w", msg.Kind, model.ErrInvalidInput)
	}
	if msg.SenderID == "" {
		msg.SenderID = contactID
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = s.clock.Now()
	}
	msg.ConversationID = contactID

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.appendLocked(contactID, msg)
	return err
}

// OnRemoteMessage is the inbound hook of the messaging transport. Redelivery
// of a known message id is a no-op.
func (s *Store) OnRemoteMessage(contactID string, msg model.Message) error {
	if msg.SenderID == "" || msg.SenderID == model.SelfID {
		msg.SenderID = contactID
	}
	return s.AppendMessage(contactID, msg)
}

// Send appends a message written by the local user and hands it to the outbox
func (s *Store) Send(contactID, body string, kind model.MessageKind, replyToID string) (model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return model.Message{}, fmt.Errorf("message body is empty: %w", model.ErrInvalidInput)
	}
	if kind == "" {
		kind = model.KindText
	}
	if !kind.Valid() {
		return model.Message{}, fmt.Errorf("message kind %q: %w", kind, model.ErrInvalidInput)
	}

	s.mu.Lock()
	l := s.threads[contactID]
	if replyToID != "" {
		if l == nil {
			s.mu.Unlock()
			return model.Message{}, fmt.Errorf("reply to %q: %w", replyToID, model.ErrNotFound)
		}
		if _, ok := l.index[replyToID]; !ok {
			s.mu.Unlock()
			return model.Message{}, fmt.Errorf("reply to %q: %w", replyToID, model.ErrNotFound)
		}
	}

	sentAt := s.clock.Now()
	if l != nil {
		if last, ok := l.last(); ok && sentAt.Before(last.SentAt) {
			sentAt = last.SentAt
		}
	}
	msg := model.Message{
		ID:             uuid.New().String(),
		ConversationID: contactID,
		SenderID:       model.SelfID,
		Body:           body,
		SentAt:         sentAt,
		Kind:           kind,
		ReplyToID:      replyToID,
	}
	appended, err := s.appendLocked(contactID, msg)
	s.mu.Unlock()
	if err != nil {
		return model.Message{}, err
	}

	if s.outbox != nil {
		s.outbox.OnLocalMessageSent(contactID, appended.Clone())
	}
	return appended, nil
}

func (s *Store) appendLocked(contactID string, msg model.Message) (model.Message, error) {
	if _, err := s.contacts.GetContact(contactID); err != nil {
		return model.Message{}, err
	}

	l := s.threads[contactID]
	if l == nil {
		l = &thread{index: make(map[string]int)}
		s.threads[contactID] = l
	}
	if pos, ok := l.index[msg.ID]; ok {
		return l.messages[pos].Clone(), nil
	}
	if last, ok := l.last(); ok && msg.SentAt.Before(last.SentAt) {
		return model.Message{}, fmt.Errorf("message %q sent at %s before %s: %w",
			msg.ID, msg.SentAt.Format(time.RFC3339Nano), last.SentAt.Format(time.RFC3339Nano), model.ErrOutOfOrderMessage)
	}

	stored := msg.Clone()
	if _, err := s.contacts.RecordMessage(contactID, Preview(stored), stored.SentAt, !stored.FromSelf()); err != nil {
		return model.Message{}, fmt.Errorf("record message: %w", err)
	}
	l.index[stored.ID] = len(l.messages)
	l.messages = append(l.messages, stored)
	s.bus.Publish(events.MessageAppended, stored.Clone())
	return stored.Clone(), nil
}

// GetMessages returns the conversation with contactID in chronological order
func (s *Store) GetMessages(contactID string) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.contacts.GetContact(contactID); err != nil {
		return nil, err
	}
	l := s.threads[contactID]
	if l == nil {
		return []model.Message{}, nil
	}
	out := make([]model.Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = m.Clone()
	}
	return out, nil
}

// MarkRead zeroes the unread count of contactID and moves its read cursor to
// uptoMessageID, or to the latest message when uptoMessageID is empty.
func (s *Store) MarkRead(contactID, uptoMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.contacts.GetContact(contactID); err != nil {
		return err
	}
	l := s.threads[contactID]
	if l == nil {
		l = &thread{index: make(map[string]int)}
		s.threads[contactID] = l
	}

	cursor := uptoMessageID
	if cursor == "" {
		if last, ok := l.last(); ok {
			cursor = last.ID
		}
	} else if _, ok := l.index[cursor]; !ok {
		return fmt.Errorf("message %q: %w", cursor, model.ErrNotFound)
	}

	l.cursor = cursor
	if err := s.contacts.ResetUnread(contactID); err != nil {
		return err
	}
	s.bus.Publish(events.ConversationRead, map[string]string{"contact_id": contactID, "upto": cursor})
	return nil
}

// ReadCursor returns the id of the last message marked read
func (s *Store) ReadCursor(contactID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.threads[contactID]; l != nil {
		return l.cursor
	}
	return ""
}

// EditMessage replaces the body of one of the local user's messages
func (s *Store) EditMessage(contactID, messageID, body string) (model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return model.Message{}, fmt.Errorf("message body is empty: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, pos, err := s.findLocked(contactID, messageID)
	if err != nil {
		return model.Message{}, err
	}
	msg := &l.messages[pos]
	if !msg.FromSelf() {
		return model.Message{}, fmt.Errorf("edit message %q from %s: %w", messageID, msg.SenderID, model.ErrInvalidState)
	}
	msg.Body = body
	msg.Edited = true

	if pos == len(l.messages)-1 {
		if _, err := s.contacts.RecordMessage(contactID, Preview(*msg), msg.SentAt, false); err != nil {
			return model.Message{}, fmt.Errorf("record message: %w", err)
		}
	}
	s.bus.Publish(events.MessageUpdated, msg.Clone())
	return msg.Clone(), nil
}

// React adds one emoji reaction to a message
func (s *Store) React(contactID, messageID, emoji string) (model.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return model.Message{}, fmt.Errorf("reaction is empty: %w", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, pos, err := s.findLocked(contactID, messageID)
	if err != nil {
		return model.Message{}, err
	}
	msg := &l.messages[pos]
	if msg.Reactions == nil {
		msg.Reactions = make(map[string]int)
	}
	msg.Reactions[emoji]++
	s.bus.Publish(events.MessageUpdated, msg.Clone())
	return msg.Clone(), nil
}

func (s *Store) findLocked(contactID, messageID string) (*thread, int, error) {
	if _, err := s.contacts.GetContact(contactID); err != nil {
		return nil, 0, err
	}
	l := s.threads[contactID]
	if l == nil {
		return nil, 0, fmt.Errorf("message %q: %w", messageID, model.ErrNotFound)
	}
	pos, ok := l.index[messageID]
	if !ok {
		return nil, 0, fmt.Errorf("message %q: %w", messageID, model.ErrNotFound)
	}
	return l, pos, nil
}

// RemoveContact unfriends contactID and drops its conversation, so adding
// the contact again starts an empty log
func (s *Store) RemoveContact(contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.contacts.Remove(contactID); err != nil {
		return err
	}
	delete(s.threads, contactID)
	return nil
}

// Reset drops every conversation
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string]*thread)
}
