package contacts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/model"
)

// Directory holds the user's contacts and is the single source of truth for
// their presence. Other stores refer to contacts by id only.
type Directory struct {
	mu       sync.RWMutex
	contacts map[string]*entry
	seq      uint64

	bus   events.Publisher
	clock model.Clock
}

type entry struct {
	contact model.Contact
	seq     uint64 // insertion order, breaks activity ties
}

// NewDirectory creates an empty directory
func NewDirectory(bus events.Publisher, clock model.Clock) *Directory {
	if bus == nil {
		bus = events.Discard
	}
	if clock == nil {
		clock = model.LocalTime
	}
	return &Directory{
		contacts: make(map[string]*entry),
		bus:      bus,
		clock:    clock,
	}
}

// ListContacts returns all contacts, most recent activity first
func (d *Directory) ListContacts() []model.Contact {
	d.mu.RLock()
	entries := make([]entry, 0, len(d.contacts))
	for _, e := range d.contacts {
		entries = append(entries, *e)
	}
	d.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.contact.LastActivityAt.Equal(b.contact.LastActivityAt) {
			return a.contact.LastActivityAt.After(b.contact.LastActivityAt)
		}
		return a.seq > b.seq
	})

	out := make([]model.Contact, len(entries))
	for i, e := range entries {
		out[i] = e.contact
	}
	return out
}

// GetContact returns the contact with the given id
func (d *Directory) GetContact(id string) (model.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.contacts[id]
	if !ok {
		return model.Contact{}, fmt.Errorf("contact %q: %w", id, model.ErrNotFound)
	}
	return e.contact, nil
}

// Add inserts a contact. Adding an id that already exists returns the
// existing contact unchanged.
func (d *Directory) Add(c model.Contact) (model.Contact, error) {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return model.Contact{}, fmt.Errorf("contact id is required: %w", model.ErrInvalidInput)
	}
	if c.Presence == "" {
		c.Presence = model.PresenceOffline
	}
	if !c.Presence.Valid() {
		return model.Contact{}, fmt.Errorf("presence %q: %w", c.Presence, model.ErrInvalidInput)
	}
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	if c.LastActivityAt.IsZero() {
		c.LastActivityAt = d.clock.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.contacts[c.ID]; ok {
		return e.contact, nil
	}
	d.seq++
	d.contacts[c.ID] = &entry{contact: c, seq: d.seq}
	d.bus.Publish(events.ContactAdded, c)
	return c, nil
}

// Remove drops a contact (unfriend)
func (d *Directory) Remove(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.contacts[id]; !ok {
		return fmt.Errorf("contact %q: %w", id, model.ErrNotFound)
	}
	delete(d.contacts, id)
	d.bus.Publish(events.ContactRemoved, id)
	return nil
}

// SetPresence records a presence update. Repeating the current value is a no-op.
func (d *Directory) SetPresence(id string, presence model.Presence) error {
	if !presence.Valid() {
		return fmt.Errorf("presence %q: %w", presence, model.ErrInvalidInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.contacts[id]
	if !ok {
		return fmt.Errorf("contact %q: %w", id, model.ErrNotFound)
	}
	if e.contact.Presence == presence {
		return nil
	}
	e.contact.Presence = presence
	d.bus.Publish(events.ContactUpdated, e.contact)
	return nil
}

// RecordMessage updates the preview and activity time of a contact after a
// message was appended to its conversation; remote messages also bump the
// unread count.
func (d *Directory) RecordMessage(id, preview string, at time.Time, fromRemote bool) (model.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.contacts[id]
	if !ok {
		return model.Contact{}, fmt.Errorf("contact %q: %w", id, model.ErrNotFound)
	}
	e.contact.LastMessagePreview = preview
	if at.After(e.contact.LastActivityAt) {
		e.contact.LastActivityAt = at
	}
	if fromRemote {
		e.contact.UnreadCount++
	}
	d.bus.Publish(events.ContactUpdated, e.contact)
	return e.contact, nil
}

// ResetUnread zeroes the unread count of a contact
func (d *Directory) ResetUnread(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.contacts[id]
	if !ok {
		return fmt.Errorf("contact %q: %w", id, model.ErrNotFound)
	}
	if e.contact.UnreadCount == 0 {
		return nil
	}
	e.contact.UnreadCount = 0
	d.bus.Publish(events.ContactUpdated, e.contact)
	return nil
}

// Reset drops every contact
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts = make(map[string]*entry)
	d.seq = 0
}
