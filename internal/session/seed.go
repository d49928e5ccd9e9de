package session

import (
	"fmt"
	"time"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/model"
)

type demoContact struct {
	id, name, emoji, lastMessage string
	presence                     model.Presence
}

var demoContacts = []demoContact{
	{"u1", "Aarav", "🔥", "See you there!", model.PresenceOnline},
	{"u2", "Isha", "🦄", "That sounds great", model.PresenceOffline},
	{"u3", "Kabir", "🎮", "Did you see the news?", model.PresenceOnline},
	{"u4", "Maya", "🌊", "Let me check on that", model.PresenceOffline},
	{"u5", "Rohan", "🚀", "Vaani is awesome!", model.PresenceOnline},
}

// Seed fills a fresh session with the demo contacts, one pending friend
// request and a short conversation with the first contact.
func Seed(sess *Session, clock model.Clock) error {
	if clock == nil {
		clock = model.LocalTime
	}
	now := clock.Now()

	for i, c := range demoContacts {
		_, err := sess.Contacts.Add(model.Contact{
			ID:                 c.id,
			DisplayName:        c.name,
			AvatarRef:          auth.AvatarFromEmoji(c.emoji),
			Presence:           c.presence,
			LastMessagePreview: c.lastMessage,
			LastActivityAt:     now.Add(-time.Duration(i+1) * time.Hour),
		})
		if err != nil {
			return fmt.Errorf("seed contact %s: %w", c.id, err)
		}
	}

	err := sess.Friends.Enqueue(model.FriendRequest{
		ID:              "r1",
		FromID:          "u99",
		FromDisplayName: "Sarah",
		FromAvatarRef:   auth.AvatarFromEmoji("🌸"),
		CreatedAt:       now.Add(-time.Hour),
	})
	if err != nil {
		return fmt.Errorf("seed friend request: %w", err)
	}

	first := demoContacts[0].id
	starter := []model.Message{
		{ID: "seed-1", SenderID: first, Body: "Hey! How's it going?", SentAt: now.Add(-100 * time.Second)},
		{ID: "seed-2", SenderID: model.SelfID, Body: "Doing great, love the new purple theme in Vaani!", SentAt: now.Add(-50 * time.Second)},
		{ID: "seed-3", SenderID: first, Body: "It's so smooth, right? 💜", SentAt: now.Add(-20 * time.Second)},
	}
	for _, msg := range starter {
		msg.Kind = model.KindText
		if err := sess.Conversations.AppendMessage(first, msg); err != nil {
			return fmt.Errorf("seed message %s: %w", msg.ID, err)
		}
	}
	return nil
}
