package model

import (
	"encoding/json"
	"time"
)

// SelfID is the sender id of messages written by the signed-in user
const SelfID = "self"

// Presence is the online/offline indicator of a user or contact
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

// Valid reports whether p is a known presence value
func (p Presence) Valid() bool {
	return p == PresenceOnline || p == PresenceOffline
}

// Identity represents the authenticated user for the lifetime of a session
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile represents the public profile of the signed-in user
type Profile struct {
	OwnerID      string    `json:"owner_id"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	Emoji        string    `json:"emoji"`
	AvatarRef    string    `json:"avatar_ref"`
	PublicHandle string    `json:"public_handle"` // va-NNNN
	Presence     Presence  `json:"presence"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Contact represents a friend from the current user's perspective
type Contact struct {
	ID                 string    `json:"id"`
	DisplayName        string    `json:"display_name"`
	AvatarRef          string    `json:"avatar_ref"`
	Presence           Presence  `json:"presence"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	UnreadCount        int       `json:"unread_count"`
	LastActivityAt     time.Time `json:"last_activity_at"`
}

// MessageKind is the content type of a message
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindLocation MessageKind = "location"
)

// Valid reports whether k is a known message kind
func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindLocation:
		return true
	}
	return false
}

// Message represents one entry of a conversation log
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Body           string         `json:"body"`
	SentAt         time.Time      `json:"sent_at"`
	Kind           MessageKind    `json:"kind"`
	Reactions      map[string]int `json:"reactions,omitempty"`
	Edited         bool           `json:"edited,omitempty"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
}

// FromSelf reports whether the message was written by the signed-in user
func (m Message) FromSelf() bool {
	return m.SenderID == SelfID
}

// Clone returns a copy of m that shares no mutable state with it
func (m Message) Clone() Message {
	if m.Reactions != nil {
		reactions := make(map[string]int, len(m.Reactions))
		for emoji, n := range m.Reactions {
			reactions[emoji] = n
		}
		m.Reactions = reactions
	}
	return m
}

// FriendRequest represents a pending inbound connection request
type FriendRequest struct {
	ID              string    `json:"id"`
	FromID          string    `json:"from_id"`
	FromDisplayName string    `json:"from_display_name"`
	FromAvatarRef   string    `json:"from_avatar_ref"`
	CreatedAt       time.Time `json:"created_at"`
}

// OutgoingRequest represents a connection request sent by the current user
type OutgoingRequest struct {
	ID        string    `json:"id"`
	ToHandle  string    `json:"to_handle"`
	CreatedAt time.Time `json:"created_at"`
}

// CallKind is the media type of a call
type CallKind string

const (
	CallVoice CallKind = "voice"
	CallVideo CallKind = "video"
)

// Valid reports whether k is a known call kind
func (k CallKind) Valid() bool {
	return k == CallVoice || k == CallVideo
}

// CallState is the protocol state of a call session. CallIdle is never stored
// on a session; it is reported by the controller when it holds none.
type CallState string

const (
	CallIdle      CallState = "idle"
	CallOffering  CallState = "offering"
	CallRinging   CallState = "ringing"
	CallConnected CallState = "connected"
	CallEnded     CallState = "ended"
)

// EndReason records why a call session entered CallEnded
type EndReason string

const (
	EndHangup       EndReason = "hangup"
	EndDeclined     EndReason = "declined"
	EndTimeout      EndReason = "timeout"
	EndRemoteHangup EndReason = "remote_hangup"
	EndBusy         EndReason = "busy"
)

// CallSession represents a voice or video call between the user and a contact
type CallSession struct {
	ID          string          `json:"id"`
	CallerID    string          `json:"caller_id"`
	CalleeID    string          `json:"callee_id"`
	Kind        CallKind        `json:"kind"`
	State       CallState       `json:"state"`
	MediaOffer  json.RawMessage `json:"media_offer,omitempty"`
	MediaAnswer json.RawMessage `json:"media_answer,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	ConnectedAt *time.Time      `json:"connected_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	EndReason   EndReason       `json:"end_reason,omitempty"`
	Muted       bool            `json:"muted"`
	CameraOff   bool            `json:"camera_off"`
}

// PeerID returns the id of the other party, given the local user's id
func (s CallSession) PeerID(self string) string {
	if s.CallerID == self {
		return s.CalleeID
	}
	return s.CallerID
}

// Duration returns how long the call has been connected at now. The value is
// frozen once the session has ended.
func (s CallSession) Duration(now time.Time) time.Duration {
	if s.ConnectedAt == nil {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(*s.ConnectedAt) {
		return 0
	}
	return end.Sub(*s.ConnectedAt)
}
