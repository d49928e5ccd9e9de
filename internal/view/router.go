// Package view decides which screen the app shows for a given session state.
package view

import "github.com/vaani/client/internal/model"

type ScreenName string

const (
	ScreenLoading      ScreenName = "loading"
	ScreenAuth         ScreenName = "auth"
	ScreenSetupProfile ScreenName = "setup_profile"
	ScreenMain         ScreenName = "main"
	ScreenChat         ScreenName = "chat"
)

// Tab is a section of the main screen
type Tab string

const (
	TabChats    Tab = "chats"
	TabRequests Tab = "requests"
	TabCalls    Tab = "calls"
	TabProfile  Tab = "profile"
)

func (t Tab) Valid() bool {
	switch t {
	case TabChats, TabRequests, TabCalls, TabProfile:
		return true
	}
	return false
}

// State is what the router looks at
type State struct {
	Loading    bool            `json:"loading"`
	SignedIn   bool            `json:"signed_in"`
	HasProfile bool            `json:"has_profile"`
	Tab        Tab             `json:"tab,omitempty"`
	OpenChat   string          `json:"open_chat,omitempty"`
	CallState  model.CallState `json:"call_state,omitempty"`
}

// Screen is the routing decision
type Screen struct {
	Name        ScreenName `json:"name"`
	Tab         Tab        `json:"tab,omitempty"`
	ContactID   string     `json:"contact_id,omitempty"`
	CallOverlay bool       `json:"call_overlay"`
}

// Route maps a session state to the screen to display
func Route(s State) Screen {
	switch {
	case s.Loading:
		return Screen{Name: ScreenLoading}
	case !s.SignedIn:
		return Screen{Name: ScreenAuth}
	case !s.HasProfile:
		return Screen{Name: ScreenSetupProfile}
	}

	tab := s.Tab
	if !tab.Valid() {
		tab = TabChats
	}
	screen := Screen{Name: ScreenMain, Tab: tab}
	if s.OpenChat != "" {
		screen.Name = ScreenChat
		screen.ContactID = s.OpenChat
	}
	screen.CallOverlay = s.CallState != "" && s.CallState != model.CallIdle
	return screen
}
