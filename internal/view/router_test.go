package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vaani/client/internal/model"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Screen
	}{
		{"loading wins", State{Loading: true, SignedIn: true, HasProfile: true}, Screen{Name: ScreenLoading}},
		{"signed out", State{}, Screen{Name: ScreenAuth}},
		{"no profile yet", State{SignedIn: true}, Screen{Name: ScreenSetupProfile}},
		{"default tab", State{SignedIn: true, HasProfile: true}, Screen{Name: ScreenMain, Tab: TabChats}},
		{"unknown tab", State{SignedIn: true, HasProfile: true, Tab: "settings"}, Screen{Name: ScreenMain, Tab: TabChats}},
		{"requests tab", State{SignedIn: true, HasProfile: true, Tab: TabRequests}, Screen{Name: ScreenMain, Tab: TabRequests}},
		{
			"open chat",
			State{SignedIn: true, HasProfile: true, Tab: TabChats, OpenChat: "u1"},
			Screen{Name: ScreenChat, Tab: TabChats, ContactID: "u1"},
		},
		{
			"call overlay",
			State{SignedIn: true, HasProfile: true, OpenChat: "u1", CallState: model.CallRinging},
			Screen{Name: ScreenChat, Tab: TabChats, ContactID: "u1", CallOverlay: true},
		},
		{
			"idle call has no overlay",
			State{SignedIn: true, HasProfile: true, Tab: TabCalls, CallState: model.CallIdle},
			Screen{Name: ScreenMain, Tab: TabCalls},
		},
		{"overlay hidden before sign in", State{CallState: model.CallConnected}, Screen{Name: ScreenAuth}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.state))
		})
	}
}
