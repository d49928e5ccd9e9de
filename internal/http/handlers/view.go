package handlers

import (
	"net/http"

	"github.com/vaani/client/internal/session"
	"github.com/vaani/client/internal/view"
)

// ViewHandler tells the UI which screen to show
type ViewHandler struct {
	sessions *session.Manager
}

func NewViewHandler(sessions *session.Manager) *ViewHandler {
	return &ViewHandler{sessions: sessions}
}

// HandleRoute handles GET /view?tab=...&chat=...
func (h *ViewHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	state := view.State{
		Tab:      view.Tab(r.URL.Query().Get("tab")),
		OpenChat: r.URL.Query().Get("chat"),
	}

	if sess, err := h.sessions.Current(); err == nil {
		state.SignedIn = true
		_, state.HasProfile = h.sessions.Identity().Profile()
		state.CallState = sess.Calls.State()
		if state.OpenChat != "" {
			if _, err := sess.Contacts.GetContact(state.OpenChat); err != nil {
				state.OpenChat = ""
			}
		}
	} else {
		state.OpenChat = ""
	}

	respondWithJSON(w, http.StatusOK, view.Route(state))
}
