package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// FriendsHandler exposes the friend request queue
type FriendsHandler struct {
	sessions *session.Manager
}

func NewFriendsHandler(sessions *session.Manager) *FriendsHandler {
	return &FriendsHandler{sessions: sessions}
}

type sendFriendRequest struct {
	Handle string `json:"handle"`
}

// HandlePending handles GET /friends/requests
func (h *FriendsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sess.Friends.Pending())
}

// HandleInbound handles POST /friends/requests, the inbound hook of the transport
func (h *FriendsHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req model.FriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.Friends.Enqueue(req); err != nil {
		respondWithStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleAccept handles POST /friends/requests/{id}/accept
func (h *FriendsHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	contact, err := sess.Friends.Accept(chi.URLParam(r, "id"))
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, contact)
}

// HandleDecline handles POST /friends/requests/{id}/decline
func (h *FriendsHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	if err := sess.Friends.Decline(chi.URLParam(r, "id")); err != nil {
		respondWithStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleOutgoing handles GET /friends/outgoing
func (h *FriendsHandler) HandleOutgoing(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sess.Friends.Outgoing())
}

// HandleSendRequest handles POST /friends/outgoing
func (h *FriendsHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req sendFriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := sess.Friends.SendRequest(req.Handle)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, out)
}

// HandleCancelRequest handles DELETE /friends/outgoing/{id}
func (h *FriendsHandler) HandleCancelRequest(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	if err := sess.Friends.CancelRequest(chi.URLParam(r, "id")); err != nil {
		respondWithStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
