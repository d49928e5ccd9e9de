package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// ContactsHandler exposes the contact directory
type ContactsHandler struct {
	sessions *session.Manager
}

func NewContactsHandler(sessions *session.Manager) *ContactsHandler {
	return &ContactsHandler{sessions: sessions}
}

type presenceRequest struct {
	Presence model.Presence `json:"presence"`
}

// HandleList handles GET /contacts
func (h *ContactsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sess.Contacts.ListContacts())
}

// HandleGet handles GET /contacts/{id}
func (h *ContactsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	contact, err := sess.Contacts.GetContact(chi.URLParam(r, "id"))
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, contact)
}

// HandleSetPresence handles PUT /contacts/{id}/presence. It is the inbound
// presence hook of the transport.
func (h *ContactsHandler) HandleSetPresence(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req presenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := sess.Contacts.SetPresence(id, req.Presence); err != nil {
		respondWithStoreError(w, err)
		return
	}
	contact, err := sess.Contacts.GetContact(id)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, contact)
}

// HandleRemove handles DELETE /contacts/{id}
func (h *ContactsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	if err := sess.Conversations.RemoveContact(chi.URLParam(r, "id")); err != nil {
		respondWithStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
