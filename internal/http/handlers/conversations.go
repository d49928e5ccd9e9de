package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// ConversationsHandler exposes the conversation store
type ConversationsHandler struct {
	sessions *session.Manager
}

func NewConversationsHandler(sessions *session.Manager) *ConversationsHandler {
	return &ConversationsHandler{sessions: sessions}
}

type sendRequest struct {
	Body      string            `json:"body"`
	Kind      model.MessageKind `json:"kind"`
	ReplyToID string            `json:"reply_to_id"`
}

type readRequest struct {
	UptoMessageID string `json:"upto_message_id"`
}

type editRequest struct {
	Body string `json:"body"`
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

type readResponse struct {
	ContactID string `json:"contact_id"`
	Cursor    string `json:"cursor"`
}

// HandleMessages handles GET /conversations/{id}/messages
func (h *ConversationsHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	msgs, err := sess.Conversations.GetMessages(chi.URLParam(r, "id"))
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msgs)
}

// HandleSend handles POST /conversations/{id}/messages
func (h *ConversationsHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := sess.Conversations.Send(chi.URLParam(r, "id"), req.Body, req.Kind, req.ReplyToID)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// HandleInbound handles POST /conversations/{id}/inbound, the inbound
// messaging hook of the transport. Redelivery of a known id is accepted.
func (h *ConversationsHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var msg model.Message
	if !decodeJSON(w, r, &msg) {
		return
	}
	if err := sess.Conversations.OnRemoteMessage(chi.URLParam(r, "id"), msg); err != nil {
		respondWithStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleMarkRead handles POST /conversations/{id}/read
func (h *ConversationsHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req readRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := sess.Conversations.MarkRead(id, req.UptoMessageID); err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, readResponse{ContactID: id, Cursor: sess.Conversations.ReadCursor(id)})
}

// HandleEdit handles PATCH /conversations/{id}/messages/{messageID}
func (h *ConversationsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := sess.Conversations.EditMessage(chi.URLParam(r, "id"), chi.URLParam(r, "messageID"), req.Body)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}

// HandleReact handles POST /conversations/{id}/messages/{messageID}/reactions
func (h *ConversationsHandler) HandleReact(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req reactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := sess.Conversations.React(chi.URLParam(r, "id"), chi.URLParam(r, "messageID"), req.Emoji)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}
