package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// CallsHandler exposes the call session controller
type CallsHandler struct {
	sessions *session.Manager
}

func NewCallsHandler(sessions *session.Manager) *CallsHandler {
	return &CallsHandler{sessions: sessions}
}

type callResponse struct {
	State           model.CallState    `json:"state"`
	Session         *model.CallSession `json:"session,omitempty"`
	DurationSeconds int64              `json:"duration_seconds"`
}

type initiateRequest struct {
	ContactID string          `json:"contact_id"`
	Kind      model.CallKind  `json:"kind"`
	Offer     json.RawMessage `json:"offer,omitempty"`
}

type answerRequest struct {
	Answer json.RawMessage `json:"answer,omitempty"`
}

type toggleRequest struct {
	On bool `json:"on"`
}

type remoteOfferRequest struct {
	CallID   string          `json:"call_id"`
	CallerID string          `json:"caller_id"`
	Kind     model.CallKind  `json:"kind"`
	Offer    json.RawMessage `json:"offer,omitempty"`
}

type remoteAnswerRequest struct {
	CallID string          `json:"call_id"`
	Answer json.RawMessage `json:"answer,omitempty"`
}

type remoteHangupRequest struct {
	CallID string          `json:"call_id"`
	Reason model.EndReason `json:"reason,omitempty"`
}

func (h *CallsHandler) respondWithCall(w http.ResponseWriter, sess *session.Session) {
	cur, ok := sess.Calls.Current()
	respondWithJSON(w, http.StatusOK, newCallResponse(cur, ok, time.Now()))
}

// newCallResponse derives every field from the one snapshot
func newCallResponse(cur model.CallSession, ok bool, now time.Time) callResponse {
	if !ok {
		return callResponse{State: model.CallIdle}
	}
	return callResponse{
		State:           cur.State,
		Session:         &cur,
		DurationSeconds: int64(cur.Duration(now) / time.Second),
	}
}

// HandleCurrent handles GET /call
func (h *CallsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	h.respondWithCall(w, sess)
}

// HandleHistory handles GET /call/history
func (h *CallsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sess.Calls.History())
}

// HandleInitiate handles POST /call
func (h *CallsHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req initiateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := sess.Calls.Initiate(req.ContactID, req.Kind, req.Offer); err != nil {
		respondWithStoreError(w, err)
		return
	}
	h.respondWithCall(w, sess)
}

// HandleAccept handles POST /call/accept
func (h *CallsHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	var req answerRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if _, err := sess.Calls.Accept(req.Answer); err != nil {
		respondWithStoreError(w, err)
		return
	}
	h.respondWithCall(w, sess)
}

// HandleDecline handles POST /call/decline
func (h *CallsHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	h.do(w, func(sess *session.Session) error {
		_, err := sess.Calls.DeclineOrTimeout()
		return err
	})
}

// HandleHangUp handles POST /call/hangup
func (h *CallsHandler) HandleHangUp(w http.ResponseWriter, r *http.Request) {
	h.do(w, func(sess *session.Session) error {
		_, err := sess.Calls.HangUp()
		return err
	})
}

// HandleReset handles POST /call/reset
func (h *CallsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.do(w, func(sess *session.Session) error {
		return sess.Calls.Reset()
	})
}

// HandleMute handles POST /call/mute
func (h *CallsHandler) HandleMute(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.do(w, func(sess *session.Session) error {
		_, err := sess.Calls.SetMuted(req.On)
		return err
	})
}

// HandleCamera handles POST /call/camera_off
func (h *CallsHandler) HandleCamera(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.do(w, func(sess *session.Session) error {
		_, err := sess.Calls.SetCameraOff(req.On)
		return err
	})
}

// HandleRemoteOffer handles POST /call/remote/offer, an inbound signaling hook
func (h *CallsHandler) HandleRemoteOffer(w http.ResponseWriter, r *http.Request) {
	var req remoteOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.do(w, func(sess *session.Session) error {
		return sess.Calls.OnRemoteOffer(req.CallID, req.CallerID, req.Kind, req.Offer)
	})
}

// HandleRemoteAnswer handles POST /call/remote/answer, an inbound signaling hook
func (h *CallsHandler) HandleRemoteAnswer(w http.ResponseWriter, r *http.Request) {
	var req remoteAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.do(w, func(sess *session.Session) error {
		return sess.Calls.OnRemoteAnswer(req.CallID, req.Answer)
	})
}

// HandleRemoteHangup handles POST /call/remote/hangup, an inbound signaling hook
func (h *CallsHandler) HandleRemoteHangup(w http.ResponseWriter, r *http.Request) {
	var req remoteHangupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.do(w, func(sess *session.Session) error {
		return sess.Calls.OnRemoteHangup(req.CallID, req.Reason)
	})
}

func (h *CallsHandler) do(w http.ResponseWriter, fn func(sess *session.Session) error) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		respondWithStoreError(w, err)
		return
	}
	h.respondWithCall(w, sess)
}
