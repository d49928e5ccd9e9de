// Package transport holds the in-process stand-in for the messaging and
// signaling network.
package transport

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/model"
)

// Answerer is the inbound signaling hook the loopback answers through
type Answerer interface {
	OnRemoteAnswer(callID string, answer json.RawMessage) error
}

var loopbackAnswer = json.RawMessage(`{"type":"answer","sdp":"loopback"}`)

// Loopback logs outbound traffic. With AutoAnswer set it plays the remote
// party of outgoing calls and picks up after AnswerDelay.
type Loopback struct {
	calls       Answerer
	scheduler   call.Scheduler
	answerDelay time.Duration
	autoAnswer  bool

	mu      sync.Mutex
	pending map[string]call.Timer // call id -> scheduled answer
}

// NewLoopback creates a loopback transport bound to a call controller
func NewLoopback(calls Answerer, scheduler call.Scheduler, answerDelay time.Duration, autoAnswer bool) *Loopback {
	if scheduler == nil {
		scheduler = call.SystemScheduler
	}
	return &Loopback{
		calls:       calls,
		scheduler:   scheduler,
		answerDelay: answerDelay,
		autoAnswer:  autoAnswer,
		pending:     make(map[string]call.Timer),
	}
}

func (l *Loopback) OnLocalMessageSent(contactID string, msg model.Message) {
	log.Printf("loopback: message %s to %s (%s, %d bytes)", msg.ID, contactID, msg.Kind, len(msg.Body))
}

func (l *Loopback) OnLocalOffer(s model.CallSession) {
	log.Printf("loopback: %s call %s offered to %s", s.Kind, s.ID, s.CalleeID)
	if !l.autoAnswer {
		return
	}

	id := s.ID
	l.mu.Lock()
	l.pending[id] = l.scheduler.AfterFunc(l.answerDelay, func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()

		if err := l.calls.OnRemoteAnswer(id, loopbackAnswer); err != nil {
			log.Printf("loopback: answer for call %s dropped: %v", id, err)
		}
	})
	l.mu.Unlock()
}

func (l *Loopback) OnLocalAnswer(s model.CallSession) {
	log.Printf("loopback: call %s answered", s.ID)
}

func (l *Loopback) OnLocalHangup(s model.CallSession, reason model.EndReason) {
	l.mu.Lock()
	if t, ok := l.pending[s.ID]; ok {
		t.Stop()
		delete(l.pending, s.ID)
	}
	l.mu.Unlock()

	log.Printf("loopback: call %s hung up (%s)", s.ID, reason)
}
