package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the bridge only listens on loopback
		return true
	},
}

// EventsHandler streams change notifications of the current session over a websocket
type EventsHandler struct {
	sessions *session.Manager
}

func NewEventsHandler(sessions *session.Manager) *EventsHandler {
	return &EventsHandler{sessions: sessions}
}

// HandleStream handles GET /events
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, h.sessions)
	if !ok {
		return
	}

	// subscribe before the handshake completes so no event after it is missed
	s := &stream{send: make(chan []byte, sendBuffer)}
	unsubscribe := sess.Bus.Subscribe(s.handle)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		return
	}
	s.conn = conn
	go s.writePump(unsubscribe)
	go s.readPump()
}

type stream struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// handle runs on the bus goroutine and must not block
func (s *stream) handle(ev events.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", ev.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- b:
	default:
		log.Printf("Event stream too slow, dropping %s", ev.Type)
	}
	if ev.Type == events.SessionEnded {
		s.closeLocked()
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *stream) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func (s *stream) readPump() {
	defer s.close()
	s.conn.SetReadLimit(8 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *stream) writePump(unsubscribe func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		s.close()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
