package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/config"
	httphandler "github.com/vaani/client/internal/http"
	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/repo"
	"github.com/vaani/client/internal/session"
	"github.com/vaani/client/internal/transport"
)

func TestMain(m *testing.M) {
	// Set env if unset. Storage stays in memory; the sqlite test opens its own file.
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-jwt-secret-at-least-32-characters-long")
	}
	os.Setenv("STORAGE_DRIVER", "memory")
	os.Setenv("DEV_MODE", "true")
	os.Setenv("SEED_DEMO", "true")

	code := m.Run()
	os.Exit(code)
}

// testServer holds the bridge server for integration tests
type testServer struct {
	Server   *httptest.Server
	Sessions *session.Manager
}

func newTestServer(t *testing.T, store repo.SessionStore) *testServer {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err, "config load must succeed for integration test")

	authenticator := auth.NewLocalAuthenticator(repo.NewAccountRepo(nil), cfg.DevMode)
	identity := auth.NewService(authenticator, auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL), store, nil)

	sessions := session.NewManager(identity, session.Options{
		Call:     call.DefaultConfig(),
		SeedDemo: cfg.SeedDemo,
		NewTransport: func(calls *call.Controller) session.Transport {
			return transport.NewLoopback(calls, call.SystemScheduler, cfg.SimulatedAnswerDelay, false)
		},
	})
	router := httphandler.NewRouter(sessions, httphandler.RouterConfig{SendRatePerMinute: cfg.SendRatePerMinute})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		if sess, err := sessions.Current(); err == nil {
			sess.Close()
		}
	})
	return &testServer{Server: server, Sessions: sessions}
}

func (s *testServer) BaseURL() string { return s.Server.URL }

// do sends a JSON request and returns the status code and raw body
func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.BaseURL()+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode, readBody(resp)
}

func (s *testServer) signIn(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/auth/sign_in", "", map[string]string{
		"email":    "asha@vaani.app",
		"password": "anything",
	})
	require.Equal(t, http.StatusOK, status, "POST /auth/sign_in must return 200; body: %s", body)

	var res sessionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	require.NotEmpty(t, res.Token)
	assert.Equal(t, "bearer", res.TokenType)
	return res.Token
}

// sessionResponse matches POST /auth/sign_in response
type sessionResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	Identity  model.Identity `json:"identity"`
	Profile   *model.Profile `json:"profile"`
}

// callResponse matches the /call responses
type callResponse struct {
	State   model.CallState    `json:"state"`
	Session *model.CallSession `json:"session"`
}

// errorResponse matches error JSON body
type errorResponse struct {
	Error string `json:"error"`
}

// TestVaaniE2E runs the sign in -> profile -> accept request -> chat flow over the bridge
func TestVaaniE2E(t *testing.T) {
	ts := newTestServer(t, repo.NewMemorySessionStore())

	t.Run("A_Health", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"status":"ok"}`, body)
	})

	t.Run("B_SignedOutView", func(t *testing.T) {
		status, body := ts.do(t, http.MethodGet, "/view", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"name":"auth"`)
	})

	t.Run("C_FullFlow", func(t *testing.T) {
		token := ts.signIn(t)

		status, body := ts.do(t, http.MethodGet, "/view", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"name":"setup_profile"`)

		// profile
		status, body = ts.do(t, http.MethodPut, "/me/profile", token, map[string]string{"display_name": "Asha"})
		require.Equal(t, http.StatusOK, status, "PUT /me/profile must return 200; body: %s", body)
		var profile model.Profile
		require.NoError(t, json.Unmarshal([]byte(body), &profile))
		assert.Equal(t, "Asha", profile.DisplayName)
		assert.Regexp(t, regexp.MustCompile(`^va-\d{4}$`), profile.PublicHandle)
		assert.Equal(t, model.PresenceOnline, profile.Presence)

		// pending request from Sarah
		status, body = ts.do(t, http.MethodGet, "/friends/requests", token, nil)
		require.Equal(t, http.StatusOK, status)
		var pending []model.FriendRequest
		require.NoError(t, json.Unmarshal([]byte(body), &pending))
		require.Len(t, pending, 1)
		assert.Equal(t, "r1", pending[0].ID)
		assert.Equal(t, "u99", pending[0].FromID)

		// accept
		status, body = ts.do(t, http.MethodPost, "/friends/requests/r1/accept", token, nil)
		require.Equal(t, http.StatusOK, status, "accept must return 200; body: %s", body)
		var contact model.Contact
		require.NoError(t, json.Unmarshal([]byte(body), &contact))
		assert.Equal(t, "u99", contact.ID)
		assert.Equal(t, "Sarah", contact.DisplayName)
		assert.Equal(t, model.PresenceOffline, contact.Presence)

		status, _ = ts.do(t, http.MethodGet, "/contacts/u99", token, nil)
		assert.Equal(t, http.StatusOK, status)

		status, body = ts.do(t, http.MethodGet, "/friends/requests", token, nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, body)

		status, _ = ts.do(t, http.MethodPost, "/friends/requests/r1/accept", token, nil)
		assert.Equal(t, http.StatusNotFound, status, "second accept must fail")

		// send
		status, body = ts.do(t, http.MethodPost, "/conversations/u99/messages", token, map[string]string{"body": "hi"})
		require.Equal(t, http.StatusCreated, status, "send must return 201; body: %s", body)

		status, body = ts.do(t, http.MethodGet, "/conversations/u99/messages", token, nil)
		require.Equal(t, http.StatusOK, status)
		var msgs []model.Message
		require.NoError(t, json.Unmarshal([]byte(body), &msgs))
		require.Len(t, msgs, 1)
		assert.Equal(t, model.SelfID, msgs[0].SenderID)
		assert.Equal(t, "hi", msgs[0].Body)

		status, body = ts.do(t, http.MethodGet, "/view?tab=chats&chat=u99", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, `"name":"chat"`)
		assert.Contains(t, body, `"contact_id":"u99"`)

		// sign out
		status, _ = ts.do(t, http.MethodPost, "/auth/sign_out", token, nil)
		assert.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodGet, "/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestVaaniErrors(t *testing.T) {
	ts := newTestServer(t, repo.NewMemorySessionStore())

	status, _ := ts.do(t, http.MethodGet, "/contacts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "protected routes need a token")

	token := ts.signIn(t)

	status, body := ts.do(t, http.MethodPost, "/auth/sign_in", "", map[string]string{"email": "asha@vaani.app", "password": "x"})
	assert.Equal(t, http.StatusConflict, status, "already signed in; body: %s", body)

	status, body = ts.do(t, http.MethodGet, "/contacts/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	var errRes errorResponse
	require.NoError(t, json.Unmarshal([]byte(body), &errRes))
	assert.NotEmpty(t, errRes.Error)

	status, _ = ts.do(t, http.MethodPost, "/conversations/u1/messages", token, map[string]string{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPost, "/conversations/u1/inbound", token, model.Message{
		ID: "old", Body: "from the past", SentAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, http.StatusConflict, status, "out-of-order inbound message")

	status, _ = ts.do(t, http.MethodPost, "/call/reset", token, nil)
	assert.Equal(t, http.StatusConflict, status, "no active call")

	status, _ = ts.do(t, http.MethodPut, "/contacts/u1/presence", token, map[string]string{"presence": "away"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVaaniCallFlow(t *testing.T) {
	ts := newTestServer(t, repo.NewMemorySessionStore())
	token := ts.signIn(t)

	status, body := ts.do(t, http.MethodPost, "/call", token, map[string]string{"contact_id": "u1", "kind": "video"})
	require.Equal(t, http.StatusOK, status, "initiate must return 200; body: %s", body)
	var res callResponse
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, model.CallRinging, res.State)
	require.NotNil(t, res.Session)

	status, _ = ts.do(t, http.MethodPost, "/call", token, map[string]string{"contact_id": "u2", "kind": "voice"})
	assert.Equal(t, http.StatusConflict, status, "already in call")

	status, body = ts.do(t, http.MethodPost, "/call/remote/answer", token, map[string]string{"call_id": res.Session.ID})
	require.Equal(t, http.StatusOK, status, "remote answer; body: %s", body)
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, model.CallConnected, res.State)

	status, body = ts.do(t, http.MethodGet, "/view", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"call_overlay":true`)

	status, _ = ts.do(t, http.MethodPost, "/call/hangup", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, "/call/reset", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodGet, "/call/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	var history []model.CallSession
	require.NoError(t, json.Unmarshal([]byte(body), &history))
	require.Len(t, history, 1)
	assert.Equal(t, model.EndHangup, history[0].EndReason)
}

func TestVaaniEventStream(t *testing.T) {
	ts := newTestServer(t, repo.NewMemorySessionStore())
	token := ts.signIn(t)

	wsURL := "ws" + strings.TrimPrefix(ts.BaseURL(), "http") + "/events?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	status, _ := ts.do(t, http.MethodPost, "/conversations/u2/messages", token, map[string]string{"body": "hello Isha"})
	require.Equal(t, http.StatusCreated, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "expected a message_appended event")

		var ev struct {
			Type    string        `json:"type"`
			Payload model.Message `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev.Type == "message_appended" {
			assert.Equal(t, "hello Isha", ev.Payload.Body)
			assert.Equal(t, "u2", ev.Payload.ConversationID)
			return
		}
	}
}

// readBody reads and returns the response body (consumes it)
func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
