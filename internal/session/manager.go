package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/events"
	"github.com/vaani/client/internal/model"
)

// Options configures the sessions created by a Manager
type Options struct {
	Call      call.Config
	Scheduler call.Scheduler
	Clock     model.Clock

	// NewTransport builds the messaging/signaling collaborator of a session.
	// Nil leaves the session without one.
	NewTransport func(calls *call.Controller) Transport

	// SeedDemo fills every new session with demo contacts and requests
	SeedDemo bool
}

// Manager gates the per-user stores behind the identity store: a Session
// exists exactly while an identity is signed in.
type Manager struct {
	identity *auth.Service
	opts     Options

	mu      sync.Mutex
	current *Session
}

// NewManager creates a session manager
func NewManager(identity *auth.Service, opts Options) *Manager {
	if opts.Call == (call.Config{}) {
		opts.Call = call.DefaultConfig()
	}
	return &Manager{
		identity: identity,
		opts:     opts,
	}
}

// Identity returns the identity store
func (m *Manager) Identity() *auth.Service {
	return m.identity
}

// SignIn authenticates and opens a session
func (m *Manager) SignIn(ctx context.Context, creds auth.Credentials) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, err := m.identity.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	return m.startLocked(identity), nil
}

// SignUp registers new credentials and opens a session
func (m *Manager) SignUp(ctx context.Context, creds auth.Credentials) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, err := m.identity.SignUp(ctx, creds)
	if err != nil {
		return nil, err
	}
	return m.startLocked(identity), nil
}

// Resume reopens the session persisted by a previous run, if any
func (m *Manager) Resume(ctx context.Context) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, true, nil
	}
	identity, ok, err := m.identity.Resume(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resume session: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return m.startLocked(identity), true, nil
}

// SignOut closes the session and clears session storage. It is a no-op when
// nobody is signed in.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	return m.identity.SignOut(ctx)
}

// Current returns the open session
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, model.ErrNotSignedIn
	}
	return m.current, nil
}

// SetupProfile creates or updates the signed-in user's profile
func (m *Manager) SetupProfile(ctx context.Context, in auth.ProfileInput) (model.Profile, error) {
	sess, err := m.Current()
	if err != nil {
		return model.Profile{}, err
	}
	profile, err := m.identity.SetupProfile(ctx, in)
	if err != nil {
		return model.Profile{}, err
	}
	sess.Bus.Publish(events.ProfileUpdated, profile)
	return profile, nil
}

func (m *Manager) startLocked(identity model.Identity) *Session {
	ownHandle := func() string {
		p, _ := m.identity.Profile()
		return p.PublicHandle
	}
	sess := newSession(identity, ownHandle, m.opts)
	if m.opts.SeedDemo {
		if err := Seed(sess, m.opts.Clock); err != nil {
			log.Printf("Failed to seed demo data: %v", err)
		}
	}
	sess.Bus.Publish(events.SessionStarted, identity)
	m.current = sess
	return sess
}
