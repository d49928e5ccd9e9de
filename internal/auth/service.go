package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/repo"
)

// Service is the identity store: it owns the signed-in identity, its profile
// and session token, and mirrors them into session storage so a restart
// resumes without signing in again.
type Service struct {
	authenticator Authenticator
	jwtService    *JWTService
	store         repo.SessionStore
	handles       HandleChecker
	clock         model.Clock

	mu       sync.RWMutex
	identity *model.Identity
	profile  *model.Profile
	token    string
}

// NewService creates a new identity service. handles may be nil.
func NewService(
	authenticator Authenticator,
	jwtService *JWTService,
	store repo.SessionStore,
	handles HandleChecker,
) *Service {
	if handles == nil {
		handles = noHandleChecker
	}
	return &Service{
		authenticator: authenticator,
		jwtService:    jwtService,
		store:         store,
		handles:       handles,
		clock:         model.LocalTime,
	}
}

// SignIn authenticates the credentials and starts a session
func (s *Service) SignIn(ctx context.Context, creds Credentials) (model.Identity, error) {
	if _, ok := s.CurrentIdentity(); ok {
		return model.Identity{}, fmt.Errorf("already signed in: %w", model.ErrInvalidState)
	}
	identity, err := s.authenticator.Authenticate(ctx, creds)
	if err != nil {
		return model.Identity{}, err
	}
	return identity, s.begin(ctx, identity)
}

// SignUp registers the credentials and starts a session
func (s *Service) SignUp(ctx context.Context, creds Credentials) (model.Identity, error) {
	if _, ok := s.CurrentIdentity(); ok {
		return model.Identity{}, fmt.Errorf("already signed in: %w", model.ErrInvalidState)
	}
	identity, err := s.authenticator.Register(ctx, creds)
	if err != nil {
		return model.Identity{}, err
	}
	return identity, s.begin(ctx, identity)
}

func (s *Service) begin(ctx context.Context, identity model.Identity) error {
	token, err := s.jwtService.SignSessionToken(identity)
	if err != nil {
		return err
	}

	if err := s.saveJSON(ctx, repo.KeyUser, identity); err != nil {
		return err
	}
	if err := s.store.Save(ctx, repo.KeyToken, token); err != nil {
		_ = s.store.Clear(ctx, repo.KeyUser)
		return err
	}
	// a profile left behind by another identity must not leak into this session
	profile := s.loadProfile(ctx, identity.ID)

	s.mu.Lock()
	s.identity = &identity
	s.profile = profile
	s.token = token
	s.mu.Unlock()
	return nil
}

// Resume restores a persisted session. It reports false when there is none
// or when the stored token no longer verifies; in that case storage is cleared.
func (s *Service) Resume(ctx context.Context) (model.Identity, bool, error) {
	raw, ok, err := s.store.Load(ctx, repo.KeyUser)
	if err != nil || !ok {
		return model.Identity{}, false, err
	}
	token, ok, err := s.store.Load(ctx, repo.KeyToken)
	if err != nil {
		return model.Identity{}, false, err
	}

	var identity model.Identity
	if !ok || json.Unmarshal([]byte(raw), &identity) != nil || identity.ID == "" || identity.Email == "" {
		return model.Identity{}, false, s.clearStorage(ctx)
	}
	claims, err := s.jwtService.VerifyToken(token)
	if err != nil || claims.Subject != identity.ID {
		return model.Identity{}, false, s.clearStorage(ctx)
	}

	profile := s.loadProfile(ctx, identity.ID)

	s.mu.Lock()
	s.identity = &identity
	s.profile = profile
	s.token = token
	s.mu.Unlock()
	return identity, true, nil
}

// SignOut ends the session and clears session storage. Signing out twice is a no-op.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.profile = nil
	s.token = ""
	s.mu.Unlock()
	return s.clearStorage(ctx)
}

// CurrentIdentity returns the signed-in identity
func (s *Service) CurrentIdentity() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Profile returns the profile of the signed-in identity, if set up
func (s *Service) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

// Token returns the session token of the signed-in identity
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authorize checks that token belongs to the current session
func (s *Service) Authorize(token string) (model.Identity, error) {
	claims, err := s.jwtService.VerifyToken(token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%v: %w", err, model.ErrInvalidCredentials)
	}
	identity, ok := s.CurrentIdentity()
	if !ok {
		return model.Identity{}, model.ErrNotSignedIn
	}
	if claims.Subject != identity.ID {
		return model.Identity{}, fmt.Errorf("token subject mismatch: %w", model.ErrInvalidCredentials)
	}
	return identity, nil
}

// SetupProfile creates the profile on first call and updates it afterwards.
// The public handle is generated once and kept on updates.
func (s *Service) SetupProfile(ctx context.Context, in ProfileInput) (model.Profile, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Profile{}, err
	}

	identity, ok := s.CurrentIdentity()
	if !ok {
		return model.Profile{}, model.ErrNotSignedIn
	}

	var profile model.Profile
	if existing, ok := s.Profile(); ok {
		profile = existing
	} else {
		handle, err := generateHandle(ctx, s.handles)
		if err != nil {
			return model.Profile{}, err
		}
		profile = model.Profile{
			OwnerID:      identity.ID,
			PublicHandle: handle,
			Presence:     model.PresenceOnline,
		}
	}
	profile.DisplayName = in.DisplayName
	profile.Bio = in.Bio
	profile.Emoji = in.Emoji
	profile.AvatarRef = AvatarFromEmoji(in.Emoji)
	profile.UpdatedAt = s.clock.Now()

	if err := s.saveJSON(ctx, repo.KeyProfile, profile); err != nil {
		return model.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil || s.identity.ID != identity.ID {
		// signed out while the profile was being written
		return model.Profile{}, model.ErrNotSignedIn
	}
	s.profile = &profile
	return profile, nil
}

func (s *Service) loadProfile(ctx context.Context, ownerID string) *model.Profile {
	raw, ok, err := s.store.Load(ctx, repo.KeyProfile)
	if err != nil || !ok {
		return nil
	}
	var profile model.Profile
	if json.Unmarshal([]byte(raw), &profile) != nil || !validProfile(profile, ownerID) {
		_ = s.store.Clear(ctx, repo.KeyProfile)
		return nil
	}
	return &profile
}

func (s *Service) saveJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.store.Save(ctx, key, string(b))
}

func (s *Service) clearStorage(ctx context.Context) error {
	for _, key := range []string{repo.KeyUser, repo.KeyProfile, repo.KeyToken} {
		if err := s.store.Clear(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
