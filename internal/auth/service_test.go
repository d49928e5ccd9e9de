package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/repo"
)

const testSecret = "test-jwt-secret-at-least-32-characters-long"

func newTestService(t *testing.T, store repo.SessionStore, devMode bool) *Service {
	t.Helper()
	authn := NewLocalAuthenticator(repo.NewAccountRepo(nil), devMode)
	return NewService(authn, NewJWTService(testSecret, time.Hour), store, nil)
}

func TestSignIn_devModeAcceptsAnyCredentials(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionStore()
	svc := newTestService(t, store, true)

	identity, err := svc.SignIn(ctx, Credentials{Email: "Hello@Vaani.app", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "hello@vaani.app", identity.Email)
	assert.NotEmpty(t, identity.ID)

	current, ok := svc.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, identity, current)

	raw, ok, err := store.Load(ctx, repo.KeyUser)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted model.Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, identity, persisted)

	_, ok, _ = store.Load(ctx, repo.KeyToken)
	assert.True(t, ok, "token must be persisted")
}

func TestSignIn_invalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, repo.NewMemorySessionStore(), false)

	_, err := svc.SignIn(ctx, Credentials{Email: "nobody@vaani.app", Password: "secret1"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.SignUp(ctx, Credentials{Email: "asha@vaani.app", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx))

	_, err = svc.SignIn(ctx, Credentials{Email: "asha@vaani.app", Password: "wrong-pass"})
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, Credentials{Email: "asha@vaani.app", Password: "secret1"})
	assert.NoError(t, err)
}

func TestSignIn_twiceFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, repo.NewMemorySessionStore(), true)

	_, err := svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)
	_, err = svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestSignOut_clearsStorage(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionStore()
	svc := newTestService(t, store, true)

	_, err := svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)
	_, err = svc.SetupProfile(ctx, ProfileInput{DisplayName: "Asha"})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx))
	require.NoError(t, svc.SignOut(ctx), "second sign-out is a no-op")

	_, ok := svc.CurrentIdentity()
	assert.False(t, ok)
	_, ok = svc.Profile()
	assert.False(t, ok)
	for _, key := range []string{repo.KeyUser, repo.KeyProfile, repo.KeyToken} {
		_, ok, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "%s must be cleared", key)
	}
}

func TestResume_restoresSession(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionStore()
	first := newTestService(t, store, true)

	identity, err := first.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)
	profile, err := first.SetupProfile(ctx, ProfileInput{DisplayName: "Asha", Bio: "hi"})
	require.NoError(t, err)

	// simulated restart: a fresh service over the same storage
	second := newTestService(t, store, true)
	resumed, ok, err := second.Resume(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, identity, resumed)

	restored, ok := second.Profile()
	require.True(t, ok)
	assert.Equal(t, profile.PublicHandle, restored.PublicHandle)
	assert.Equal(t, "Asha", restored.DisplayName)
	assert.Equal(t, first.Token(), second.Token())
}

func TestResume_rejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionStore()
	svc := newTestService(t, store, true)

	_, err := svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)

	other := NewService(NewLocalAuthenticator(repo.NewAccountRepo(nil), true),
		NewJWTService("a-different-secret-also-long-enough", time.Hour), store, nil)
	_, ok, err := other.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = store.Load(ctx, repo.KeyUser)
	assert.False(t, ok, "unverifiable session must be cleared")
}

func TestResume_rejectsMalformedIdentity(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionStore()
	require.NoError(t, store.Save(ctx, repo.KeyUser, `{"id":""}`))
	require.NoError(t, store.Save(ctx, repo.KeyToken, "garbage"))

	svc := newTestService(t, store, true)
	_, ok, err := svc.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResume_nothingStored(t *testing.T) {
	svc := newTestService(t, repo.NewMemorySessionStore(), true)
	_, ok, err := svc.Resume(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetupProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, repo.NewMemorySessionStore(), true)

	_, err := svc.SetupProfile(ctx, ProfileInput{DisplayName: "Asha"})
	assert.ErrorIs(t, err, model.ErrNotSignedIn)

	identity, err := svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)

	_, err = svc.SetupProfile(ctx, ProfileInput{DisplayName: "   "})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	profile, err := svc.SetupProfile(ctx, ProfileInput{DisplayName: " Asha ", Bio: "coffee"})
	require.NoError(t, err)
	assert.Equal(t, identity.ID, profile.OwnerID)
	assert.Equal(t, "Asha", profile.DisplayName)
	assert.Equal(t, defaultEmoji, profile.Emoji)
	assert.Equal(t, model.PresenceOnline, profile.Presence)
	assert.True(t, ValidHandle(profile.PublicHandle), "handle %q", profile.PublicHandle)
	assert.Contains(t, profile.AvatarRef, "data:image/svg+xml;base64,")

	updated, err := svc.SetupProfile(ctx, ProfileInput{DisplayName: "Asha K", Emoji: "🌙"})
	require.NoError(t, err)
	assert.Equal(t, profile.PublicHandle, updated.PublicHandle, "handle is kept on update")
	assert.Equal(t, "🌙", updated.Emoji)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, repo.NewMemorySessionStore(), true)

	identity, err := svc.SignIn(ctx, Credentials{Email: "a@vaani.app", Password: "x"})
	require.NoError(t, err)

	got, err := svc.Authorize(svc.Token())
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	_, err = svc.Authorize("not-a-token")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	token := svc.Token()
	require.NoError(t, svc.SignOut(ctx))
	_, err = svc.Authorize(token)
	assert.ErrorIs(t, err, model.ErrNotSignedIn)
}
