package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/config"
	"github.com/vaani/client/internal/repo"
	"github.com/vaani/client/internal/session"
)

func newManager(t *testing.T, store repo.SessionStore) *session.Manager {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	authenticator := auth.NewLocalAuthenticator(repo.NewAccountRepo(nil), true)
	identity := auth.NewService(authenticator, auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL), store, nil)
	return session.NewManager(identity, session.Options{SeedDemo: true})
}

// TestSessionPersistence checks that a signed-in session survives a restart when
// stored in sqlite, and that sign-out clears it.
func TestSessionPersistence(t *testing.T) {
	ctx := context.Background()
	store, database, err := OpenSQLiteStore(ctx, t.TempDir())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = ClearSessionTable(ctx, database)
		_ = database.Close()
	})

	t.Run("A_NothingStored", func(t *testing.T) {
		m := newManager(t, store)
		sess, ok, err := m.Resume(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, sess)
	})

	var identityID, handle string
	t.Run("B_SignInAndProfile", func(t *testing.T) {
		m := newManager(t, store)
		sess, err := m.SignIn(ctx, auth.Credentials{Email: "Asha@Vaani.app", Password: "secret"})
		require.NoError(t, err)
		identityID = sess.Identity.ID

		profile, err := m.SetupProfile(ctx, auth.ProfileInput{DisplayName: "Asha", Emoji: "🌟"})
		require.NoError(t, err)
		handle = profile.PublicHandle
		sess.Close()
	})

	t.Run("C_ResumeAfterRestart", func(t *testing.T) {
		require.NotEmpty(t, identityID, "previous step must sign in")

		m := newManager(t, store)
		sess, ok, err := m.Resume(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, identityID, sess.Identity.ID)

		profile, ok := m.Identity().Profile()
		require.True(t, ok)
		assert.Equal(t, handle, profile.PublicHandle)
		assert.Equal(t, "Asha", profile.DisplayName)

		identity, err := m.Identity().Authorize(m.Identity().Token())
		require.NoError(t, err)
		assert.Equal(t, identityID, identity.ID)

		require.NoError(t, m.SignOut(ctx))
	})

	t.Run("D_SignOutClearsStorage", func(t *testing.T) {
		m := newManager(t, store)
		_, ok, err := m.Resume(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = m.Current()
		assert.Error(t, err)
	})

	t.Run("E_BridgeOverSQLite", func(t *testing.T) {
		ts := newTestServer(t, store)
		token := ts.signIn(t)
		status, body := ts.do(t, http.MethodGet, "/me", token, nil)
		assert.Equal(t, http.StatusOK, status, "body: %s", body)
		assert.Contains(t, body, `"email":"asha@vaani.app"`)
	})
}
