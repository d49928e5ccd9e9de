package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/repo"
)

const minPasswordLength = 6

// Credentials are what the sign-in screen collects
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticator checks credentials and yields an identity
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (model.Identity, error)
	Register(ctx context.Context, creds Credentials) (model.Identity, error)
}

// LocalAuthenticator verifies credentials against bcrypt hashes of locally
// registered accounts. In dev mode an unknown email is registered on first
// sign-in, so any well-formed email and non-empty password gets in.
type LocalAuthenticator struct {
	accounts repo.AccountRepo
	devMode  bool
}

// NewLocalAuthenticator creates a new local authenticator
func NewLocalAuthenticator(accounts repo.AccountRepo, devMode bool) *LocalAuthenticator {
	return &LocalAuthenticator{
		accounts: accounts,
		devMode:  devMode,
	}
}

// Authenticate checks the password of an existing account
func (a *LocalAuthenticator) Authenticate(ctx context.Context, creds Credentials) (model.Identity, error) {
	email := repo.NormalizeEmail(creds.Email)
	if !strings.Contains(email, "@") || creds.Password == "" {
		return model.Identity{}, model.ErrInvalidCredentials
	}

	acc, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) && a.devMode {
			return a.register(ctx, email, creds.Password)
		}
		return model.Identity{}, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(creds.Password)); err != nil {
		return model.Identity{}, model.ErrInvalidCredentials
	}

	return model.Identity{ID: acc.ID, Email: acc.Email}, nil
}

// Register creates a new account
func (a *LocalAuthenticator) Register(ctx context.Context, creds Credentials) (model.Identity, error) {
	email := repo.NormalizeEmail(creds.Email)
	if !strings.Contains(email, "@") {
		return model.Identity{}, fmt.Errorf("invalid email address: %w", model.ErrInvalidInput)
	}
	if len(creds.Password) < minPasswordLength {
		return model.Identity{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, model.ErrInvalidInput)
	}
	return a.register(ctx, email, creds.Password)
}

func (a *LocalAuthenticator) register(ctx context.Context, email, password string) (model.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	acc, err := a.accounts.Create(ctx, email, hash)
	if err != nil {
		return model.Identity{}, err
	}

	return model.Identity{ID: acc.ID, Email: acc.Email}, nil
}
