package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vaani/client/internal/model"
)

// Account is a locally registered sign-in credential
type Account struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// AccountRepo defines the interface for local account operations
type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, email string, passwordHash []byte) (Account, error)
}

type accountRepo struct {
	mu       sync.RWMutex
	accounts map[string]Account // by normalized email
	clock    model.Clock
}

// NewAccountRepo creates an in-memory AccountRepo. Accounts are not persisted:
// the session store keeps only identity, profile and token.
func NewAccountRepo(clock model.Clock) AccountRepo {
	if clock == nil {
		clock = model.LocalTime
	}
	return &accountRepo{accounts: make(map[string]Account), clock: clock}
}

// GetByEmail retrieves an account by email
func (r *accountRepo) GetByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[NormalizeEmail(email)]
	if !ok {
		return Account{}, fmt.Errorf("account not found: %w", model.ErrNotFound)
	}
	return acc, nil
}

// Create registers a new account; the email must not be taken
func (r *accountRepo) Create(_ context.Context, email string, passwordHash []byte) (Account, error) {
	key := NormalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[key]; exists {
		return Account{}, fmt.Errorf("email already registered: %w", model.ErrInvalidInput)
	}
	acc := Account{
		ID:           uuid.NewString(),
		Email:        key,
		PasswordHash: passwordHash,
		CreatedAt:    r.clock.Now(),
	}
	r.accounts[key] = acc
	return acc, nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
