package model

import "errors"

// Error taxonomy shared by every store. Match with errors.Is; callers add
// context with fmt.Errorf("...: %w", err).
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrAlreadyInCall      = errors.New("already in call")
	ErrNoActiveCall       = errors.New("no active call")
	ErrOutOfOrderMessage  = errors.New("out of order message")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotSignedIn        = errors.New("not signed in")
)
