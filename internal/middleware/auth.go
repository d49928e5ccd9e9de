package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vaani/client/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Authorizer checks a session token against the signed-in identity
type Authorizer interface {
	Authorize(token string) (model.Identity, error)
}

// AuthMiddleware validates the session token and attaches the identity to the context.
// The token is read from the Authorization header, or from the token query
// parameter for websocket upgrades.
func AuthMiddleware(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := bearerToken(r)
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, msg)
				return
			}

			identity, err := authorizer.Authorize(tokenString)
			if err != nil {
				if errors.Is(err, model.ErrNotSignedIn) {
					respondWithError(w, http.StatusUnauthorized, "not signed in")
					return
				}
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if tok := strings.TrimSpace(r.URL.Query().Get("token")); tok != "" {
			return tok, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "invalid authorization header format"
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", "missing token"
	}
	return tokenString, ""
}

// GetIdentity returns the identity attached to the request context (set by AuthMiddleware)
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
