package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// maxBodyBytes caps request bodies; media bodies are references, not payloads
const maxBodyBytes = 64 << 10

// respondWithJSON writes v with the given status code
func respondWithJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithStoreError maps the store error taxonomy onto HTTP status codes
func respondWithStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrAlreadyInCall),
		errors.Is(err, model.ErrNoActiveCall),
		errors.Is(err, model.ErrOutOfOrderMessage):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, model.ErrNotSignedIn):
		respondWithError(w, http.StatusUnauthorized, "not signed in")
	case errors.Is(err, model.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the request body into v, answering 400 itself on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// currentSession answers 401 itself when nobody is signed in
func currentSession(w http.ResponseWriter, sessions *session.Manager) (*session.Session, bool) {
	sess, err := sessions.Current()
	if err != nil {
		respondWithStoreError(w, err)
		return nil, false
	}
	return sess, true
}

// maskEmail masks an email address for logging (e.g., as***@vaani.app)
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	local := email[:at]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + email[at:]
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + email[at:]
}
