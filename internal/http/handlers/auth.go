package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/middleware"
	"github.com/vaani/client/internal/model"
	"github.com/vaani/client/internal/session"
)

// AuthHandler handles identity and profile endpoints
type AuthHandler struct {
	sessions *session.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *session.Manager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// credentialsRequest is the request body for POST /auth/sign_in and /auth/sign_up
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the JSON response for sign_in and sign_up
type sessionResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	Identity  model.Identity `json:"identity"`
	Profile   *model.Profile `json:"profile,omitempty"`
}

// meResponse is the JSON response for GET /me
type meResponse struct {
	Identity model.Identity `json:"identity"`
	Profile  *model.Profile `json:"profile,omitempty"`
}

type startFunc func(ctx context.Context, creds auth.Credentials) (*session.Session, error)

// HandleSignIn handles POST /auth/sign_in
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.sessions.SignIn, "Sign-in")
}

// HandleSignUp handles POST /auth/sign_up
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, h.sessions.SignUp, "Sign-up")
}

func (h *AuthHandler) start(w http.ResponseWriter, r *http.Request, fn startFunc, action string) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	sess, err := fn(r.Context(), auth.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		log.Printf("%s failed for %s: %v", action, maskEmail(req.Email), err)
		respondWithStoreError(w, err)
		return
	}

	identity := h.sessions.Identity()
	response := sessionResponse{
		Token:     identity.Token(),
		TokenType: "bearer",
		Identity:  sess.Identity,
	}
	if p, ok := identity.Profile(); ok {
		response.Profile = &p
	}
	respondWithJSON(w, http.StatusOK, response)
}

// HandleSignOut handles POST /auth/sign_out (protected)
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context()); err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleMe handles GET /me (protected). Returns the signed-in identity and profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	response := meResponse{Identity: identity}
	if p, ok := h.sessions.Identity().Profile(); ok {
		response.Profile = &p
	}
	respondWithJSON(w, http.StatusOK, response)
}

// HandleSetupProfile handles PUT /me/profile (protected)
func (h *AuthHandler) HandleSetupProfile(w http.ResponseWriter, r *http.Request) {
	var req auth.ProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.sessions.SetupProfile(r.Context(), req)
	if err != nil {
		respondWithStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}
