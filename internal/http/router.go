package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vaani/client/internal/http/handlers"
	"github.com/vaani/client/internal/middleware"
	"github.com/vaani/client/internal/session"
)

// RouterConfig tunes the bridge middleware
type RouterConfig struct {
	// SendRatePerMinute bounds message sends per identity
	SendRatePerMinute int
	// RequestLogging enables the chi request logger
	RequestLogging bool
}

// NewRouter creates the view bridge router with all routes configured
func NewRouter(sessions *session.Manager, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)

	authHandler := handlers.NewAuthHandler(sessions)
	contactsHandler := handlers.NewContactsHandler(sessions)
	conversationsHandler := handlers.NewConversationsHandler(sessions)
	friendsHandler := handlers.NewFriendsHandler(sessions)
	callsHandler := handlers.NewCallsHandler(sessions)
	eventsHandler := handlers.NewEventsHandler(sessions)
	viewHandler := handlers.NewViewHandler(sessions)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)
	r.Get("/view", viewHandler.HandleRoute)

	// sign-in attempts: 10 per minute per client
	signInLimiter := middleware.NewRateLimiter(time.Minute, 10)
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimitMiddleware(signInLimiter, middleware.GetIPKey)).Post("/sign_in", authHandler.HandleSignIn)
		r.With(middleware.RateLimitMiddleware(signInLimiter, middleware.GetIPKey)).Post("/sign_up", authHandler.HandleSignUp)
	})

	sendRate := cfg.SendRatePerMinute
	if sendRate <= 0 {
		sendRate = 60
	}
	sendLimiter := middleware.NewRateLimiter(time.Minute, sendRate)

	// Protected routes (require the current session token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(sessions.Identity()))

		r.Post("/auth/sign_out", authHandler.HandleSignOut)
		r.Get("/me", authHandler.HandleMe)
		r.Put("/me/profile", authHandler.HandleSetupProfile)

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", contactsHandler.HandleList)
			r.Get("/{id}", contactsHandler.HandleGet)
			r.Delete("/{id}", contactsHandler.HandleRemove)
			r.Put("/{id}/presence", contactsHandler.HandleSetPresence)
		})

		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/messages", conversationsHandler.HandleMessages)
			r.With(middleware.RateLimitMiddleware(sendLimiter, middleware.GetIdentityKey)).Post("/messages", conversationsHandler.HandleSend)
			r.Patch("/messages/{messageID}", conversationsHandler.HandleEdit)
			r.Post("/messages/{messageID}/reactions", conversationsHandler.HandleReact)
			r.Post("/inbound", conversationsHandler.HandleInbound)
			r.Post("/read", conversationsHandler.HandleMarkRead)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/requests", friendsHandler.HandlePending)
			r.Post("/requests", friendsHandler.HandleInbound)
			r.Post("/requests/{id}/accept", friendsHandler.HandleAccept)
			r.Post("/requests/{id}/decline", friendsHandler.HandleDecline)
			r.Get("/outgoing", friendsHandler.HandleOutgoing)
			r.Post("/outgoing", friendsHandler.HandleSendRequest)
			r.Delete("/outgoing/{id}", friendsHandler.HandleCancelRequest)
		})

		r.Route("/call", func(r chi.Router) {
			r.Get("/", callsHandler.HandleCurrent)
			r.Post("/", callsHandler.HandleInitiate)
			r.Get("/history", callsHandler.HandleHistory)
			r.Post("/accept", callsHandler.HandleAccept)
			r.Post("/decline", callsHandler.HandleDecline)
			r.Post("/hangup", callsHandler.HandleHangUp)
			r.Post("/reset", callsHandler.HandleReset)
			r.Post("/mute", callsHandler.HandleMute)
			r.Post("/camera_off", callsHandler.HandleCamera)
			r.Post("/remote/offer", callsHandler.HandleRemoteOffer)
			r.Post("/remote/answer", callsHandler.HandleRemoteAnswer)
			r.Post("/remote/hangup", callsHandler.HandleRemoteHangup)
		})

		r.Get("/events", eventsHandler.HandleStream)
	})

	return r
}
