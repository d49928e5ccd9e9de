package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaani/client/internal/auth"
	"github.com/vaani/client/internal/call"
	"github.com/vaani/client/internal/config"
	"github.com/vaani/client/internal/db"
	httphandler "github.com/vaani/client/internal/http"
	"github.com/vaani/client/internal/repo"
	"github.com/vaani/client/internal/session"
	"github.com/vaani/client/internal/transport"
)

func main() {
	// Load .env from CWD (env vars override)
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context for startup operations
	ctx := context.Background()

	// Open session storage
	store, database, err := openSessionStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open session storage: %v", err)
	}
	if database != nil {
		defer database.Close()
	}

	// Initialize identity store
	authenticator := auth.NewLocalAuthenticator(repo.NewAccountRepo(nil), cfg.DevMode)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	identity := auth.NewService(authenticator, jwtService, store, nil)

	callCfg := call.DefaultConfig()
	callCfg.RingTimeout = cfg.RingTimeout

	sessions := session.NewManager(identity, session.Options{
		Call:     callCfg,
		SeedDemo: cfg.SeedDemo,
		NewTransport: func(calls *call.Controller) session.Transport {
			return transport.NewLoopback(calls, call.SystemScheduler, cfg.SimulatedAnswerDelay, cfg.DevMode)
		},
	})

	// Restore the previous session, if any
	if sess, ok, err := sessions.Resume(ctx); err != nil {
		log.Printf("Failed to resume session: %v", err)
	} else if ok {
		log.Printf("Resumed session %s", sess.Identity.ID)
	}

	// Create router
	router := httphandler.NewRouter(sessions, httphandler.RouterConfig{
		SendRatePerMinute: cfg.SendRatePerMinute,
		RequestLogging:    cfg.DevMode,
	})

	// Create HTTP server with timeouts; no WriteTimeout so /events can stream
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Vaani listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	// the session stays persisted; only in-memory state is dropped
	if sess, err := sessions.Current(); err == nil {
		sess.Close()
	}

	log.Println("Exited")
}

// openSessionStore opens the configured session storage and runs its migrations
func openSessionStore(ctx context.Context, cfg *config.Config) (repo.SessionStore, *sql.DB, error) {
	if cfg.StorageDriver == "memory" {
		log.Printf("Session storage: memory (sessions do not survive a restart)")
		return repo.NewMemorySessionStore(), nil, nil
	}

	database, err := db.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(database, cfg.StorageDriver); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return repo.NewSessionRepo(database), database, nil
}
