package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	// Public read API: CORS-decorated, never denied.
	api.HandleFunc("/content", s.publicRead(s.handleListContent)).Methods("GET")

	// Mutating API: session cookie required, pre-flight answered by the guard.
	api.HandleFunc("/content", s.requireAdmin(s.handleCreateContent)).Methods("POST", "OPTIONS")
	api.HandleFunc("/content/{id}", s.requireAdmin(s.handleUpdateContent)).Methods("PUT", "OPTIONS")
	api.HandleFunc("/content/{id}", s.requireAdmin(s.handleDeleteContent)).Methods("DELETE")

	// Public lead capture: rate-limited, crawler-exempt.
	api.HandleFunc("/leads", s.handleSubmitLead).Methods("POST")
	api.HandleFunc("/leads", s.requireAdmin(s.handleListLeads)).Methods("GET", "OPTIONS")
	api.HandleFunc("/leads/{id}", s.requireAdmin(s.handleDeleteLead)).Methods("DELETE", "OPTIONS")

	// Admin UI tree behind the session guard; the login page is always
	// reachable.
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.sessionGuard)
	admin.HandleFunc("/login", s.handleAdminLogin).Methods("GET")
	admin.HandleFunc("/ws", s.handleAdminSocket)
	admin.PathPrefix("/").HandlerFunc(s.handleAdminHome).Methods("GET")

	return r
}

// newWindowStore picks the rate-window backend: in-process by default, Redis
// when configured so multiple instances share one limit view.
func newWindowStore(ctx context.Context, cfg *Config, prefix string) WindowStore {
	if cfg.RedisAddr != "" {
		store, err := NewRedisWindowStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, prefix)
		if err != nil {
			log.Fatalf("failed to connect rate-limit store: %v", err)
		}
		log.Printf("using redis rate-limit store for %s", prefix)
		return store
	}

	store := NewMemoryWindowStore()
	store.StartSweep(ctx, cfg.SweepInterval)
	return store
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	leads, err := NewLeadStore(db)
	if err != nil {
		log.Fatalf("failed to initialize lead store: %v", err)
	}
	content, err := NewContentStore(db)
	if err != nil {
		log.Fatalf("failed to initialize content store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each admission policy owns its own store instance: login throttling
	// and lead throttling never share counters.
	srv := &Server{
		cfg:      cfg,
		tokens:   NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL),
		verifier: NewCredentialVerifier(cfg),
		loginLimit: NewLimiter(newWindowStore(ctx, cfg, "login"),
			cfg.LoginMaxAttempts, cfg.LoginWindow, false),
		leadLimit: NewLimiter(newWindowStore(ctx, cfg, "leads"),
			cfg.LeadMaxRequests, cfg.LeadWindow, true),
		origins:   NewOriginPolicy(cfg.AllowedOrigins),
		leads:     leads,
		content:   content,
		clients:   NewClientManager(),
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      secureHeaders(cfg)(srv.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if cfg.EnableHTTPS {
			log.Printf("HTTPS server running on :%s", cfg.Port)
			if err := httpServer.ListenAndServeTLS("server.crt", "server.key"); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTPS server failed: %v", err)
			}
		} else {
			log.Printf("HTTP server running on :%s", cfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("HTTP server failed: %v", err)
			}
		}
	}()

	<-ctx.Done()
	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
