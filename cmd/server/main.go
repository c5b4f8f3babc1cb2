package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/config"
	"github.com/testlab/testplan-backend-service/internal/handlers"
	"github.com/testlab/testplan-backend-service/internal/middleware"
	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
)

const version = "1.0.0"

// Bootstrap account seeded when the store holds no users yet.
const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "admin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Test Plan Backend Service v%s", version)
	log.Printf("Server will listen on %s", cfg.Address())

	// Initialize storage
	store, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	if err := seedAdminUser(store); err != nil {
		log.Fatalf("Failed to seed default user: %v", err)
	}

	// Sessions live in memory and expire after the configured TTL
	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	sessions := auth.NewSessionStore(sessionTTL)
	sweepDone := make(chan struct{})
	go sweepSessions(sessions, sweepDone)

	files, err := handlers.NewFileStore(cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		log.Fatalf("Failed to initialize upload store: %v", err)
	}
	log.Printf("Uploads stored in %s (limit %d MB)", cfg.UploadDir, cfg.MaxUploadMB)

	authLimiter := middleware.NewIPRateLimiter(30)
	defer authLimiter.Stop()

	r := handlers.NewRouter(store, sessions, sessionTTL, files, authLimiter, version)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Address())

		if cfg.EnableTLS {
			log.Printf("TLS enabled with cert=%s key=%s", cfg.CertFile, cfg.KeyFile)
			if err := srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTPS server: %v", err)
			}
		} else {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTP server: %v", err)
			}
		}
	}()

	log.Println("Server started successfully")
	log.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	close(sweepDone)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// openStorage builds the backend named by the configuration. The dual mode
// keeps the JSON file as primary with MySQL mirroring every write.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "memory":
		log.Println("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case "json":
		store, err := storage.NewJSONStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		log.Printf("Using JSON storage at: %s", cfg.StoragePath)
		return store, nil
	case "mysql":
		store, err := storage.NewMySQLStorage(cfg.DSN())
		if err != nil {
			return nil, err
		}
		log.Printf("Using MySQL storage at %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
		return store, nil
	case "dual":
		primary, err := storage.NewJSONStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		mirror, err := storage.NewMySQLStorage(cfg.DSN())
		if err != nil {
			primary.Close()
			return nil, err
		}
		log.Printf("Using dual storage: JSON at %s mirrored to MySQL %s:%d/%s",
			cfg.StoragePath, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return storage.NewDualStorage(primary, mirror), nil
	default:
		return nil, errors.New("unsupported storage type: " + cfg.StorageType)
	}
}

// seedAdminUser creates the bootstrap account on an empty store so the
// service is usable right after first start.
func seedAdminUser(store storage.Storage) error {
	if _, err := store.GetUserByUsername(defaultAdminUser); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(defaultAdminPassword)
	if err != nil {
		return err
	}
	user := &model.User{Username: defaultAdminUser, Password: hash}
	if err := store.CreateUser(user); err != nil {
		return err
	}

	log.Printf("AUTH: seeded default user %q, change its password immediately", defaultAdminUser)
	return nil
}

// sweepSessions drops expired sessions every few minutes until done closes.
func sweepSessions(sessions *auth.SessionStore, done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.Printf("AUTH: swept %d expired sessions", n)
			}
		case <-done:
			return
		}
	}
}
