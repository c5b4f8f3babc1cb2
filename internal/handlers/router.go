package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/middleware"
	"github.com/testlab/testplan-backend-service/internal/storage"
)

// NewRouter assembles the full route table. The auth limiter may be nil,
// which disables rate limiting (tests do this).
func NewRouter(store storage.Storage, sessions *auth.SessionStore, sessionTTL time.Duration,
	files *FileStore, authLimiter *middleware.IPRateLimiter, version string) *chi.Mux {

	authHandler := NewAuthHandler(store, sessions, sessionTTL)
	projectHandler := NewProjectHandler(store, files)
	testItemHandler := NewTestItemHandler(store, files)
	issueItemHandler := NewIssueItemHandler(store, files)
	transferHandler := NewTransferHandler(store, files)
	healthHandler := NewHealthHandler(version)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", healthHandler.Check)

	// Uploaded files are public by URL, like the original static mount
	r.Get("/uploads/{name}", files.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if authLimiter != nil {
				r.Use(middleware.RateLimit(authLimiter))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// Everything below requires a valid session cookie
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(sessions))

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", projectHandler.Get)
					r.Patch("/", projectHandler.Patch)
					r.Delete("/", projectHandler.Delete)
					r.Post("/images", projectHandler.UploadImage)

					r.Get("/test-items", testItemHandler.ListByProject)
					r.Post("/test-items", testItemHandler.Create)
					r.Get("/test-items/export", transferHandler.Export)
					r.Post("/test-items/import", transferHandler.Import)

					r.Get("/issue-items", issueItemHandler.ListByProject)
					r.Post("/issue-items", issueItemHandler.Create)
				})
			})

			r.Route("/test-items", func(r chi.Router) {
				r.Get("/", testItemHandler.ListAll)

				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", testItemHandler.Patch)
					r.Delete("/", testItemHandler.Delete)
					r.Post("/photos", testItemHandler.UploadPhoto)
					r.Post("/graphs", testItemHandler.UploadGraph)
					r.Post("/attachments", testItemHandler.UploadAttachment)
				})
			})

			r.Route("/issue-items/{id}", func(r chi.Router) {
				r.Patch("/", issueItemHandler.Patch)
				r.Delete("/", issueItemHandler.Delete)
				r.Post("/photos", issueItemHandler.UploadPhoto)
				r.Post("/graphs", issueItemHandler.UploadGraph)
				r.Post("/attachments", issueItemHandler.UploadAttachment)
			})
		})
	})

	return r
}
