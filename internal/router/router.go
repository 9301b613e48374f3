// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// inkpost API. Reads are public; writes sit behind bearer authentication,
// and category writes additionally require an admin.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkpost/internal/handlers"
	"inkpost/internal/httputil"
	"inkpost/internal/middleware"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const msgRouteNotFound = "Route not found"

// Handlers groups the endpoint handlers the router dispatches to.
type Handlers struct {
	Auth       *handlers.Auth
	Posts      *handlers.Posts
	Categories *handlers.Categories
	Media      *handlers.Media
}

// Options configures the global middleware chain.
type Options struct {
	// Resolver turns bearer tokens into users.
	Resolver middleware.Resolver

	// RateLimit limits requests per client; nil disables limiting.
	RateLimit func(http.Handler) http.Handler

	// CORSOrigin is "*" or a comma-separated list of allowed origins.
	CORSOrigin string

	// UploadDir is served under /uploads when set. It is left empty when
	// media lives in object storage.
	UploadDir string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(opts.CORSOrigin))
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit)
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", healthHandler)
	r.Get("/", indexHandler)

	if opts.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir)))
		r.Handle("/uploads/*", middleware.SandboxFiles(fs))
	}

	authenticate := middleware.Authenticate(opts.Resolver)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.With(authenticate).Get("/me", h.Auth.Me)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.Posts.List)
			r.Get("/{idOrSlug}", h.Posts.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", h.Posts.Create)
				r.Put("/{id}", h.Posts.Update)
				r.Delete("/{id}", h.Posts.Delete)
				r.Post("/{id}/comments", h.Posts.AddComment)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.List)
			r.Get("/{idOrSlug}", h.Categories.Get)

			// Category management, admin only.
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequireAdmin)
				r.Post("/", h.Categories.Create)
				r.Put("/{id}", h.Categories.Update)
				r.Delete("/{id}", h.Categories.Delete)
			})
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/{id}", h.Media.Get)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", h.Media.Upload)
				r.Delete("/{id}", h.Media.Delete)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// indexHandler describes the API.
func indexHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]any{
		"message": "inkpost blog API is running",
		"version": Version,
		"endpoints": map[string]string{
			"posts":      "/api/posts",
			"categories": "/api/categories",
			"auth":       "/api/auth",
			"uploads":    "/api/uploads",
		},
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.Error(w, http.StatusNotFound, msgRouteNotFound)
}
