// Package server exposes the storefront over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/localstore"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/storefront"
)

// Authenticator verifies bearer tokens and manages sign-in.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Claims, error)
	Login(ctx context.Context, token string) (*models.UserProfile, error)
	Logout(uid string)
	IsCurator(email string) bool
}

type Options struct {
	Service            *storefront.Service
	Auth               Authenticator
	State              *localstore.State
	RateLimitPerMinute int
	DocsSpecDir        string
}

// Server is the HTTP front of the storefront.
type Server struct {
	svc     *storefront.Service
	auth    Authenticator
	state   *localstore.State
	limiter *ipLimiter
	docsDir string
	router  chi.Router
}

func New(opts Options) *Server {
	state := opts.State
	if state == nil {
		state = localstore.NewState(localstore.NewMemory())
	}
	s := &Server{
		svc:     opts.Service,
		auth:    opts.Auth,
		state:   state,
		limiter: newIPLimiter(opts.RateLimitPerMinute),
		docsDir: opts.DocsSpecDir,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/docs", s.handleDocs)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.visitor)
		r.Use(s.authenticate)

		r.Get("/status", s.handleStatus)
		r.Get("/feed", s.handleFeed)
		r.Get("/feed/featured", s.handleFeatured)
		r.Get("/carousel", s.handleCarousel)
		r.Get("/likes", s.handleVisitorLikes)
		r.Get("/seo/jsonld", s.handleJSONLD)

		r.Get("/notifications", s.handleNotifications)
		r.Post("/notifications/read", s.handleNotificationsRead)
		r.Delete("/notifications", s.handleNotificationsClear)

		r.Get("/blog", s.handlePosts)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimit).Post("/login", s.handleLogin)
			r.With(requireUser).Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(s.rateLimit, requireUser).Post("/", s.handlePublish)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleProduct)
				r.Get("/related", s.handleRelated)
				r.Get("/comments", s.handleComments)

				r.Group(func(r chi.Router) {
					r.Use(s.rateLimit)
					r.Post("/click", s.handleClick)
					r.Post("/like", s.handleLike)
					r.Post("/interest", s.handleInterest)
					r.Post("/pitch", s.handlePitch)
					r.With(requireUser).Post("/comments", s.handleAddComment)
					r.With(requireUser).Patch("/", s.handleEdit)
					r.With(requireUser).Delete("/", s.handleDelete)
					r.With(requireUser).Put("/featured", s.handleFeature)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/visits", s.handleVisit)
			r.Post("/blog/{id}/view", s.handlePostView)
			r.With(requireUser).Post("/enrich", s.handleEnrich)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/leads", s.handleLeads)
			r.With(s.rateLimit).Post("/import", s.handleImport)
		})
	})

	s.router = r
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(s.docsDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Deals Storefront API"),
		),
	)
	if err != nil {
		slog.Error("Failed to render API docs", "dir", s.docsDir, "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "API docs unavailable.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}
