package handlers

import (
	"net/http"
	"time"

	"familytasks/internal/security"
	"familytasks/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the router's collaborators
type RouterConfig struct {
	Auth           *service.AuthService
	Families       *service.FamilyService
	Tasks          *service.TaskService
	RateLimiter    *security.RateLimiter
	AllowedOrigins []string
	Log            *zap.Logger
}

// NewRouter builds the API router
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	mw := NewMiddleware(cfg.Auth, cfg.Log)
	authHandler := NewAuthHandler(cfg.Auth, cfg.Log)
	familyHandler := NewFamilyHandler(cfg.Families, cfg.Log)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.RateLimiter != nil {
					r.Use(cfg.RateLimiter.Middleware(rateLimited))
				}
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/google", authHandler.Google)
			})
			r.Post("/refresh-token", authHandler.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAuth)
				r.Post("/logout", authHandler.Logout)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)

			r.Route("/families", func(r chi.Router) {
				r.Post("/", familyHandler.CreateFamily)
				r.Get("/", familyHandler.GetFamilies)
				r.Post("/accept-invitation", familyHandler.AcceptInvitation)
				r.Get("/{id}", familyHandler.GetFamily)
				r.Post("/{id}/invite", familyHandler.InviteMember)
				r.Delete("/{id}/invitations/{email}", familyHandler.CancelInvitation)
				r.Delete("/{id}/members/{userId}", familyHandler.RemoveMember)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.CreateTask)
				r.Get("/", taskHandler.GetTasks)
				r.Get("/{id}", taskHandler.GetTask)
				r.Put("/{id}", taskHandler.UpdateTask)
				r.Delete("/{id}", taskHandler.DeleteTask)
				r.Patch("/{id}/status", taskHandler.UpdateTaskStatus)
			})
		})
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}
	for _, o := range origins {
		if o == "*" {
			// browsers reject credentials with a wildcard origin
			opts.AllowCredentials = false
			break
		}
	}
	return cors.Handler(opts)
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Code:    "RATE_LIMITED",
		Message: "Too many requests, please try again later",
	})
}
