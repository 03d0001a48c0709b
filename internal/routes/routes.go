package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/propertyhub-backend/internal/handlers"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
)

// Deps is everything the route table binds.
type Deps struct {
	Auth          *handlers.AuthHandler
	Recaptcha     *handlers.RecaptchaHandler
	Properties    *handlers.PropertyHandler
	Profile       *handlers.ProfileHandler
	Upload        *handlers.UploadHandler
	Authenticator *middleware.Authenticator
	// AuthLimiter may be nil when Redis is not configured.
	AuthLimiter *middleware.RateLimiter
	Environment string
}

func SetupRoutes(r chi.Router, d Deps) {
	r.Get("/api/health", handlers.Health(d.Environment))

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.AuthLimiter.Limit("auth"))
			r.Post("/verify-recaptcha", d.Recaptcha.Verify)
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/reset-password", d.Auth.ResetPassword)
		})
		r.Post("/logout", d.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.RequireAuth)
			r.Post("/update-password", d.Auth.UpdatePassword)
			r.Get("/session", d.Auth.Session)
		})
	})

	r.Route("/api/properties", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.OptionalAuth)
			r.Get("/", d.Properties.List)
			r.Get("/{id}", d.Properties.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.RequireAuth)
			r.Post("/", d.Properties.Create)
			r.Put("/{id}", d.Properties.Update)
			r.Delete("/{id}", d.Properties.Delete)
		})
	})

	// Groups, not Route+Use: unknown paths must reach the 404 handler without auth running first.
	r.Group(func(r chi.Router) {
		r.Use(d.Authenticator.RequireAuth)
		r.Get("/api/users/profile", d.Profile.Get)
		r.Put("/api/users/profile", d.Profile.Update)
		r.Post("/api/upload", d.Upload.Upload)
	})

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)
}
