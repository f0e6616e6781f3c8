// Package router assembles the HTTP route tree from the configured
// feature set. In SSO mode only the verification surface is mounted:
// JWKS publication and token introspection, no credential endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sentra-id/sentra/pkg/api"
	"github.com/sentra-id/sentra/pkg/config"
	"github.com/sentra-id/sentra/pkg/ratelimit"
)

// Config carries the handlers and toggles the route tree is built from.
type Config struct {
	Mode     config.Mode
	Features config.FeaturesConfig

	Handler *api.Handler
	Guard   *ratelimit.Guard
}

// New builds the chi mux for the configured mode.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/.well-known/jwks.json", cfg.Handler.JWKS)
	r.Get("/healthz", healthz)

	// Introspection works in both modes; it needs only the public key.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Handler.RequireAuth)
		r.Get("/auth/me", me)
	})

	if cfg.Mode == config.ModeSSO {
		return r
	}

	mountAuthRoutes(r, cfg)
	return r
}

func mountAuthRoutes(r *chi.Mux, cfg Config) {
	authHandler := api.NewAuthHandler(cfg.Handler)
	twoFactorHandler := api.NewTwoFactorHandler(cfg.Handler)
	deviceHandler := api.NewDeviceHandler(cfg.Handler)
	socialHandler := api.NewSocialHandler(cfg.Handler)
	oauthHandler := api.NewOAuthHandler(cfg.Handler)

	r.Route("/auth", func(r chi.Router) {
		r.With(cfg.Guard.Register).Post("/register", authHandler.Register)
		r.With(cfg.Guard.Login).Post("/login", authHandler.Login)
		r.With(cfg.Guard.Login).Post("/login/2fa", authHandler.TwoFactorLogin)
		r.Post("/refresh", authHandler.Refresh)
		r.Get("/verify-email", authHandler.VerifyEmail)
		r.With(cfg.Guard.PasswordReset).Post("/password-reset", authHandler.RequestPasswordReset)
		r.With(cfg.Guard.PasswordReset).Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

		if cfg.Features.SocialLogin {
			r.With(cfg.Guard.Login).Post("/social/login", socialHandler.Login)
		}

		r.Group(func(r chi.Router) {
			r.Use(cfg.Handler.RequireAuth)
			r.Post("/logout", authHandler.Logout)

			if cfg.Features.AccountManagement {
				r.Post("/change-password", authHandler.ChangePassword)
				r.Post("/deactivate", authHandler.DeactivateAccount)
				r.Delete("/account", authHandler.DeleteAccount)
			}
			if cfg.Features.SocialLogin {
				r.Post("/social/link", socialHandler.Link)
				r.Delete("/social/{provider}", socialHandler.Unlink)
			}
		})
	})

	if cfg.Features.TwoFactor {
		r.Route("/2fa", func(r chi.Router) {
			r.Use(cfg.Handler.RequireAuth)
			r.Get("/", twoFactorHandler.Status)
			r.Post("/setup", twoFactorHandler.Setup)
			r.Post("/enable", twoFactorHandler.Enable)
			r.Post("/disable", twoFactorHandler.Disable)
			r.Post("/backup-codes", twoFactorHandler.RegenerateBackupCodes)
		})
	}

	if cfg.Features.DeviceManagement {
		r.Route("/devices", func(r chi.Router) {
			r.Use(cfg.Handler.RequireAuth)
			r.Get("/", deviceHandler.List)
			r.Put("/{deviceID}", deviceHandler.Rename)
			r.Delete("/{deviceID}", deviceHandler.Revoke)
		})
	}

	r.Route("/oauth", func(r chi.Router) {
		r.With(cfg.Handler.RequireAuth).Post("/authorize", oauthHandler.Authorize)
		r.Post("/token", oauthHandler.Token)
	})
}

func healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// me echoes back the verified claims of the presented access token.
func me(w http.ResponseWriter, r *http.Request) {
	claims, _ := api.ClaimsFromContext(r.Context())
	render.JSON(w, r, map[string]any{
		"sub":       claims.Subject,
		"email":     claims.Email,
		"tenant_id": claims.TenantID,
		"roles":     claims.Roles,
		"exp":       claims.ExpiresAt.Unix(),
	})
}
