package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/labeldesk/backend/api"
	"github.com/labeldesk/backend/internal/handlers/respond"
	mW "github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router bundles everything the HTTP surface is built from.
type Router struct {
	Auth    *AuthHandler
	Balance *BalanceHandler
	Labels  *LabelHandler
	Devices *DeviceHandler
	Admin   *AdminHandler

	Authenticator *mW.Authenticator
	AuthLimiter   *mW.RateLimiter

	// Ping reports whether backing stores are reachable. Nil means always healthy.
	Ping           func(ctx context.Context) error
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mW.SecurityHeaders)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(mW.Metrics)
	if rt.RequestTimeout > 0 {
		r.Use(chimw.Timeout(rt.RequestTimeout))
	}

	origins := rt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", rt.health)
	r.Handle("/metrics", promhttp.Handler())

	// API documentation
	r.Get("/openapi.yaml", serveOpenAPI)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if rt.AuthLimiter != nil {
				r.Use(rt.AuthLimiter.Limit)
			}
			r.Post("/auth/register", rt.Auth.Register)
			r.Post("/auth/login", rt.Auth.Login)
			r.Post("/auth/refresh", rt.Auth.Refresh)
			r.Post("/auth/logout", rt.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.Authenticator.Authenticate)

			r.Get("/auth/account", rt.Auth.Me)
			r.Post("/auth/logout-all", rt.Auth.LogoutAll)

			r.Get("/balance", rt.Balance.GetBalance)
			r.Get("/balance/entries", rt.Balance.ListEntries)
			r.Post("/balance/topup", rt.Balance.TopUp)

			r.Get("/labels/price", rt.Labels.Price)
			r.Get("/labels", rt.Labels.List)
			r.Post("/labels", rt.Labels.Purchase)
			r.Get("/labels/{labelId}", rt.Labels.Get)
			r.Post("/labels/{labelId}/void", rt.Labels.Void)
			r.Get("/labels/{labelId}/qr", rt.Labels.QR)

			r.Get("/devices", rt.Devices.List)
			r.Post("/devices", rt.Devices.Register)
			r.Post("/devices/{deviceId}/otp", rt.Devices.RequestOTP)
			r.Post("/devices/{deviceId}/verify", rt.Devices.VerifyOTP)
			r.Post("/devices/{deviceId}/sign-out", rt.Devices.SignOut)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleAdmin))
				r.Post("/accounts/{accountId}/adjust", rt.Admin.Adjust)
				r.Get("/accounts/{accountId}/entries", rt.Admin.Entries)
				r.Get("/accounts/{accountId}/reconcile", rt.Admin.Reconcile)
			})
		})
	})

	return r
}

func (rt Router) health(w http.ResponseWriter, r *http.Request) {
	if rt.Ping != nil {
		if err := rt.Ping(r.Context()); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPI)
}
