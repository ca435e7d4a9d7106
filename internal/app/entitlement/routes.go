package entitlement

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	_ "github.com/magabrotheeeer/entitlement-service/docs"
	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/admin/bulkupdate"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/admin/reconcileall"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/admin/setstatus"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/entitlement/reconcile"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/entitlement/status"
	"github.com/magabrotheeeer/entitlement-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
)

// Service объединяет операции, которые обслуживает HTTP API.
type Service interface {
	status.Service
	reconcile.Service
	setstatus.Service
	bulkupdate.Service
	reconcileall.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, svc Service, parser middlewarectx.TokenParser, db health.Pinger) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(parser, logger))

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
				r.Get("/subscription/status", status.New(logger, svc).ServeHTTP)
				r.Post("/subscription/reconcile", reconcile.New(logger, svc).ServeHTTP)
			})

			r.Route("/admin/subscriptions", func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/bulk", bulkupdate.New(logger, svc, cfg.MaxIDs).ServeHTTP)
				r.Post("/reconcile-all", reconcileall.New(logger, svc).ServeHTTP)
				r.Put("/{userID}", setstatus.New(logger, svc).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, db).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
