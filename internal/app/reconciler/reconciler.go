// Package reconciler периодически понижает истёкшие активные подписки,
// даже если пользователь сам их не проверяет.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/entitlement-service/internal/app/infra"
	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
)

// App планировщик сверки.
type App struct {
	cron     *cron.Cron
	job      *Job
	schedule string
	metrics  *http.Server
	infra    *infra.Infra
	logger   *slog.Logger
}

// New подключает ресурсы и готовит расписание. Миграции применяет HTTP-приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	in, err := infra.Open(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}
	svc := in.Service(cfg, prometheus.DefaultRegisterer)

	var srv *http.Server
	if cfg.MetricsAddress != "" {
		srv = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           metricsRouter(prometheus.DefaultGatherer),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &App{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		job:      NewJob(svc, logger, cfg.SweepTimeout),
		schedule: cfg.Schedule,
		metrics:  srv,
		infra:    in,
		logger:   logger,
	}, nil
}

// metricsRouter отдаёт счётчики сверки для Prometheus.
func metricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}

// Run выполняет сверку сразу, затем по расписанию до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.infra.Close()

	if _, err := a.cron.AddFunc(a.schedule, func() { a.job.Run(ctx) }); err != nil {
		return fmt.Errorf("reconciler.Run: invalid schedule %q: %w", a.schedule, err)
	}
	a.logger.Info("scheduled expired subscription sweep", slog.String("schedule", a.schedule))

	if a.metrics != nil {
		go func() {
			a.logger.Info("metrics server starting", slog.String("address", a.metrics.Addr))
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", sl.Err(err))
			}
		}()
	}

	a.job.Run(ctx)
	a.cron.Start()

	<-ctx.Done()
	a.logger.Info("shutting down reconciler")
	<-a.cron.Stop().Done()

	if a.metrics != nil {
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(timeoutCtx); err != nil {
			a.logger.Warn("failed to stop metrics server", sl.Err(err))
		}
	}
	return nil
}
