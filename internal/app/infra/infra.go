// Package infra открывает общие для приложений ресурсы: базу, кэш и канал RabbitMQ.
package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/entitlement-service/internal/cache"
	"github.com/magabrotheeeer/entitlement-service/internal/config"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/metrics"
	"github.com/magabrotheeeer/entitlement-service/internal/migrations"
	services "github.com/magabrotheeeer/entitlement-service/internal/services/reconciliation"
	"github.com/magabrotheeeer/entitlement-service/internal/storage/repository"
)

// Infra ресурсы, из которых собирается ReconciliationService.
type Infra struct {
	DB        *repository.Storage
	Cache     *cache.Cache
	Publisher *rabbitmq.Publisher
	conn      *amqp.Connection
	logger    *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// Open подключается к базе, при runMigrations применяет миграции, затем
// подключает кэш и RabbitMQ. Кэш и брокер необязательны: без адреса в конфиге
// сервис работает без них.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, runMigrations bool) (*Infra, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	in := &Infra{DB: db, logger: logger}

	if runMigrations {
		if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			in.Close()
			return nil, err
		}
	}
	if err = waitForDB(ctx, db); err != nil {
		in.Close()
		return nil, err
	}

	if cfg.AddressRedis != "" {
		in.Cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
	} else {
		logger.Warn("redis address is empty, running without cache")
	}

	if cfg.RabbitMQURL != "" {
		in.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		ch, err := rabbitmq.SetupChannel(in.conn, cfg.Exchange, rabbitmq.ChangeQueues(cfg.RoutingKey))
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		in.Publisher = rabbitmq.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey)
	} else {
		logger.Warn("rabbitmq url is empty, change events are not published")
	}

	return in, nil
}

// Service собирает ReconciliationService поверх открытых ресурсов.
func (in *Infra) Service(cfg *config.Config, reg prometheus.Registerer) *services.ReconciliationService {
	var (
		c  services.Cache
		ev services.EventPublisher
	)
	if in.Cache != nil {
		c = in.Cache
	}
	if in.Publisher != nil {
		ev = in.Publisher
	}
	return services.NewReconciliationService(in.DB, c, ev, metrics.New(reg), in.logger, services.Options{
		Workers:      cfg.Workers,
		WriteTimeout: cfg.WriteTimeout,
		CacheTTL:     cfg.CacheTTL,
		SweepLimit:   cfg.BatchSize,
	})
}

// Close освобождает все открытые ресурсы.
func (in *Infra) Close() {
	if in.Publisher != nil {
		if err := in.Publisher.Close(); err != nil {
			in.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if in.conn != nil {
		if err := in.conn.Close(); err != nil {
			in.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if in.Cache != nil {
		if err := in.Cache.Close(); err != nil {
			in.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if in.DB != nil {
		if err := in.DB.Close(); err != nil {
			in.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
