// Package services содержит бизнес-логику сверки и изменения статуса подписки.
// Сервис единственный, кто записывает SubscriptionRecord.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/entitlement"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Repository определяет методы доступа к записям подписки.
type Repository interface {
	// LoadRecord возвращает запись пользователя или models.ErrNotFound.
	LoadRecord(ctx context.Context, userID string) (*models.SubscriptionRecord, error)
	// SaveRecord атомарно перезаписывает одну запись.
	SaveRecord(ctx context.Context, rec models.SubscriptionRecord) error
	// ExpireStale переводит запись в expired, только если она всё ещё устарела на момент now.
	// false означает, что запись изменилась после чтения или удалена.
	ExpireStale(ctx context.Context, userID string, now time.Time) (bool, error)
	// ListStaleActive возвращает ID активных записей с истёкшей датой.
	ListStaleActive(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// Cache описывает методы для кэширования записей.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует события об изменении записи.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// Recorder собирает метрики сервиса.
type Recorder interface {
	StaleDetected()
	Write(source string)
	BulkRecord(kind models.ErrorKind)
}

// Options настройки сервиса.
type Options struct {
	Workers      int              // Максимум параллельных записей при массовом обновлении
	WriteTimeout time.Duration    // Ограничение на обработку одной записи
	CacheTTL     time.Duration    // Время жизни записи в кеше
	SweepLimit   int              // Сколько устаревших записей исправлять за один проход
	Now          func() time.Time // Источник текущего времени
}

// ReconciliationService реализует сверку и административное изменение статуса подписки.
type ReconciliationService struct {
	repo    Repository
	cache   Cache
	events  EventPublisher
	metrics Recorder
	log     *slog.Logger

	workers      int
	writeTimeout time.Duration
	cacheTTL     time.Duration
	sweepLimit   int
	now          func() time.Time
}

// NewReconciliationService создает новый экземпляр ReconciliationService.
// cache и events могут быть nil.
func NewReconciliationService(repo Repository, cache Cache, events EventPublisher, metrics Recorder, log *slog.Logger, opts Options) *ReconciliationService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.SweepLimit <= 0 {
		opts.SweepLimit = 500
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReconciliationService{
		repo:         repo,
		cache:        cache,
		events:       events,
		metrics:      metrics,
		log:          log,
		workers:      opts.Workers,
		writeTimeout: opts.WriteTimeout,
		cacheTTL:     opts.CacheTTL,
		sweepLimit:   opts.SweepLimit,
		now:          opts.Now,
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("subscription:%s", userID)
}

// CheckStatus вычисляет доступ пользователя без записи в хранилище.
// Запись читается из кеша, при промахе из хранилища.
func (s *ReconciliationService) CheckStatus(ctx context.Context, userID string) (*models.Entitlement, error) {
	rec, err := s.readThrough(ctx, userID)
	if err != nil {
		return nil, err
	}

	verdict, err := entitlement.Evaluate(*rec, s.now())
	if err != nil {
		return nil, err
	}
	if verdict.WasStale {
		s.metrics.StaleDetected()
	}

	return &models.Entitlement{
		UserID:     rec.UserID,
		Status:     verdict.Status,
		IsEntitled: verdict.IsEntitled,
		Expiry:     rec.Expiry,
		UpdatedAt:  rec.UpdatedAt,
		Stale:      verdict.WasStale,
	}, nil
}

func (s *ReconciliationService) readThrough(ctx context.Context, userID string) (*models.SubscriptionRecord, error) {
	key := cacheKey(userID)
	if s.cache != nil {
		var cached models.SubscriptionRecord
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
		}
		if found {
			return &cached, nil
		}
	}

	rec, err := s.repo.LoadRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(key, rec, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache subscription record", slog.String("key", key), sl.Err(err))
		}
	}
	return rec, nil
}

// SelfReconcile исправляет устаревшую запись пользователя и возвращает актуальный доступ.
// Если запись не устарела, ничего не записывается. Повысить статус этот метод не может.
func (s *ReconciliationService) SelfReconcile(ctx context.Context, userID string) (*models.Entitlement, error) {
	return s.reconcile(ctx, userID, models.SourceSelf)
}

func (s *ReconciliationService) reconcile(ctx context.Context, userID, source string) (*models.Entitlement, error) {
	rec, err := s.repo.LoadRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	verdict, err := entitlement.Evaluate(*rec, now)
	if err != nil {
		return nil, err
	}

	if !verdict.WasStale {
		return &models.Entitlement{
			UserID:     rec.UserID,
			Status:     verdict.Status,
			IsEntitled: verdict.IsEntitled,
			Expiry:     rec.Expiry,
			UpdatedAt:  rec.UpdatedAt,
		}, nil
	}

	s.metrics.StaleDetected()
	expired, err := s.repo.ExpireStale(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if !expired {
		return s.current(ctx, userID, now, source)
	}

	oldStatus := rec.Status
	rec.Status = models.StatusExpired
	rec.Expiry = nil
	rec.UpdatedAt = now.UTC()
	s.afterWrite(ctx, *rec, oldStatus, source)

	s.log.Info("stale subscription reconciled",
		slog.String("user_id", userID),
		slog.String("source", source),
	)
	return &models.Entitlement{
		UserID:     rec.UserID,
		Status:     rec.Status,
		IsEntitled: false,
		UpdatedAt:  rec.UpdatedAt,
		Reconciled: true,
	}, nil
}

// current перечитывает запись, которую успели изменить между чтением и условной записью.
// Более новая запись (например, выданная администратором) остаётся как есть.
func (s *ReconciliationService) current(ctx context.Context, userID string, now time.Time, source string) (*models.Entitlement, error) {
	rec, err := s.repo.LoadRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	verdict, err := entitlement.Evaluate(*rec, now)
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription changed during reconcile, keeping stored record",
		slog.String("user_id", userID),
		slog.String("source", source),
		slog.String("status", string(rec.Status)),
	)
	return &models.Entitlement{
		UserID:     rec.UserID,
		Status:     verdict.Status,
		IsEntitled: verdict.IsEntitled,
		Expiry:     rec.Expiry,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

// AdminSetStatus безусловно перезаписывает статус и дату истечения одной записи.
func (s *ReconciliationService) AdminSetStatus(ctx context.Context, userID string, target models.Target) (*models.SubscriptionRecord, error) {
	if err := validateTarget(target, s.now()); err != nil {
		return nil, err
	}
	return s.overwrite(ctx, userID, target, models.SourceAdmin)
}

func (s *ReconciliationService) overwrite(ctx context.Context, userID string, target models.Target, source string) (*models.SubscriptionRecord, error) {
	rec, err := s.repo.LoadRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldStatus := rec.Status
	rec.Status = target.Status
	rec.Expiry = nil
	if target.Expiry != nil {
		expiry := target.Expiry.UTC()
		rec.Expiry = &expiry
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveRecord(ctx, *rec); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, *rec, oldStatus, source)
	return rec, nil
}

func validateTarget(target models.Target, now time.Time) error {
	if !target.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidTarget, target.Status)
	}
	if target.Expiry == nil {
		return nil
	}
	if target.Status != models.StatusActive {
		return fmt.Errorf("%w: expiry is only allowed for status %s", models.ErrInvalidTarget, models.StatusActive)
	}
	if !target.Expiry.After(now) {
		return fmt.Errorf("%w: expiry %s is not in the future, set status %s instead",
			models.ErrInvalidTarget, target.Expiry.UTC().Format(time.RFC3339), models.StatusExpired)
	}
	return nil
}

// afterWrite сбрасывает кеш, считает запись и публикует событие. Ошибки только логируются.
func (s *ReconciliationService) afterWrite(ctx context.Context, rec models.SubscriptionRecord, oldStatus models.Status, source string) {
	s.metrics.Write(source)

	if s.cache != nil {
		key := cacheKey(rec.UserID)
		if err := s.cache.Invalidate(key); err != nil {
			s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
		}
	}

	if s.events == nil {
		return
	}
	event := models.ChangeEvent{
		UserID:     rec.UserID,
		OldStatus:  oldStatus,
		NewStatus:  rec.Status,
		Expiry:     rec.Expiry,
		Source:     source,
		OccurredAt: rec.UpdatedAt,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish change event", slog.String("user_id", rec.UserID), sl.Err(err))
	}
}
