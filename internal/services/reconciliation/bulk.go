package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// AdminBulkSetStatus применяет один целевой статус к набору записей.
//
// Цель проверяется один раз до обращения к хранилищу. Дальше каждая запись
// обрабатывается независимо: ошибка одной не отменяет и не откатывает остальные.
// Отмена ctx останавливает обработку между записями, уже сохранённые записи остаются.
func (s *ReconciliationService) AdminBulkSetStatus(ctx context.Context, userIDs []string, target models.Target) (models.BulkResult, error) {
	if err := validateTarget(target, s.now()); err != nil {
		return models.BulkResult{}, err
	}

	res := s.fanOut(ctx, uniqueIDs(userIDs), func(ctx context.Context, userID string) error {
		_, err := s.overwrite(ctx, userID, target, models.SourceBulk)
		return err
	})

	s.log.Info("bulk status update finished",
		slog.String("status", string(target.Status)),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failures)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// ReconcileExpired находит активные записи с истёкшей датой и исправляет каждую
// тем же путём, что и SelfReconcile.
func (s *ReconciliationService) ReconcileExpired(ctx context.Context) (models.BulkResult, error) {
	ids, err := s.repo.ListStaleActive(ctx, s.now(), s.sweepLimit)
	if err != nil {
		return models.BulkResult{}, err
	}

	res := s.fanOut(ctx, ids, func(ctx context.Context, userID string) error {
		_, err := s.reconcile(ctx, userID, models.SourceSweep)
		return err
	})

	s.log.Info("expired subscriptions sweep finished",
		slog.Int("found", len(ids)),
		slog.Int("reconciled", len(res.Succeeded)),
		slog.Int("failed", len(res.Failures)),
	)
	return res, nil
}

// fanOut обрабатывает ID параллельно, не больше s.workers одновременно.
// Каждая запись выполняется с собственным таймаутом и не прерывается отменой ctx.
func (s *ReconciliationService) fanOut(ctx context.Context, ids []string, apply func(ctx context.Context, userID string) error) models.BulkResult {
	var (
		mu  sync.Mutex
		res = models.BulkResult{
			Succeeded: []string{},
			Failures:  make(map[string]models.ErrorKind),
		}
	)
	skip := func(userID string) {
		mu.Lock()
		res.Skipped = append(res.Skipped, userID)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(s.workers)

	for _, userID := range ids {
		if ctx.Err() != nil {
			skip(userID)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				skip(userID)
				return nil
			}

			recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
			err := apply(recCtx, userID)
			cancel()

			kind := models.KindOf(err)
			s.metrics.BulkRecord(kind)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures[userID] = kind
				return nil
			}
			res.Succeeded = append(res.Succeeded, userID)
			return nil
		})
	}
	// Итог каждой записи уже в res, горутины всегда возвращают nil.
	g.Wait()

	sort.Strings(res.Succeeded)
	sort.Strings(res.Skipped)
	res.Cancelled = len(res.Skipped) > 0
	return res
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
