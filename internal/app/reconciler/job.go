package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Sweeper понижает одну пачку истёкших подписок.
type Sweeper interface {
	ReconcileExpired(ctx context.Context) (models.BulkResult, error)
}

// Job одна итерация периодической сверки. Запуски не перекрываются:
// если предыдущий ещё идёт, новый пропускается.
type Job struct {
	sweeper Sweeper
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewJob создаёт Job, ограничивая каждый запуск временем timeout.
func NewJob(sweeper Sweeper, log *slog.Logger, timeout time.Duration) *Job {
	return &Job{sweeper: sweeper, log: log, timeout: timeout}
}

// Run выполняет сверку и логирует итог. Возвращает false, если запуск пропущен.
func (j *Job) Run(ctx context.Context) bool {
	const op = "reconciler.Job.Run"
	log := j.log.With(slog.String("op", op))

	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		log.Warn("previous sweep still running, skipping")
		return false
	}
	j.running = true
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := j.sweeper.ReconcileExpired(ctx)
	if err != nil {
		log.Error("sweep failed", sl.Err(err))
		return true
	}

	attrs := []any{
		slog.Int("downgraded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failures)),
		slog.Duration("took", time.Since(start)),
	}
	if res.Cancelled {
		log.Warn("sweep interrupted", append(attrs, slog.Int("skipped", len(res.Skipped)))...)
		return true
	}
	log.Info("sweep finished", attrs...)
	return true
}
