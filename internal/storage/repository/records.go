package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// wrapErr приводит ошибку драйвера к доменной категории.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return fmt.Errorf("%s: %w: %w", op, models.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, models.ErrCancelled, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
	}
}

// LoadRecord возвращает запись подписки пользователя.
func (s *Storage) LoadRecord(ctx context.Context, userID string) (*models.SubscriptionRecord, error) {
	const op = "storage.LoadRecord"

	query := `SELECT id, subscription_status, subscription_expiry, updated_at
			  FROM user_profiles
			  WHERE id = $1`

	var (
		rec    models.SubscriptionRecord
		status string
		expiry sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &status, &expiry, &rec.UpdatedAt)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	rec.Status = models.Status(status)
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if expiry.Valid {
		t := expiry.Time.UTC()
		rec.Expiry = &t
	}
	return &rec, nil
}

// SaveRecord перезаписывает статус, дату истечения и время обновления одной записи.
// Запись не создаётся: если строки нет, возвращается models.ErrNotFound.
func (s *Storage) SaveRecord(ctx context.Context, rec models.SubscriptionRecord) error {
	const op = "storage.SaveRecord"

	query := `UPDATE user_profiles
			  SET subscription_status = $2,
			      subscription_expiry = $3,
			      updated_at = $4
			  WHERE id = $1`

	var expiry sql.NullTime
	if rec.Expiry != nil {
		expiry = sql.NullTime{Time: rec.Expiry.UTC(), Valid: true}
	}
	res, err := s.DB.ExecContext(ctx, query, rec.UserID, string(rec.Status), expiry, rec.UpdatedAt.UTC())
	if err != nil {
		return wrapErr(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr(op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ExpireStale переводит запись в expired, только если она всё ещё активна и её дата
// истечения не позже now. false означает, что строки нет или она уже не устарела.
func (s *Storage) ExpireStale(ctx context.Context, userID string, now time.Time) (bool, error) {
	const op = "storage.ExpireStale"

	query := `UPDATE user_profiles
			  SET subscription_status = 'expired',
			      subscription_expiry = NULL,
			      updated_at = $2
			  WHERE id = $1
			    AND subscription_status = 'active'
			    AND subscription_expiry IS NOT NULL
			    AND subscription_expiry <= $2`

	res, err := s.DB.ExecContext(ctx, query, userID, now.UTC())
	if err != nil {
		return false, wrapErr(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr(op, err)
	}
	return affected == 1, nil
}

// ListStaleActive возвращает ID активных записей, у которых дата истечения не позже now,
// начиная с давно истёкших.
func (s *Storage) ListStaleActive(ctx context.Context, now time.Time, limit int) ([]string, error) {
	const op = "storage.ListStaleActive"

	query := `SELECT id
			  FROM user_profiles
			  WHERE subscription_status = 'active'
			    AND subscription_expiry IS NOT NULL
			    AND subscription_expiry <= $1
			  ORDER BY subscription_expiry
			  LIMIT $2`

	rows, err := s.DB.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, wrapErr(op, err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return ids, nil
}
