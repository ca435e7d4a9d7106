// Package entitlement вычисляет фактический доступ пользователя по записи подписки.
// Пакет не выполняет ввода-вывода и не изменяет записи.
package entitlement

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Verdict результат вычисления.
type Verdict struct {
	Status     models.Status // Логически верный статус записи
	IsEntitled bool          // Есть ли доступ к платным материалам
	WasStale   bool          // Сохранённый статус расходится с вычисленным
}

// Evaluate вычисляет статус и доступ по записи на момент now.
//
// Активная запись с датой истечения не позже now считается устаревшей:
// вычисленный статус expired, доступа нет. Сохранять исправление должен вызывающий.
func Evaluate(rec models.SubscriptionRecord, now time.Time) (Verdict, error) {
	if !rec.Status.Valid() {
		return Verdict{}, fmt.Errorf("%w: unknown status %q for user %s", models.ErrInvalidRecord, rec.Status, rec.UserID)
	}

	if rec.Status != models.StatusActive {
		return Verdict{Status: rec.Status}, nil
	}
	if rec.Expiry == nil || rec.Expiry.After(now) {
		return Verdict{Status: models.StatusActive, IsEntitled: true}, nil
	}
	return Verdict{Status: models.StatusExpired, WasStale: true}, nil
}
