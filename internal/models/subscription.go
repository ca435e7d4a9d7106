// Package models содержит доменные структуры записи подписки пользователя,
// результаты проверки доступа и вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Status статус подписки, хранящийся в записи пользователя.
type Status string

const (
	// StatusActive подписка действует, доступ к pro-материалам открыт.
	StatusActive Status = "active"
	// StatusInactive пользователь не подписывался или был понижен вручную.
	StatusInactive Status = "inactive"
	// StatusExpired подписка была, но истекла.
	StatusExpired Status = "expired"
)

// Valid сообщает, входит ли статус в допустимое перечисление.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired:
		return true
	default:
		return false
	}
}

// SubscriptionRecord запись подписки, одна на пользователя.
// Expiry имеет смысл только для StatusActive; nil у активной записи означает бессрочный доступ.
type SubscriptionRecord struct {
	UserID    string     `json:"user_id"`
	Status    Status     `json:"status"`
	Expiry    *time.Time `json:"expiry"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Entitlement вычисленное состояние доступа пользователя.
type Entitlement struct {
	UserID     string     `json:"user_id"`
	Status     Status     `json:"status"`
	IsEntitled bool       `json:"is_entitled"`
	Expiry     *time.Time `json:"expiry"`
	UpdatedAt  time.Time  `json:"updated_at"`
	// Stale сохранённая запись расходится с вычисленным статусом и ещё не исправлена.
	Stale bool `json:"stale"`
	// Reconciled запись была исправлена и сохранена в рамках текущего вызова.
	Reconciled bool `json:"reconciled"`
}

// Target целевой статус, который администратор применяет к одной или нескольким записям.
type Target struct {
	Status Status
	Expiry *time.Time
}

// ChangeEvent публикуется после каждого сохранённого изменения записи.
type ChangeEvent struct {
	UserID     string     `json:"user_id"`
	OldStatus  Status     `json:"old_status"`
	NewStatus  Status     `json:"new_status"`
	Expiry     *time.Time `json:"expiry"`
	Source     string     `json:"source"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Источники изменений записи.
const (
	SourceSelf  = "self"
	SourceAdmin = "admin"
	SourceBulk  = "bulk"
	SourceSweep = "sweep"
)

// BulkResult итог массового обновления: каждый обработанный ID попадает
// либо в Succeeded, либо в Failures. Skipped содержит ID, до которых обработка
// не дошла из-за отмены запроса.
type BulkResult struct {
	Succeeded []string             `json:"succeeded_ids"`
	Failures  map[string]ErrorKind `json:"failures"`
	Skipped   []string             `json:"skipped_ids,omitempty"`
	Cancelled bool                 `json:"cancelled"`
}

// Attempted возвращает количество записей, для которых была сделана попытка обновления.
func (r BulkResult) Attempted() int {
	return len(r.Succeeded) + len(r.Failures)
}

// DummyStatusUpdate используется для приёма тела запроса администратора на изменение одной записи.
type DummyStatusUpdate struct {
	Status string     `json:"status" validate:"required,oneof=active inactive expired"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// DummyBulkUpdate используется для приёма тела запроса на массовое изменение статуса.
type DummyBulkUpdate struct {
	UserIDs []string   `json:"user_ids" validate:"required,min=1,dive,uuid"`
	Status  string     `json:"status" validate:"required,oneof=active inactive expired"`
	Expiry  *time.Time `json:"expiry,omitempty"`
}

// Target преобразует запрос в целевой статус.
func (d DummyStatusUpdate) Target() Target {
	return Target{Status: Status(d.Status), Expiry: d.Expiry}
}

// Target преобразует запрос в целевой статус.
func (d DummyBulkUpdate) Target() Target {
	return Target{Status: Status(d.Status), Expiry: d.Expiry}
}
