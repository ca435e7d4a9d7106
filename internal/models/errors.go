package models

import (
	"context"
	"errors"
)

// ErrorKind категория ошибки, которая отдаётся клиенту и попадает в отчёт массового обновления.
type ErrorKind string

const (
	KindInvalidRecord ErrorKind = "invalid_record"
	KindInvalidTarget ErrorKind = "invalid_target"
	KindNotFound      ErrorKind = "not_found"
	KindStorage       ErrorKind = "storage_error"
	KindTimeout       ErrorKind = "timeout"
	KindCancelled     ErrorKind = "cancelled"
)

var (
	// ErrInvalidRecord в хранилище лежит статус вне перечисления. Автоматически не исправляется.
	ErrInvalidRecord = errors.New("invalid subscription record")
	// ErrInvalidTarget недопустимая комбинация целевого статуса и даты истечения.
	ErrInvalidTarget = errors.New("invalid target status")
	// ErrNotFound у пользователя нет записи подписки.
	ErrNotFound = errors.New("subscription record not found")
	// ErrStorage ошибка хранилища.
	ErrStorage = errors.New("storage error")
	// ErrTimeout запись в хранилище не уложилась в отведённое время.
	ErrTimeout = errors.New("storage timeout")
	// ErrCancelled операция остановлена по запросу вызывающей стороны.
	ErrCancelled = errors.New("operation cancelled")
)

// KindOf определяет категорию ошибки. Неизвестные ошибки считаются ошибками хранилища.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTarget):
		return KindInvalidTarget
	case errors.Is(err, ErrInvalidRecord):
		return KindInvalidRecord
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindStorage
	}
}
