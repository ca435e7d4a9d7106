// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
	Kind   string `json:"kind,omitempty" example:"not_found"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// KindError возвращает ответ с ошибкой и её категорией.
func KindError(kind models.ErrorKind, msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
		Kind:   string(kind),
	}
}

// HTTPStatus сопоставляет категорию ошибки с HTTP-кодом.
func HTTPStatus(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidTarget:
		return http.StatusUnprocessableEntity
	case models.KindInvalidRecord:
		return http.StatusConflict
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	case models.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError возвращает HTTP-код и тело ответа для ошибки сервиса.
// Текст внутренних ошибок наружу не отдаётся.
func ServiceError(err error) (int, ErrorResponse) {
	kind := models.KindOf(err)
	msg := map[models.ErrorKind]string{
		models.KindNotFound:      "subscription record not found",
		models.KindInvalidTarget: "invalid target state",
		models.KindInvalidRecord: "stored subscription record is invalid",
		models.KindTimeout:       "storage timeout",
		models.KindCancelled:     "request cancelled",
	}[kind]
	if msg == "" {
		msg = "internal storage error"
	}
	return HTTPStatus(kind), KindError(kind, msg)
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение описывается отдельно, описания объединяются через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must contain at least %s item(s)", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
		Kind:   string(models.KindInvalidTarget),
	}
}
