// Package status реализует HTTP-обработчик проверки доступа текущего пользователя.
//
// Обработчик только читает запись: устаревший статус отмечается в ответе
// флагом stale, но не исправляется.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler обрабатывает запрос статуса подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает чтение вычисленного доступа.
type Service interface {
	CheckStatus(ctx context.Context, userID string) (*models.Entitlement, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Статус подписки
// @Description Возвращает вычисленный статус подписки текущего пользователя без изменения записи.
// @Tags Subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Entitlement}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Запись повреждена"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /subscription/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user_uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	ent, err := h.service.CheckStatus(r.Context(), userUID)
	if err != nil {
		log.Error("failed to check subscription status", slog.String("user_uid", userUID), sl.Err(err))
		code, body := response.ServiceError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	log.Debug("subscription status checked", slog.String("user_uid", userUID), slog.Bool("stale", ent.Stale))
	render.JSON(w, r, response.StatusOKWithData(ent))
}
