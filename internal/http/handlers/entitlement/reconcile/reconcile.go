// Package reconcile реализует HTTP-обработчик самостоятельной сверки подписки.
package reconcile

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

// Handler понижает истёкшую активную подписку текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает самостоятельную сверку.
type Service interface {
	SelfReconcile(ctx context.Context, userID string) (*models.Entitlement, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сверка подписки
// @Description Вычисляет статус подписки и, если сохранённый статус устарел, понижает его до expired.
// @Description Повторный вызов ничего не меняет.
// @Tags Subscription
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Entitlement}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Запись повреждена"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Failure 504 {object} response.ErrorResponse "Таймаут хранилища"
// @Router /subscription/reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.reconcile"

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

	ent, err := h.service.SelfReconcile(r.Context(), userUID)
	if err != nil {
		log.Error("failed to reconcile subscription", slog.String("user_uid", userUID), sl.Err(err))
		code, body := response.ServiceError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	if ent.Reconciled {
		log.Info("stale subscription downgraded", slog.String("user_uid", userUID))
	}
	render.JSON(w, r, response.StatusOKWithData(ent))
}
