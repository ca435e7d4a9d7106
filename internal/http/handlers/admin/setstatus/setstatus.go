// Package setstatus реализует административную установку статуса подписки одного пользователя.
package setstatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler перезаписывает статус и дату истечения записи.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает административное изменение одной записи.
type Service interface {
	AdminSetStatus(ctx context.Context, userID string, target models.Target) (*models.SubscriptionRecord, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Установить статус подписки
// @Description Перезаписывает статус и дату истечения. Для active дата должна быть в будущем
// @Description или отсутствовать (бессрочно), для inactive и expired дата не передаётся.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "UUID пользователя"
// @Param request body models.DummyStatusUpdate true "Целевой статус"
// @Success 200 {object} response.Response{data=models.SubscriptionRecord}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 403 {object} response.ErrorResponse "Нужна роль admin"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 422 {object} response.ErrorResponse "Недопустимый целевой статус"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /admin/subscriptions/{userID} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.setstatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := chi.URLParam(r, "userID")
	if err := h.validate.Var(userID, "required,uuid"); err != nil {
		log.Error("invalid user id in url", slog.String("user_id", userID), sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user id"))
		return
	}

	var req models.DummyStatusUpdate
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	rec, err := h.service.AdminSetStatus(r.Context(), userID, req.Target())
	if err != nil {
		log.Error("failed to set subscription status", slog.String("user_id", userID), sl.Err(err))
		code, body := response.ServiceError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	log.Info("subscription status set", slog.String("user_id", userID), slog.String("status", string(rec.Status)))
	render.JSON(w, r, response.StatusOKWithData(rec))
}
