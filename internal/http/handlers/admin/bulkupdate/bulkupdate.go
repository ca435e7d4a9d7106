// Package bulkupdate реализует массовую установку статуса подписки.
//
// Ошибка одной записи не прерывает обработку остальных: в ответе перечислены
// успешно обновлённые ID и категория ошибки для каждого неуспешного.
package bulkupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler применяет один целевой статус к списку пользователей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	maxIDs   int
}

// Service описывает массовое изменение записей.
type Service interface {
	AdminBulkSetStatus(ctx context.Context, userIDs []string, target models.Target) (models.BulkResult, error)
}

// Result тело успешного ответа.
type Result struct {
	models.BulkResult
	Attempted int `json:"attempted"`
}

// New создает новый Handler. maxIDs ограничивает размер одного запроса.
func New(log *slog.Logger, service Service, maxIDs int) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		maxIDs:   maxIDs,
	}
}

// ServeHTTP godoc
// @Summary Массово установить статус подписки
// @Description Применяет целевой статус к каждому ID независимо. Повторяющиеся ID обрабатываются один раз.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DummyBulkUpdate true "Список пользователей и целевой статус"
// @Success 200 {object} response.Response{data=Result}
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нужна роль admin"
// @Failure 422 {object} response.ErrorResponse "Недопустимый целевой статус или список ID"
// @Router /admin/subscriptions/bulk [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.bulkupdate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyBulkUpdate
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
	if h.maxIDs > 0 && len(req.UserIDs) > h.maxIDs {
		log.Error("too many user ids", slog.Int("count", len(req.UserIDs)), slog.Int("max", h.maxIDs))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.KindError(models.KindInvalidTarget,
			fmt.Sprintf("at most %d user ids per request", h.maxIDs)))
		return
	}

	res, err := h.service.AdminBulkSetStatus(r.Context(), req.UserIDs, req.Target())
	if err != nil {
		log.Error("bulk update rejected", sl.Err(err))
		code, body := response.ServiceError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	log.Info("bulk update finished",
		slog.Int("attempted", res.Attempted()),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failures)),
		slog.Bool("cancelled", res.Cancelled),
	)
	render.JSON(w, r, response.StatusOKWithData(Result{BulkResult: res, Attempted: res.Attempted()}))
}
