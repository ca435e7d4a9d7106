// Package reconcileall реализует ручной запуск сверки всех истёкших подписок.
package reconcileall

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/entitlement-service/internal/http/response"
	"github.com/magabrotheeeer/entitlement-service/internal/lib/sl"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// Handler запускает одну пачку сверки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает пакетную сверку.
type Service interface {
	ReconcileExpired(ctx context.Context) (models.BulkResult, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Сверить все истёкшие подписки
// @Description Понижает до expired одну пачку активных записей с прошедшей датой истечения.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.BulkResult}
// @Failure 403 {object} response.ErrorResponse "Нужна роль admin"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища"
// @Router /admin/subscriptions/reconcile-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.reconcileall"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.ReconcileExpired(r.Context())
	if err != nil {
		log.Error("failed to reconcile expired subscriptions", sl.Err(err))
		code, body := response.ServiceError(err)
		render.Status(r, code)
		render.JSON(w, r, body)
		return
	}

	log.Info("expired subscriptions reconciled",
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failures)),
	)
	render.JSON(w, r, response.StatusOKWithData(res))
}
