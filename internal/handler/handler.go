// Package handler содержит HTTP-обработчики бота Dolezza: вебхук, состояние и метрики.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/dolezza-bot/internal/metrics"
	"github.com/mmeshcher/dolezza-bot/internal/middleware"
	"github.com/mmeshcher/dolezza-bot/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Catalog(ctx context.Context) []model.Product
	PendingAndAcceptedOrders(ctx context.Context) []model.Order
}

// Handler реализует HTTP-обработчики бота.
type Handler struct {
	service     Service
	logger      *zap.Logger
	metrics     *metrics.Metrics
	webhook     http.Handler
	webhookAuth *middleware.WebhookAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// webhook может быть nil, если обновления получаются через long polling.
func NewHandler(s Service, logger *zap.Logger, m *metrics.Metrics, webhook http.Handler, auth *middleware.WebhookAuth) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:     s,
		logger:      logger,
		metrics:     m,
		webhook:     webhook,
		webhookAuth: auth,
	}
}

type healthResponse struct {
	Status     string `json:"status"`
	Products   int    `json:"products"`
	OpenOrders int    `json:"open_orders"`
}

// Health сообщает, что процесс жив, и показывает размер каталога и очереди заказов.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Products:   len(h.service.Catalog(r.Context())),
		OpenOrders: len(h.service.PendingAndAcceptedOrders(r.Context())),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode health response error", zap.Error(err))
	}
}
