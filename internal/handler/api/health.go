package api

import (
	"context"
	"net/http"
	"time"

	xhttp "MarketAnalyst/pkg/http"
	xlogger "MarketAnalyst/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Pinger is anything with a health check, normally the store.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	logger *xlogger.Logger
	store  Pinger
}

func NewHealthHandler(logger *xlogger.Logger, store Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, store: store}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"store": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"store": "ok"})
}
