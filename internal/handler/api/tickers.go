package api

import (
	"MarketAnalyst/internal/domain/models"
	xhttp "MarketAnalyst/pkg/http"
	xlogger "MarketAnalyst/pkg/logger"

	"github.com/labstack/echo/v4"
)

type TickerHandler struct {
	logger   *xlogger.Logger
	tickers  TickerService
	analysis AnalysisService
}

func NewTickerHandler(logger *xlogger.Logger, tickers TickerService, analysis AnalysisService) *TickerHandler {
	return &TickerHandler{logger: logger, tickers: tickers, analysis: analysis}
}

func (h *TickerHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/tickers")
	g.GET("", h.List)
	g.POST("/sync", h.Sync)
	g.GET("/:code/report", h.Report)
}

type tickerListResponse struct {
	Rows    []models.Ticker `json:"rows"`
	Sectors []string        `json:"sectors"`
}

func (h *TickerHandler) List(c echo.Context) error {
	req := &models.TickerListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, sectors, err := h.tickers.List(c.Request().Context(), req.Filter())
	if err != nil {
		h.logger.Error("list tickers", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, tickerListResponse{Rows: rows, Sectors: sectors})
}

func (h *TickerHandler) Sync(c echo.Context) error {
	report, err := h.tickers.SyncWatchlist(c.Request().Context())
	if err != nil {
		h.logger.Error("watchlist sync", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *TickerHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	report, err := h.analysis.Report(c.Request().Context(), req.Code, req.Range, req.Interval)
	if err != nil {
		h.logger.Warn("ticker report", xlogger.String("ticker", req.Code), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, report)
}
