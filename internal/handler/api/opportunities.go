package api

import (
	"MarketAnalyst/internal/domain/models"
	xhttp "MarketAnalyst/pkg/http"
	xlogger "MarketAnalyst/pkg/logger"

	"github.com/labstack/echo/v4"
)

// OpportunityHandler serves stored analyses and triggers new ones.
type OpportunityHandler struct {
	logger     *xlogger.Logger
	analysis   AnalysisService
	dispatcher BatchDispatcher
}

func NewOpportunityHandler(logger *xlogger.Logger, analysis AnalysisService, dispatcher BatchDispatcher) *OpportunityHandler {
	return &OpportunityHandler{logger: logger, analysis: analysis, dispatcher: dispatcher}
}

func (h *OpportunityHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/opportunities", h.List)
	g.GET("/opportunities/:code", h.Get)
	g.POST("/analyses/process", h.ProcessAll)
	g.POST("/analyses/:code", h.Process)
}

func (h *OpportunityHandler) List(c echo.Context) error {
	rows, err := h.analysis.Opportunities(c.Request().Context())
	if err != nil {
		h.logger.Error("list opportunities", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *OpportunityHandler) Get(c echo.Context) error {
	req := &models.TickerCodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.analysis.Opportunity(c.Request().Context(), req.Code)
	if err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, a)
}

type jobAccepted struct {
	JobID string `json:"job_id"`
}

func (h *OpportunityHandler) ProcessAll(c echo.Context) error {
	id, err := h.dispatcher.DispatchBatch(c.Request().Context())
	if err != nil {
		h.logger.Error("dispatch batch", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.AcceptedResponse(c, jobAccepted{JobID: id})
}

func (h *OpportunityHandler) Process(c echo.Context) error {
	req := &models.TickerCodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	score, err := h.analysis.ProcessTicker(c.Request().Context(), req.Code)
	if err != nil {
		h.logger.Warn("process ticker", xlogger.String("ticker", req.Code), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, score)
}
