package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"MarketAnalyst/internal/domain/models"
	pkghttp "MarketAnalyst/pkg/http"
)

// AnalysisRequestHandler consumes {"ticker": "..."} messages and analyses
// the ticker synchronously.
type AnalysisRequestHandler struct {
	topic    string
	analysis *AnalysisUseCase
}

func NewAnalysisRequestHandler(topic string, analysis *AnalysisUseCase) *AnalysisRequestHandler {
	return &AnalysisRequestHandler{topic: topic, analysis: analysis}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.analysis.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode analysis request: %w", err)
	}
	if errs := pkghttp.Validate(req); len(errs) > 0 {
		h.analysis.metrics.RecordError("consumer_validate")
		return fmt.Errorf("invalid analysis request: %s %s", errs[0].Field, errs[0].Code)
	}
	_, err := h.analysis.ProcessTicker(ctx, req.Ticker)
	return err
}
