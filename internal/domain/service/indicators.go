package service

import "MarketAnalyst/internal/domain/models"

// IndicatorProvider computes indicator series aligned with the input bars.
// Every returned series has len(bars) entries; warm-up positions are
// unavailable (NaN) and a value at i depends only on bars[0..i].
type IndicatorProvider interface {
	EMA(bars []models.Bar, period int) models.Series
	RSI(bars []models.Bar, period int) models.Series
	StochRSI(bars []models.Bar, p models.StochRSIParams) (k, d models.Series)
	MACD(bars []models.Bar, p models.MACDParams) (line, signal, hist models.Series)
	ATR(bars []models.Bar, period int) models.Series
}
