package metrics

import (
	"testing"

	"MarketAnalyst/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordAnalysis("Daily", models.DirectionCall)
	r.RecordAnalysis("Daily", models.DirectionCall)
	r.RecordSignals("history", 3)
	r.RecordSignals("history", 0)
	r.RecordScore("PETR4", 90)
	r.RecordError("source")
	r.RecordLatency("batch", 1.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("Daily", "Call")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.signals.WithLabelValues("history")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.score.WithLabelValues("PETR4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("source")))
	assert.Greater(t, testutil.ToFloat64(r.lastBatch), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
