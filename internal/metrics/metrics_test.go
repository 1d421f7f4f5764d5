package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordSimulation(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordSimulation(0.5)
	})
}

func TestRecordSimulationFailure(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordSimulationFailure()
	})
}

func TestRecordOrdersEmitted(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name  string
		count int
	}{
		{name: "several orders", count: 3},
		{name: "single order", count: 1},
		{name: "no orders", count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordOrdersEmitted(tt.count)
			})
		})
	}
}

func TestUpdateExposure(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name     string
		exposure float64
	}{
		{name: "normal exposure", exposure: 5000},
		{name: "high exposure", exposure: 50000},
		{name: "zero exposure", exposure: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateExposure(tt.exposure)
			})
		})
	}
}

func TestRecordPredictionRequest(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordPredictionRequest("success", 0.05)
	})
	assert.NotPanics(t, func() {
		RecordPredictionRequest("error", 1.2)
	})
}

func TestRecordOddsFetch(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordOddsFetch("success", 0.1)
	})
	assert.NotPanics(t, func() {
		RecordStreamReconnect()
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()

	handler := Handler()
	assert.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)
}

func TestGauges(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		UpdateDailyBudgetRemaining(25000)
	})
	assert.NotPanics(t, func() {
		UpdateRacesScheduled(12)
	})
}

func BenchmarkRecordSimulation(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordSimulation(0.5)
	}
}

func BenchmarkUpdateExposure(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		UpdateExposure(10000.0)
	}
}
