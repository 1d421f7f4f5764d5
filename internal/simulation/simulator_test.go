package simulation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/models"
)

func testPredictions(raceID string, mus []float64, sigma float64) []models.HorsePrediction {
	preds := make([]models.HorsePrediction, len(mus))
	for i, mu := range mus {
		preds[i] = models.HorsePrediction{
			RaceID:      raceID,
			HorseID:     fmt.Sprintf("horse-%d", i+1),
			HorseNumber: i + 1,
			Mu:          mu,
			Sigma:       sigma,
		}
	}
	return preds
}

func TestSimulateDeterministic(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10.0, 10.5, 11.0}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	first, err := sim.Simulate(preds, chaos, 500, 42)
	require.NoError(t, err)
	second, err := sim.Simulate(preds, chaos, 500, 42)
	require.NoError(t, err)

	assert.Equal(t, first.Rankings, second.Rankings)
	assert.Equal(t, first.HorseNumbers, second.HorseNumbers)
}

func TestSimulateSeedChangesSamples(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10.0, 10.5, 11.0}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	first, err := sim.Simulate(preds, chaos, 500, 42)
	require.NoError(t, err)
	second, err := sim.Simulate(preds, chaos, 500, 43)
	require.NoError(t, err)

	assert.NotEqual(t, first.Rankings, second.Rankings)
}

func TestSimulateWalkover(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10.0}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	samples, err := sim.Simulate(preds, chaos, 1000, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, samples.FieldSize())
	assert.Nil(t, samples.Rankings)
	assert.Equal(t, 1000, samples.K)
}

func TestSimulateRecordsTopThree(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10, 10.2, 10.4, 10.6, 10.8, 11}, 0.5)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 4}

	samples, err := sim.Simulate(preds, chaos, 200, 99)
	require.NoError(t, err)
	require.Len(t, samples.Rankings, 200)

	for _, row := range samples.Rankings {
		require.Len(t, row, 3)
		assert.NotEqual(t, row[0], row[1])
		assert.NotEqual(t, row[1], row[2])
		assert.NotEqual(t, row[0], row[2])
		for _, idx := range row {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, 6)
		}
	}
}

func TestSimulateTwoHorseFieldRecordsBoth(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10.0, 10.5}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	samples, err := sim.Simulate(preds, chaos, 100, 1)
	require.NoError(t, err)

	for _, row := range samples.Rankings {
		require.Len(t, row, 2)
	}
}

func TestSimulateInvalidInputs(t *testing.T) {
	sim := NewSimulator()
	valid := testPredictions("R1", []float64{10.0, 10.5}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	tests := []struct {
		name  string
		preds []models.HorsePrediction
		chaos models.RaceChaos
		k     int
	}{
		{"empty field", nil, chaos, 100},
		{"zero draws", valid, chaos, 0},
		{"negative draws", valid, chaos, -5},
		{"zero nu", valid, models.RaceChaos{RaceID: "R1", Nu: 0}, 100},
		{"negative nu", valid, models.RaceChaos{RaceID: "R1", Nu: -2}, 100},
		{"zero sigma", testPredictions("R1", []float64{10, 11}, 0), chaos, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Simulate(tt.preds, tt.chaos, tt.k, 42)
			require.Error(t, err)
			assert.True(t, models.IsInvalidParameter(err))
		})
	}
}

func TestSimulateHeavyTailsDoNotPanic(t *testing.T) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10.0, 10.5, 11.0}, 0.3)

	// Sub-1 degrees of freedom gives an undefined mean; sampling must
	// still produce complete, finite-ordered rankings.
	chaos := models.RaceChaos{RaceID: "R1", Nu: 0.5}

	samples, err := sim.Simulate(preds, chaos, 2000, 42)
	require.NoError(t, err)
	require.Len(t, samples.Rankings, 2000)
	for _, row := range samples.Rankings {
		require.Len(t, row, 3)
	}
}

func TestStudentTSampleMoments(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	const n = 200000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += studentT(rng, 30)
	}
	mean := sum / n

	// High nu is close to a standard normal; the sample mean of 200k
	// draws should sit near zero.
	assert.InDelta(t, 0.0, mean, 0.02)
}

func BenchmarkSimulate(b *testing.B) {
	sim := NewSimulator()
	preds := testPredictions("R1", []float64{10, 10.1, 10.2, 10.3, 10.4, 10.5, 10.6, 10.7, 10.8, 10.9, 11, 11.1, 11.2, 11.3, 11.4, 11.5, 11.6, 11.7}, 0.3)
	chaos := models.RaceChaos{RaceID: "R1", Nu: 5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sim.Simulate(preds, chaos, 1000, int64(i))
	}
}
