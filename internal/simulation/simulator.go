// Package simulation implements the Monte Carlo race simulator and the
// probability aggregation over its order samples.
package simulation

import (
	"math/rand"
	"sort"

	"github.com/yourusername/keiba-engine/internal/models"
)

// maxRecordedPlaces is the deepest finishing position any supported bet
// type needs (trifecta and the widest place range both stop at 3).
const maxRecordedPlaces = 3

// OrderSamples holds the finishing-order draws of one race simulation.
// Rankings has K rows; each row lists the horse indexes (into
// HorseNumbers) of the first min(3, field size) finishers of that draw.
// The matrix is ephemeral: it lives for one simulate/aggregate pass.
type OrderSamples struct {
	RaceID       string
	HorseNumbers []int
	Rankings     [][]int
	K            int
}

// FieldSize returns the number of starters sampled
func (s *OrderSamples) FieldSize() int {
	return len(s.HorseNumbers)
}

// Simulator draws finishing orders from per-horse Student-t finishing
// times. It is stateless; every call owns its RNG, seeded explicitly by
// the caller, so identical inputs reproduce identical samples.
type Simulator struct{}

// NewSimulator creates a race simulator
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Simulate draws k independent finishing-order samples for one race.
// Each horse's time in a draw is mu_i + sigma_i * T where T is standard
// Student-t with the race's shared nu. Horses are independent within a
// draw; nu shapes tail heaviness, not cross-horse correlation.
//
// Scratched horses must already be excluded by the caller.
func (s *Simulator) Simulate(predictions []models.HorsePrediction, chaos models.RaceChaos, k int, seed int64) (*OrderSamples, error) {
	if err := validateInputs(predictions, chaos, k); err != nil {
		return nil, err
	}

	n := len(predictions)
	horseNumbers := make([]int, n)
	for i, p := range predictions {
		horseNumbers[i] = p.HorseNumber
	}

	samples := &OrderSamples{
		RaceID:       chaos.RaceID,
		HorseNumbers: horseNumbers,
		K:            k,
	}

	// A walkover needs no sampling: the lone starter wins every draw.
	if n == 1 {
		return samples, nil
	}

	rng := rand.New(rand.NewSource(seed))

	// One flat K*N batch of times, filled in a single pass.
	times := make([]float64, k*n)
	for row := 0; row < k; row++ {
		base := row * n
		for i := 0; i < n; i++ {
			times[base+i] = predictions[i].Mu + predictions[i].Sigma*studentT(rng, chaos.Nu)
		}
	}

	top := maxRecordedPlaces
	if n < top {
		top = n
	}

	samples.Rankings = make([][]int, k)
	order := make([]int, n)
	for row := 0; row < k; row++ {
		base := row * n
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			ta, tb := times[base+order[a]], times[base+order[b]]
			if ta != tb {
				return ta < tb
			}
			// Numeric ties have measure zero but must break
			// deterministically so counts stay exact.
			return horseNumbers[order[a]] < horseNumbers[order[b]]
		})
		ranked := make([]int, top)
		copy(ranked, order[:top])
		samples.Rankings[row] = ranked
	}

	return samples, nil
}

func validateInputs(predictions []models.HorsePrediction, chaos models.RaceChaos, k int) error {
	if len(predictions) == 0 {
		return &models.InvalidParameterError{Param: "predictions", Value: 0, Reason: "at least one starter required"}
	}
	if k < 1 {
		return &models.InvalidParameterError{Param: "k", Value: float64(k), Reason: "draw count must be positive"}
	}
	if chaos.Nu <= 0 {
		return &models.InvalidParameterError{Param: "nu", Value: chaos.Nu, Reason: "degrees of freedom must be positive"}
	}
	for _, p := range predictions {
		if p.Sigma <= 0 {
			return &models.InvalidParameterError{Param: "sigma", Value: p.Sigma, Reason: "scale must be positive for horse " + p.HorseID}
		}
	}
	return nil
}
