package simulation

import (
	"sort"

	"github.com/yourusername/keiba-engine/internal/models"
)

// PlaceRangePolicy maps field size to the number of paid places
type PlaceRangePolicy func(fieldSize int) int

// DefaultPlaceRange follows JRA payout rules: three paid places at eight
// or more starters, two at five to seven, win-only below five.
func DefaultPlaceRange(fieldSize int) int {
	switch {
	case fieldSize >= 8:
		return 3
	case fieldSize >= 5:
		return 2
	default:
		return 1
	}
}

// Aggregator converts raw order samples into per-bet-type probability
// tables by counting occurrences across the K draws.
type Aggregator struct {
	PlaceRange PlaceRangePolicy
}

// NewAggregator creates an aggregator with the given place-range policy.
// A nil policy falls back to DefaultPlaceRange.
func NewAggregator(policy PlaceRangePolicy) *Aggregator {
	if policy == nil {
		policy = DefaultPlaceRange
	}
	return &Aggregator{PlaceRange: policy}
}

// Aggregate builds probability tables for the enabled bet types. A legal
// combination that never occurred in the K draws simply has probability
// zero and is omitted; raising K is the caller's remedy for thin tails,
// not an error here.
func (a *Aggregator) Aggregate(samples *OrderSamples, enabled map[models.BetType]bool) ([]models.ProbabilityTable, error) {
	if samples == nil || samples.FieldSize() == 0 {
		return nil, &models.InvalidParameterError{Param: "samples", Value: 0, Reason: "order samples required"}
	}

	// Walkover: the lone starter wins and places with certainty,
	// with no draws behind the numbers.
	if samples.FieldSize() == 1 {
		return a.uncontestedTables(samples, enabled), nil
	}

	var tables []models.ProbabilityTable
	if enabled[models.BetTypeWin] {
		tables = append(tables, a.winTables(samples)...)
	}
	if enabled[models.BetTypePlace] {
		tables = append(tables, a.placeTables(samples)...)
	}
	if enabled[models.BetTypeQuinella] {
		tables = append(tables, a.pairTables(samples, models.BetTypeQuinella)...)
	}
	if enabled[models.BetTypeExacta] {
		tables = append(tables, a.pairTables(samples, models.BetTypeExacta)...)
	}
	if enabled[models.BetTypeTrifecta] && samples.FieldSize() >= 3 {
		tables = append(tables, a.trifectaTables(samples)...)
	}
	return tables, nil
}

func (a *Aggregator) uncontestedTables(samples *OrderSamples, enabled map[models.BetType]bool) []models.ProbabilityTable {
	var tables []models.ProbabilityTable
	combo := models.NewCombination(samples.HorseNumbers[0])
	if enabled[models.BetTypeWin] {
		tables = append(tables, models.ProbabilityTable{
			RaceID: samples.RaceID, BetType: models.BetTypeWin, Combination: combo, Probability: 1.0,
		})
	}
	if enabled[models.BetTypePlace] {
		tables = append(tables, models.ProbabilityTable{
			RaceID: samples.RaceID, BetType: models.BetTypePlace, Combination: combo, Probability: 1.0,
		})
	}
	return tables
}

func (a *Aggregator) winTables(samples *OrderSamples) []models.ProbabilityTable {
	counts := make([]int, samples.FieldSize())
	for _, row := range samples.Rankings {
		counts[row[0]]++
	}
	return a.singleHorseTables(samples, models.BetTypeWin, counts)
}

func (a *Aggregator) placeTables(samples *OrderSamples) []models.ProbabilityTable {
	paid := a.PlaceRange(samples.FieldSize())
	if paid > maxRecordedPlaces {
		paid = maxRecordedPlaces
	}
	counts := make([]int, samples.FieldSize())
	for _, row := range samples.Rankings {
		limit := paid
		if len(row) < limit {
			limit = len(row)
		}
		for pos := 0; pos < limit; pos++ {
			counts[row[pos]]++
		}
	}
	return a.singleHorseTables(samples, models.BetTypePlace, counts)
}

func (a *Aggregator) singleHorseTables(samples *OrderSamples, betType models.BetType, counts []int) []models.ProbabilityTable {
	tables := make([]models.ProbabilityTable, 0, len(counts))
	for i, count := range counts {
		tables = append(tables, models.ProbabilityTable{
			RaceID:      samples.RaceID,
			BetType:     betType,
			Combination: models.NewCombination(samples.HorseNumbers[i]),
			Probability: float64(count) / float64(samples.K),
		})
	}
	return tables
}

func (a *Aggregator) pairTables(samples *OrderSamples, betType models.BetType) []models.ProbabilityTable {
	counts := make(map[models.Combination]int)
	for _, row := range samples.Rankings {
		first := samples.HorseNumbers[row[0]]
		second := samples.HorseNumbers[row[1]]
		combo := models.NewCombination(first, second)
		if !betType.Ordered() {
			combo = combo.Sorted()
		}
		counts[combo]++
	}
	return a.comboTables(samples, betType, counts)
}

func (a *Aggregator) trifectaTables(samples *OrderSamples) []models.ProbabilityTable {
	counts := make(map[models.Combination]int)
	for _, row := range samples.Rankings {
		combo := models.NewCombination(
			samples.HorseNumbers[row[0]],
			samples.HorseNumbers[row[1]],
			samples.HorseNumbers[row[2]],
		)
		counts[combo]++
	}
	return a.comboTables(samples, models.BetTypeTrifecta, counts)
}

func (a *Aggregator) comboTables(samples *OrderSamples, betType models.BetType, counts map[models.Combination]int) []models.ProbabilityTable {
	tables := make([]models.ProbabilityTable, 0, len(counts))
	for combo, count := range counts {
		tables = append(tables, models.ProbabilityTable{
			RaceID:      samples.RaceID,
			BetType:     betType,
			Combination: combo,
			Probability: float64(count) / float64(samples.K),
		})
	}
	// Map iteration order is random; sort for reproducible output.
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Combination.String() < tables[j].Combination.String()
	})
	return tables
}
