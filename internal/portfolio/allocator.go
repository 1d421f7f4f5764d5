package portfolio

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/models"
)

// RaceBook pairs a race's win probability table with its win quotes,
// the inputs the allocator scores a race by.
type RaceBook struct {
	RaceID string
	Tables []models.ProbabilityTable
	Quotes []models.MarketQuote
}

// DailyAllocator splits a day's total budget across races in proportion
// to each race's expected log-growth under capped fractional Kelly
// staking of its positive-EV win candidates. Races with nothing worth
// backing get nothing.
type DailyAllocator struct {
	config Config
	logger *logrus.Logger
}

// NewDailyAllocator creates an allocator after validating its configuration
func NewDailyAllocator(cfg Config, logger *logrus.Logger) (*DailyAllocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &DailyAllocator{config: cfg, logger: logger}, nil
}

// AllocateBudget returns the per-race budget, keyed by race ID, floored
// to the bet unit. Only races with a positive score appear in the map.
func (a *DailyAllocator) AllocateBudget(races []RaceBook, totalBudget float64) (map[string]float64, error) {
	if totalBudget <= 0 {
		return nil, &models.InvalidParameterError{Param: "total_budget", Value: totalBudget, Reason: "budget must be positive"}
	}

	scores := make(map[string]float64, len(races))
	totalScore := 0.0
	for _, race := range races {
		score := a.raceScore(race)
		if score <= 0 {
			continue
		}
		scores[race.RaceID] = score
		totalScore += score
	}

	if totalScore == 0 {
		a.logger.Debug("No race scored positive expected log-growth, allocating nothing")
		return map[string]float64{}, nil
	}

	unit := decimal.NewFromInt(a.config.BetUnit)
	budgets := make(map[string]float64, len(scores))
	for raceID, score := range scores {
		share := decimal.NewFromFloat(totalBudget * score / totalScore)
		floored := roundToUnit(share, unit)
		if !floored.IsPositive() {
			continue
		}
		budget, _ := floored.Float64()
		budgets[raceID] = budget
	}

	a.logger.WithFields(logrus.Fields{
		"races_scored": len(scores),
		"races_funded": len(budgets),
		"total_budget": totalBudget,
	}).Info("Daily budget allocated")

	return budgets, nil
}

// raceScore sums p*log(1+f*b) + (1-p)*log(1-f) over the race's
// positive-EV win candidates at their capped fractional Kelly stakes.
// The sum is the race's expected log-growth if each candidate were
// staked in isolation.
func (a *DailyAllocator) raceScore(race RaceBook) float64 {
	quoteIndex := indexQuotes(race.Quotes)

	score := 0.0
	for _, table := range race.Tables {
		if table.BetType != models.BetTypeWin || table.Probability <= 0 {
			continue
		}
		odds, ok := quoteIndex[quoteKey{table.RaceID, table.BetType, table.Combination}]
		if !ok || odds <= 1 {
			continue
		}

		p := table.Probability
		if p*odds-1 <= a.config.EVThreshold {
			continue
		}

		b := odds - 1
		f := (p*b - (1 - p)) / b * a.config.KellyFraction
		if f > a.config.MaxStakeFractionPerBet {
			f = a.config.MaxStakeFractionPerBet
		}
		if f <= 0 || f >= 1 {
			continue
		}

		score += p*math.Log(1+f*b) + (1-p)*math.Log(1-f)
	}
	return score
}
