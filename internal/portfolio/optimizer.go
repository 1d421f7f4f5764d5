package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
)

// Optimizer sizes stakes across a race's positive-EV combinations.
// Surviving combinations are treated as independent binary bets: the
// simplex closed form for mutually exclusive outcomes only applies when
// the candidate set exhausts the outcome space, which the EV filter
// almost always breaks.
type Optimizer struct {
	config Config
	logger *logrus.Logger
}

// NewOptimizer creates an optimizer after validating its configuration
func NewOptimizer(cfg Config, logger *logrus.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{config: cfg, logger: logger}, nil
}

// Config returns the optimizer configuration
func (o *Optimizer) Config() Config {
	return o.config
}

type candidate struct {
	table models.ProbabilityTable
	odds  float64
	ev    float64
	frac  float64
}

// Optimize joins probability tables with market quotes, filters by
// expected value, and stakes the survivors with capped fractional Kelly.
// An empty order list means "no bet today" and is a normal outcome.
func (o *Optimizer) Optimize(tables []models.ProbabilityTable, quotes []models.MarketQuote, capital float64) ([]models.Order, error) {
	if capital <= 0 {
		return nil, &models.InvalidParameterError{Param: "capital", Value: capital, Reason: "capital must be positive"}
	}

	quoteIndex := indexQuotes(quotes)
	candidates := o.selectCandidates(tables, quoteIndex)
	if len(candidates) == 0 {
		return nil, nil
	}

	o.sizeStakes(candidates)
	return o.buildOrders(candidates, capital), nil
}

type quoteKey struct {
	raceID      string
	betType     models.BetType
	combination models.Combination
}

func indexQuotes(quotes []models.MarketQuote) map[quoteKey]float64 {
	index := make(map[quoteKey]float64, len(quotes))
	for _, q := range quotes {
		index[quoteKey{q.RaceID, q.BetType, q.Combination}] = q.Odds
	}
	return index
}

// selectCandidates drops disabled bet types, zero-probability rows,
// unquoted combinations (logged, never fatal) and entries at or below
// the EV threshold.
func (o *Optimizer) selectCandidates(tables []models.ProbabilityTable, quoteIndex map[quoteKey]float64) []*candidate {
	var candidates []*candidate
	for _, table := range tables {
		if !o.config.EnabledBetTypes[table.BetType] || table.Probability <= 0 {
			continue
		}

		odds, ok := quoteIndex[quoteKey{table.RaceID, table.BetType, table.Combination}]
		if !ok {
			metrics.RecordQuoteSkipped()
			o.logger.WithFields(logrus.Fields{
				"race_id":     table.RaceID,
				"bet_type":    table.BetType,
				"combination": table.Combination.String(),
			}).WithError(models.ErrOddsUnavailable).Warn("Skipping combination without market quote")
			continue
		}
		if odds < 1 {
			continue
		}

		ev := table.Probability*odds - 1
		if ev <= o.config.EVThreshold {
			continue
		}

		candidates = append(candidates, &candidate{table: table, odds: odds, ev: ev})
	}
	return candidates
}

// sizeStakes computes each candidate's binary Kelly fraction
// f* = (p*b - (1-p)) / b with b = odds-1, scales it by the Kelly
// fraction, caps it per bet, and renormalizes if the capped fractions
// would stake more than the whole budget.
func (o *Optimizer) sizeStakes(candidates []*candidate) {
	total := 0.0
	for _, c := range candidates {
		b := c.odds - 1
		p := c.table.Probability
		raw := (p*b - (1 - p)) / b
		if raw < 0 {
			raw = 0
		}
		f := raw * o.config.KellyFraction
		if f > o.config.MaxStakeFractionPerBet {
			f = o.config.MaxStakeFractionPerBet
		}
		c.frac = f
		total += f
	}

	// No leverage: total staked fraction never exceeds 1.
	if total > 1 {
		for _, c := range candidates {
			c.frac /= total
		}
	}
}

func (o *Optimizer) buildOrders(candidates []*candidate, capital float64) []models.Order {
	unit := decimal.NewFromInt(o.config.BetUnit)
	now := time.Now().UTC()

	var orders []models.Order
	for _, c := range candidates {
		stake := roundToUnit(decimal.NewFromFloat(c.frac*capital), unit)
		if !stake.IsPositive() {
			continue
		}
		stakeF, _ := stake.Float64()

		orders = append(orders, models.Order{
			ID:            uuid.New(),
			RaceID:        c.table.RaceID,
			BetType:       c.table.BetType,
			Combination:   c.table.Combination,
			Stake:         stakeF,
			Odds:          c.odds,
			Probability:   c.table.Probability,
			ExpectedValue: c.ev,
			CreatedAt:     now,
		})

		o.logger.WithFields(logrus.Fields{
			"race_id":        c.table.RaceID,
			"bet_type":       c.table.BetType,
			"combination":    c.table.Combination.String(),
			"stake":          stakeF,
			"odds":           c.odds,
			"expected_value": c.ev,
		}).Debug("Order staked")
	}
	return orders
}

// roundToUnit floors a stake to the minimum bet unit
func roundToUnit(stake, unit decimal.Decimal) decimal.Decimal {
	return stake.Div(unit).Floor().Mul(unit)
}
