package models

// ProbabilityTable is one row of a race's probability estimates: the
// Monte Carlo probability of a single combination under a single bet
// type. Tables are recomputed from scratch on every simulation pass and
// never cached across passes.
type ProbabilityTable struct {
	RaceID      string      `db:"race_id" json:"race_id"`
	BetType     BetType     `db:"bet_type" json:"bet_type"`
	Combination Combination `db:"combination" json:"combination"`
	Probability float64     `db:"probability" json:"probability"`
}

// MarketQuote is the market's decimal odds for one combination, refreshed
// near post time by the odds feed. Odds are gross payout multiples, so a
// valid quote is always >= 1.
type MarketQuote struct {
	RaceID      string      `db:"race_id" json:"race_id"`
	BetType     BetType     `db:"bet_type" json:"bet_type"`
	Combination Combination `db:"combination" json:"combination"`
	Odds        float64     `db:"odds" json:"odds" validate:"gte=1"`
}
