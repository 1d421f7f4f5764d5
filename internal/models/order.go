package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is a staked bet emitted by the optimizer. Orders are write-once:
// settlement belongs to the external execution layer and never mutates
// the record here.
type Order struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	RaceID        string      `db:"race_id" json:"race_id"`
	BetType       BetType     `db:"bet_type" json:"bet_type"`
	Combination   Combination `db:"combination" json:"combination"`
	Stake         float64     `db:"stake" json:"stake"`
	Odds          float64     `db:"odds" json:"odds"`
	Probability   float64     `db:"probability" json:"probability"`
	ExpectedValue float64     `db:"expected_value" json:"expected_value"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// PotentialPayout returns the gross payout if the combination is realized
func (o *Order) PotentialPayout() float64 {
	return o.Stake * o.Odds
}
