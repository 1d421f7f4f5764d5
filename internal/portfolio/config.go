// Package portfolio allocates a wagering budget across bet combinations
// using fractional Kelly sizing under an expected-value filter.
package portfolio

import (
	"fmt"

	"github.com/yourusername/keiba-engine/internal/models"
)

// Config holds the optimizer's named options. It is validated once at
// construction so a misconfigured bet type or fraction fails at load
// time, not on the first race.
type Config struct {
	KellyFraction          float64
	EVThreshold            float64
	MaxStakeFractionPerBet float64
	EnabledBetTypes        map[models.BetType]bool
	BetUnit                int64
}

// DefaultConfig returns the production defaults: half Kelly, positive
// edge required, 5% of capital per bet at most, win and place enabled,
// stakes floored to 100-yen units.
func DefaultConfig() Config {
	return Config{
		KellyFraction:          0.5,
		EVThreshold:            0.0,
		MaxStakeFractionPerBet: 0.05,
		EnabledBetTypes: map[models.BetType]bool{
			models.BetTypeWin:   true,
			models.BetTypePlace: true,
		},
		BetUnit: 100,
	}
}

// Validate checks every option against its allowed range
func (c Config) Validate() error {
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return fmt.Errorf("kelly_fraction must be in (0, 1], got %v", c.KellyFraction)
	}
	if c.MaxStakeFractionPerBet <= 0 || c.MaxStakeFractionPerBet > 1 {
		return fmt.Errorf("max_stake_fraction_per_bet must be in (0, 1], got %v", c.MaxStakeFractionPerBet)
	}
	if len(c.EnabledBetTypes) == 0 {
		return fmt.Errorf("at least one bet type must be enabled")
	}
	for bt := range c.EnabledBetTypes {
		if !bt.IsValid() {
			return fmt.Errorf("unknown bet type %q", bt)
		}
	}
	if c.BetUnit < 1 {
		return fmt.Errorf("bet_unit must be at least 1, got %d", c.BetUnit)
	}
	return nil
}

// EnabledBetTypeSet converts a list of bet-type strings into the set
// form used by Config, rejecting unknown names.
func EnabledBetTypeSet(names []string) (map[models.BetType]bool, error) {
	set := make(map[models.BetType]bool, len(names))
	for _, name := range names {
		bt, err := models.ParseBetType(name)
		if err != nil {
			return nil, err
		}
		set[bt] = true
	}
	return set, nil
}
