package models

import "time"

// HorsePrediction carries the regression outputs for one starter:
// mu is the expected finishing-time offset, sigma the scale of the
// residual uncertainty around it. Produced by the external model layer
// and consumed read-only by the simulator.
type HorsePrediction struct {
	RaceID      string  `db:"race_id" json:"race_id" validate:"required"`
	HorseID     string  `db:"horse_id" json:"horse_id" validate:"required"`
	HorseNumber int     `db:"horse_number" json:"horse_number" validate:"required,gt=0"`
	Mu          float64 `db:"mu" json:"mu"`
	Sigma       float64 `db:"sigma" json:"sigma" validate:"required,gt=0"`
}

// RaceChaos is the race-level degrees-of-freedom of the Student-t
// finishing-time distribution. One value per race, shared by every
// starter; lower nu means heavier tails and more upset-prone racing.
type RaceChaos struct {
	RaceID string  `db:"race_id" json:"race_id" validate:"required"`
	Nu     float64 `db:"nu" json:"nu" validate:"required,gt=0"`
}

// RacecardEntry is one race on the day's card with its scheduled post time
type RacecardEntry struct {
	RaceID   string    `json:"race_id"`
	Venue    string    `json:"venue,omitempty"`
	PostTime time.Time `json:"post_time"`
}
