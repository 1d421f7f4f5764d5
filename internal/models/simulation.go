package models

import (
	"time"

	"github.com/google/uuid"
)

// SimulationSnapshot records one completed Monte Carlo pass: the inputs
// that identify it and the probability tables it produced. Snapshots
// are append-only; re-running a race writes a new snapshot.
type SimulationSnapshot struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	RaceID       string             `db:"race_id" json:"race_id"`
	Iterations   int                `db:"iterations" json:"iterations"`
	Seed         int64              `db:"seed" json:"seed"`
	ModelVersion string             `db:"model_version" json:"model_version"`
	Tables       []ProbabilityTable `db:"tables" json:"tables"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}
