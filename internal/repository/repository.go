package repository

import (
	"fmt"

	"github.com/yourusername/keiba-engine/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Order      OrderRepository
	Simulation SimulationRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Order:      NewPostgresOrderRepository(db),
		Simulation: NewPostgresSimulationRepository(db),
	}, nil
}
