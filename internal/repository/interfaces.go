package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/keiba-engine/internal/models"
)

// OrderRepository defines the interface for order persistence. Orders
// are write-once: there is deliberately no Update.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreateBatch(ctx context.Context, orders []models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByRaceID(ctx context.Context, raceID string) ([]*models.Order, error)
	GetByDay(ctx context.Context, day time.Time) ([]*models.Order, error)
}

// SimulationRepository defines the interface for simulation snapshots
type SimulationRepository interface {
	Create(ctx context.Context, snapshot *models.SimulationSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SimulationSnapshot, error)
	GetLatestByRaceID(ctx context.Context, raceID string) (*models.SimulationSnapshot, error)
	GetByRaceID(ctx context.Context, raceID string) ([]*models.SimulationSnapshot, error)
}
