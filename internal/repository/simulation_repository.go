package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/keiba-engine/internal/database"
	"github.com/yourusername/keiba-engine/internal/models"
)

const snapshotColumns = `id, race_id, iterations, seed, model_version, tables, created_at`

// PostgresSimulationRepository implements SimulationRepository for
// PostgreSQL. Probability tables are stored as JSONB.
type PostgresSimulationRepository struct {
	db *database.DB
}

// NewPostgresSimulationRepository creates a new simulation repository
func NewPostgresSimulationRepository(db *database.DB) SimulationRepository {
	return &PostgresSimulationRepository{db: db}
}

// Create inserts a simulation snapshot
func (r *PostgresSimulationRepository) Create(ctx context.Context, snapshot *models.SimulationSnapshot) error {
	tables, err := json.Marshal(snapshot.Tables)
	if err != nil {
		return fmt.Errorf("failed to encode probability tables: %w", err)
	}

	query := `
		INSERT INTO simulation_snapshots (id, race_id, iterations, seed, model_version, tables, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		snapshot.ID, snapshot.RaceID, snapshot.Iterations, snapshot.Seed,
		snapshot.ModelVersion, tables, snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create simulation snapshot: %w", err)
	}

	return nil
}

// GetByID retrieves a snapshot by ID
func (r *PostgresSimulationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SimulationSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM simulation_snapshots WHERE id = $1`

	snapshot, err := scanSnapshot(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation snapshot: %w", err)
	}

	return snapshot, nil
}

// GetLatestByRaceID retrieves the most recent snapshot for a race
func (r *PostgresSimulationRepository) GetLatestByRaceID(ctx context.Context, raceID string) (*models.SimulationSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM simulation_snapshots WHERE race_id = $1 ORDER BY created_at DESC LIMIT 1`

	snapshot, err := scanSnapshot(r.db.GetPool().QueryRow(ctx, query, raceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest simulation snapshot: %w", err)
	}

	return snapshot, nil
}

// GetByRaceID retrieves all snapshots for a race, newest first
func (r *PostgresSimulationRepository) GetByRaceID(ctx context.Context, raceID string) ([]*models.SimulationSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM simulation_snapshots WHERE race_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulation snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.SimulationSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}

func scanSnapshot(row pgx.Row) (*models.SimulationSnapshot, error) {
	snapshot := &models.SimulationSnapshot{}
	var tables []byte
	err := row.Scan(
		&snapshot.ID, &snapshot.RaceID, &snapshot.Iterations, &snapshot.Seed,
		&snapshot.ModelVersion, &tables, &snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tables, &snapshot.Tables); err != nil {
		return nil, fmt.Errorf("failed to decode probability tables: %w", err)
	}

	return snapshot, nil
}
