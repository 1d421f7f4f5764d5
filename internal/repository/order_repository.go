package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/keiba-engine/internal/database"
	"github.com/yourusername/keiba-engine/internal/models"
)

const orderColumns = `id, race_id, bet_type, combination, stake, odds, probability, expected_value, created_at`

// PostgresOrderRepository implements OrderRepository for PostgreSQL
type PostgresOrderRepository struct {
	db *database.DB
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *database.DB) OrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create inserts a new order
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, race_id, bet_type, combination, stake, odds, probability, expected_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		order.ID, order.RaceID, string(order.BetType), order.Combination.String(),
		order.Stake, order.Odds, order.Probability, order.ExpectedValue, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateBatch inserts a race's orders in one transaction
func (r *PostgresOrderRepository) CreateBatch(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO orders (id, race_id, bet_type, combination, stake, odds, probability, expected_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		for _, order := range orders {
			_, err := tx.Exec(ctx, query,
				order.ID, order.RaceID, string(order.BetType), order.Combination.String(),
				order.Stake, order.Odds, order.Probability, order.ExpectedValue, order.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	row := r.db.GetPool().QueryRow(ctx, query, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// GetByRaceID retrieves all orders for a specific race
func (r *PostgresOrderRepository) GetByRaceID(ctx context.Context, raceID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE race_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.GetPool().Query(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by race: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetByDay retrieves all orders created on a given calendar day (UTC)
func (r *PostgresOrderRepository) GetByDay(ctx context.Context, day time.Time) ([]*models.Order, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at ASC`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by day: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	var betType, combination string
	err := row.Scan(
		&order.ID, &order.RaceID, &betType, &combination,
		&order.Stake, &order.Odds, &order.Probability, &order.ExpectedValue, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	bt, err := models.ParseBetType(betType)
	if err != nil {
		return nil, err
	}
	combo, err := models.ParseCombination(combination)
	if err != nil {
		return nil, err
	}
	order.BetType = bt
	order.Combination = combo

	return order, nil
}
