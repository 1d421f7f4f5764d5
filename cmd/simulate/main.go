// Package main provides the entry point for the one-shot simulation CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/database"
	"github.com/yourusername/keiba-engine/internal/logger"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/pipeline"
	"github.com/yourusername/keiba-engine/internal/portfolio"
	"github.com/yourusername/keiba-engine/internal/repository"
	"github.com/yourusername/keiba-engine/internal/simulation"
)

// raceFile is the one-shot input format: one race's model outputs plus
// the market quotes to price against.
type raceFile struct {
	RaceID       string                   `json:"race_id"`
	ModelVersion string                   `json:"model_version,omitempty"`
	Nu           float64                  `json:"nu"`
	Horses       []models.HorsePrediction `json:"horses"`
	Quotes       []models.MarketQuote     `json:"quotes"`
}

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		inputPath  = flag.String("input", "", "Path to race input JSON file (required)")
		capital    = flag.Float64("capital", 0, "Available capital (defaults to configured daily budget)")
		iterations = flag.Int("iterations", 0, "Override simulation draw count")
		seed       = flag.Int64("seed", 0, "Override RNG seed")
		seedSet    = flag.Bool("seed-set", false, "Treat -seed as explicit even when zero")
		persist    = flag.Bool("persist", false, "Persist the snapshot and orders to the database")
		output     = flag.String("output", "", "Write orders JSON to this path instead of stdout")
	)
	flag.Parse()

	appLog := newLogger()
	ctx := context.Background()

	if *inputPath == "" {
		appLog.Fatal("The -input flag is required")
	}

	cfg := loadConfig(*configPath, appLog)
	input := loadRaceFile(*inputPath, appLog)

	metrics.InitRegistry()

	runIterations := cfg.Simulation.Iterations
	if *iterations > 0 {
		runIterations = *iterations
	}
	runSeed := *cfg.Simulation.Seed
	if *seed != 0 || *seedSet {
		runSeed = *seed
	}
	runCapital := cfg.Portfolio.DailyBudget
	if *capital > 0 {
		runCapital = *capital
	}

	runner := buildRunner(cfg, runIterations, appLog)

	appLog.WithFields(logrus.Fields{
		"race_id":    input.RaceID,
		"field_size": len(input.Horses),
		"iterations": runIterations,
		"seed":       runSeed,
	}).Info("Starting simulation")

	result := runner.ProcessRace(pipeline.RaceInput{
		Predictions: input.Horses,
		Chaos:       models.RaceChaos{RaceID: input.RaceID, Nu: input.Nu},
		Quotes:      input.Quotes,
		Capital:     runCapital,
	}, runSeed)
	if result.Err != nil {
		appLog.Fatalf("Simulation failed: %v", result.Err)
	}

	if *persist {
		persistResult(ctx, cfg, input, result, runIterations, appLog)
	}

	writeOrders(result.Orders, *output, appLog)

	appLog.WithFields(logrus.Fields{
		"tables": len(result.Tables),
		"orders": len(result.Orders),
	}).Info("Simulation complete")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func loadConfig(path string, appLog *logrus.Logger) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		appLog.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			appLog.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			appLog.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		appLog.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func loadRaceFile(path string, appLog *logrus.Logger) *raceFile {
	data, err := os.ReadFile(path)
	if err != nil {
		appLog.Fatalf("Failed to read input file: %v", err)
	}

	input := &raceFile{}
	if err := json.Unmarshal(data, input); err != nil {
		appLog.Fatalf("Malformed input file: %v", err)
	}
	if input.RaceID == "" || len(input.Horses) == 0 {
		appLog.Fatal("Input file must name a race_id and at least one horse")
	}

	return input
}

func buildRunner(cfg *config.Config, iterations int, appLog *logrus.Logger) *pipeline.Runner {
	enabled, err := portfolio.EnabledBetTypeSet(cfg.Portfolio.EnabledBetTypes)
	if err != nil {
		appLog.Fatalf("Invalid bet types: %v", err)
	}

	optimizer, err := portfolio.NewOptimizer(portfolio.Config{
		KellyFraction:          cfg.Portfolio.KellyFraction,
		EVThreshold:            cfg.Portfolio.EVThreshold,
		MaxStakeFractionPerBet: cfg.Portfolio.MaxStakeFractionPerBet,
		EnabledBetTypes:        enabled,
		BetUnit:                cfg.Portfolio.BetUnit,
	}, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create optimizer: %v", err)
	}

	aggregator := simulation.NewAggregator(cfg.Simulation.PlaceRangePolicy())
	runner, err := pipeline.NewRunner(aggregator, optimizer, iterations, 1, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create pipeline runner: %v", err)
	}

	return runner
}

func persistResult(
	ctx context.Context,
	cfg *config.Config,
	input *raceFile,
	result pipeline.RaceResult,
	iterations int,
	appLog *logrus.Logger,
) {
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	modelVersion := input.ModelVersion
	if modelVersion == "" {
		modelVersion = cfg.Inference.ModelVersion
	}

	simRepo := repository.NewPostgresSimulationRepository(db)
	snapshot := &models.SimulationSnapshot{
		ID:           uuid.New(),
		RaceID:       result.RaceID,
		Iterations:   iterations,
		Seed:         result.Seed,
		ModelVersion: modelVersion,
		Tables:       result.Tables,
		CreatedAt:    time.Now().UTC(),
	}
	if err := simRepo.Create(ctx, snapshot); err != nil {
		appLog.Fatalf("Failed to persist simulation snapshot: %v", err)
	}

	orderRepo := repository.NewPostgresOrderRepository(db)
	if err := orderRepo.CreateBatch(ctx, result.Orders); err != nil {
		appLog.Fatalf("Failed to persist orders: %v", err)
	}

	audit := logger.NewAuditLogger(appLog)
	for _, order := range result.Orders {
		audit.LogOrderEmitted(order)
	}
}

func writeOrders(orders []models.Order, path string, appLog *logrus.Logger) {
	if orders == nil {
		orders = []models.Order{}
	}

	data, err := json.MarshalIndent(orders, "", "  ")
	if err != nil {
		appLog.Fatalf("Failed to encode orders: %v", err)
	}

	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		appLog.Fatalf("Failed to write orders file: %v", err)
	}
}
