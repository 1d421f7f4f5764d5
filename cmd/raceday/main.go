// Package main provides the entry point for the race-day service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/database"
	"github.com/yourusername/keiba-engine/internal/health"
	"github.com/yourusername/keiba-engine/internal/logger"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/oddsfeed"
	"github.com/yourusername/keiba-engine/internal/pipeline"
	"github.com/yourusername/keiba-engine/internal/portfolio"
	"github.com/yourusername/keiba-engine/internal/predictions"
	"github.com/yourusername/keiba-engine/internal/raceday"
	"github.com/yourusername/keiba-engine/internal/repository"
	"github.com/yourusername/keiba-engine/internal/scheduler"
	"github.com/yourusername/keiba-engine/internal/simulation"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile   string
	racecardFile string
	skipMorning  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&racecardFile, "racecard", "", "Path to racecard JSON file (required)")
	rootCmd.Flags().BoolVar(&skipMorning, "skip-morning-pass", false, "Skip the morning budget allocation pass")
	_ = rootCmd.MarkFlagRequired("racecard")
}

var rootCmd = &cobra.Command{
	Use:   "raceday",
	Short: "Run the race-day simulation and betting service",
	Long: `Loads the day's racecard, keeps odds fresh via polling and the
streaming feed, allocates the daily budget across races in the morning,
and runs the final simulate/optimize pass as each race nears its post time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Race-day service starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.InitRegistry()
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, appLog)
	}

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	inferenceClient := predictions.NewHTTPClient(&cfg.Inference, appLog)
	cachedPredictions := predictions.NewCachedClient(
		inferenceClient,
		time.Duration(cfg.Inference.CacheTTLSeconds)*time.Second,
		cfg.Inference.ModelVersion,
	)
	appLog.WithField("inference_url", cfg.Inference.URL).Info("Inference client initialized")

	snapshotClient := oddsfeed.NewSnapshotClient(&cfg.OddsFeed, appLog)
	book := oddsfeed.NewQuoteBook()

	svc, err := buildService(cfg, cachedPredictions, snapshotClient, book, repos, appLog)
	if err != nil {
		return err
	}

	racecard, err := loadRacecard(racecardFile)
	if err != nil {
		return fmt.Errorf("failed to load racecard: %w", err)
	}
	svc.LoadRacecard(racecard)

	stream := connectStream(ctx, cfg, racecard, book, appLog)
	if stream != nil {
		defer stream.Close()
	}

	healthServer := startHealthServer(ctx, cfg, db, cachedPredictions, appLog)

	if !skipMorning {
		if err := svc.MorningPass(ctx); err != nil {
			return fmt.Errorf("morning pass failed: %w", err)
		}
		appLog.Info("Morning pass complete")
	}

	sched := scheduler.NewScheduler(svc, appLog)
	if err := sched.ScheduleOddsPolling(cfg.RaceDay.OddsPollIntervalSeconds); err != nil {
		return fmt.Errorf("failed to schedule odds polling: %w", err)
	}
	if err := sched.ScheduleNearPostPass(); err != nil {
		return fmt.Errorf("failed to schedule near-post pass: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	healthServer.SetReady(true)
	appLog.WithField("next_run", sched.GetNextRun()).Info("Race-day service running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during health server shutdown")
	}

	appLog.Info("Race-day service shut down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func buildService(
	cfg *config.Config,
	preds predictions.Client,
	odds *oddsfeed.SnapshotClient,
	book *oddsfeed.QuoteBook,
	repos *repository.Repositories,
	appLog *logrus.Logger,
) (*raceday.Service, error) {
	enabled, err := portfolio.EnabledBetTypeSet(cfg.Portfolio.EnabledBetTypes)
	if err != nil {
		return nil, fmt.Errorf("invalid bet types: %w", err)
	}

	portfolioCfg := portfolio.Config{
		KellyFraction:          cfg.Portfolio.KellyFraction,
		EVThreshold:            cfg.Portfolio.EVThreshold,
		MaxStakeFractionPerBet: cfg.Portfolio.MaxStakeFractionPerBet,
		EnabledBetTypes:        enabled,
		BetUnit:                cfg.Portfolio.BetUnit,
	}

	optimizer, err := portfolio.NewOptimizer(portfolioCfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create optimizer: %w", err)
	}
	allocator, err := portfolio.NewDailyAllocator(portfolioCfg, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocator: %w", err)
	}

	aggregator := simulation.NewAggregator(cfg.Simulation.PlaceRangePolicy())
	runner, err := pipeline.NewRunner(aggregator, optimizer, cfg.Simulation.Iterations, cfg.RaceDay.Workers, appLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline runner: %w", err)
	}

	return raceday.NewService(
		raceday.Config{
			DailyBudget:   cfg.Portfolio.DailyBudget,
			PrePostWindow: cfg.PrePostWindow(),
			BatchSeed:     *cfg.Simulation.Seed,
			ModelVersion:  cfg.Inference.ModelVersion,
		},
		runner,
		preds,
		odds,
		book,
		allocator,
		repos.Order,
		repos.Simulation,
		appLog,
	), nil
}

func loadRacecard(path string) ([]models.RacecardEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []models.RacecardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed racecard file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("racecard is empty")
	}

	return entries, nil
}

// connectStream dials the streaming feed and routes quotes into the
// book. A stream failure is not fatal: polling still keeps the book
// fresh, just more coarsely.
func connectStream(
	ctx context.Context,
	cfg *config.Config,
	racecard []models.RacecardEntry,
	book *oddsfeed.QuoteBook,
	appLog *logrus.Logger,
) *oddsfeed.StreamClient {
	stream := oddsfeed.NewStreamClient(cfg.OddsFeed.StreamURL, cfg.OddsFeed.APIKey, appLog)
	stream.AddHandler(func(quote models.MarketQuote) error {
		book.Apply(quote)
		return nil
	})

	if err := stream.Connect(ctx); err != nil {
		appLog.WithError(err).Warn("Odds stream unavailable, relying on polling")
		return nil
	}

	raceIDs := make([]string, 0, len(racecard))
	for _, entry := range racecard {
		raceIDs = append(raceIDs, entry.RaceID)
	}
	if err := stream.SubscribeToRaces(raceIDs); err != nil {
		appLog.WithError(err).Warn("Odds stream subscription failed, relying on polling")
	}

	return stream
}

func startMetricsServer(cfg *config.Config, appLog *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()
}

func startHealthServer(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	inference health.DependencyChecker,
	appLog *logrus.Logger,
) *health.Server {
	server := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprintf("%d", cfg.Health.Port),
		Logger:      appLog,
		DB:          db,
		Inference:   inference,
	})
	_ = server.Start(ctx)
	return server
}
