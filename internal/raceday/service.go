// Package raceday orchestrates a betting day: it loads the racecard,
// keeps odds fresh, splits the daily budget across races, and runs the
// near-post pipeline pass for each race as its post time approaches.
package raceday

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/logger"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/oddsfeed"
	"github.com/yourusername/keiba-engine/internal/pipeline"
	"github.com/yourusername/keiba-engine/internal/portfolio"
	"github.com/yourusername/keiba-engine/internal/predictions"
	"github.com/yourusername/keiba-engine/internal/repository"
)

// OddsSource fetches the current odds snapshot for one race
type OddsSource interface {
	GetRaceOdds(ctx context.Context, raceID string) ([]models.MarketQuote, error)
}

// Config holds the race-day service settings
type Config struct {
	DailyBudget   float64
	PrePostWindow time.Duration
	BatchSeed     int64
	ModelVersion  string
}

// Service runs the race-day workflow
type Service struct {
	cfg       Config
	runner    *pipeline.Runner
	preds     predictions.Client
	odds      OddsSource
	book      *oddsfeed.QuoteBook
	allocator *portfolio.DailyAllocator
	orderRepo repository.OrderRepository
	simRepo   repository.SimulationRepository
	audit     *logger.AuditLogger
	logger    *logrus.Logger

	mu        sync.Mutex
	racecard  []models.RacecardEntry
	budgets   map[string]float64
	processed map[string]bool
}

// NewService creates a race-day service
func NewService(
	cfg Config,
	runner *pipeline.Runner,
	preds predictions.Client,
	odds OddsSource,
	book *oddsfeed.QuoteBook,
	allocator *portfolio.DailyAllocator,
	orderRepo repository.OrderRepository,
	simRepo repository.SimulationRepository,
	log *logrus.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		runner:    runner,
		preds:     preds,
		odds:      odds,
		book:      book,
		allocator: allocator,
		orderRepo: orderRepo,
		simRepo:   simRepo,
		audit:     logger.NewAuditLogger(log),
		logger:    log,
		budgets:   make(map[string]float64),
		processed: make(map[string]bool),
	}
}

// LoadRacecard replaces today's racecard
func (s *Service) LoadRacecard(entries []models.RacecardEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.racecard = append([]models.RacecardEntry{}, entries...)
	sort.Slice(s.racecard, func(i, j int) bool {
		return s.racecard[i].PostTime.Before(s.racecard[j].PostTime)
	})
	s.budgets = make(map[string]float64)
	s.processed = make(map[string]bool)

	metrics.UpdateRacesScheduled(len(s.racecard))
	s.logger.WithField("races", len(s.racecard)).Info("Racecard loaded")
}

// MorningPass simulates every race on the card with current odds and
// splits the daily budget across races by expected log-growth. Races
// whose prediction or odds are unavailable simply score zero.
func (s *Service) MorningPass(ctx context.Context) error {
	entries := s.pendingRaces(time.Time{})
	if len(entries) == 0 {
		return fmt.Errorf("no races on card")
	}

	var books []portfolio.RaceBook
	for _, entry := range entries {
		input, err := s.collectRaceInput(ctx, entry.RaceID)
		if err != nil {
			s.audit.LogRaceSkipped(entry.RaceID, err)
			continue
		}

		result := s.runner.ProcessRace(*input, pipeline.RaceSeed(s.cfg.BatchSeed, entry.RaceID))
		if result.Err != nil {
			s.audit.LogRaceSkipped(entry.RaceID, result.Err)
			continue
		}

		books = append(books, portfolio.RaceBook{
			RaceID: entry.RaceID,
			Tables: result.Tables,
			Quotes: input.Quotes,
		})
	}

	budgets, err := s.allocator.AllocateBudget(books, s.cfg.DailyBudget)
	if err != nil {
		return fmt.Errorf("budget allocation failed: %w", err)
	}

	s.mu.Lock()
	s.budgets = budgets
	s.mu.Unlock()

	allocated := 0.0
	for _, b := range budgets {
		allocated += b
	}
	metrics.UpdateDailyBudgetRemaining(s.cfg.DailyBudget - allocated)
	s.audit.LogBudgetAllocation(time.Now().UTC(), s.cfg.DailyBudget, budgets)

	return nil
}

// PollOdds refreshes the quote book for every unprocessed race
func (s *Service) PollOdds(ctx context.Context) {
	for _, entry := range s.pendingRaces(time.Time{}) {
		quotes, err := s.odds.GetRaceOdds(ctx, entry.RaceID)
		if err != nil {
			s.logger.WithField("race_id", entry.RaceID).WithError(err).Debug("Odds poll failed")
			continue
		}
		for _, quote := range quotes {
			s.book.Apply(quote)
		}
	}
}

// NearPostPass runs the final simulate/optimize pass for every race
// whose post time falls inside the pre-post window, persists the
// snapshot and orders, and marks the race done. A race with no budget
// is still simulated so its snapshot is on record; it just bets nothing.
func (s *Service) NearPostPass(ctx context.Context, now time.Time) {
	for _, entry := range s.pendingRaces(now) {
		if err := s.processNearPost(ctx, entry); err != nil {
			metrics.RecordSimulationFailure()
			s.audit.LogRaceSkipped(entry.RaceID, err)
		}
		s.markProcessed(entry.RaceID)
	}
	metrics.UpdateRacesScheduled(s.remaining())
}

func (s *Service) processNearPost(ctx context.Context, entry models.RacecardEntry) error {
	input, err := s.collectRaceInput(ctx, entry.RaceID)
	if err != nil {
		return err
	}

	// A race without a budget still gets its snapshot on record; its
	// orders are suppressed after the pass.
	budget := s.budgetFor(entry.RaceID)
	unfunded := budget <= 0
	if unfunded {
		input.Capital = s.cfg.DailyBudget
	} else {
		input.Capital = budget
	}

	result := s.runner.ProcessRace(*input, pipeline.RaceSeed(s.cfg.BatchSeed, entry.RaceID))
	if result.Err != nil {
		return result.Err
	}
	if unfunded {
		result.Orders = nil
	}

	snapshot := &models.SimulationSnapshot{
		ID:           uuid.New(),
		RaceID:       entry.RaceID,
		Iterations:   s.runner.Iterations(),
		Seed:         result.Seed,
		ModelVersion: s.cfg.ModelVersion,
		Tables:       result.Tables,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.simRepo.Create(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist simulation snapshot: %w", err)
	}

	if err := s.orderRepo.CreateBatch(ctx, result.Orders); err != nil {
		return fmt.Errorf("failed to persist orders: %w", err)
	}

	exposure := 0.0
	for _, order := range result.Orders {
		s.audit.LogOrderEmitted(order)
		exposure += order.Stake
	}
	metrics.UpdateExposure(exposure)

	s.book.DropRace(entry.RaceID)
	return nil
}

// collectRaceInput gathers the prediction and freshest quotes for a race.
// The quote book wins when the stream has updated it; otherwise fall
// back to an on-demand snapshot.
func (s *Service) collectRaceInput(ctx context.Context, raceID string) (*pipeline.RaceInput, error) {
	pred, err := s.preds.GetRacePrediction(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("prediction unavailable: %w", err)
	}

	quotes := s.book.RaceQuotes(raceID)
	if len(quotes) == 0 {
		quotes, err = s.odds.GetRaceOdds(ctx, raceID)
		if err != nil {
			return nil, fmt.Errorf("odds unavailable: %w", err)
		}
	}

	return &pipeline.RaceInput{
		Predictions: pred.Horses,
		Chaos:       pred.Chaos(),
		Quotes:      quotes,
		Capital:     s.cfg.DailyBudget,
	}, nil
}

// pendingRaces returns unprocessed races. With a zero time it returns
// all of them; otherwise only those inside the pre-post window.
func (s *Service) pendingRaces(now time.Time) []models.RacecardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.RacecardEntry
	for _, entry := range s.racecard {
		if s.processed[entry.RaceID] {
			continue
		}
		if !now.IsZero() {
			untilPost := entry.PostTime.Sub(now)
			if untilPost < 0 || untilPost > s.cfg.PrePostWindow {
				continue
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *Service) budgetFor(raceID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets[raceID]
}

func (s *Service) markProcessed(raceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[raceID] = true
}

func (s *Service) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.racecard {
		if !s.processed[entry.RaceID] {
			count++
		}
	}
	return count
}
