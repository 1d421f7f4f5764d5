// Package pipeline runs the simulate, aggregate, optimize pass for one
// race or a batch of races.
package pipeline

import (
	"context"
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
	"github.com/yourusername/keiba-engine/internal/portfolio"
	"github.com/yourusername/keiba-engine/internal/simulation"
)

// RaceInput bundles everything one race pass needs
type RaceInput struct {
	Predictions []models.HorsePrediction
	Chaos       models.RaceChaos
	Quotes      []models.MarketQuote
	Capital     float64
}

// RaceResult is the outcome of one race pass. Err is set when the race
// was skipped; Tables and Orders are nil in that case.
type RaceResult struct {
	RaceID string
	Tables []models.ProbabilityTable
	Orders []models.Order
	Seed   int64
	Err    error
}

// Runner wires the simulator, aggregator and optimizer into a single
// pass and fans it out over a bounded worker pool for batches.
type Runner struct {
	simulator  *simulation.Simulator
	aggregator *simulation.Aggregator
	optimizer  *portfolio.Optimizer
	iterations int
	workers    int
	logger     *logrus.Logger
}

// NewRunner creates a pipeline runner. workers <= 0 means one worker
// per CPU.
func NewRunner(
	aggregator *simulation.Aggregator,
	optimizer *portfolio.Optimizer,
	iterations int,
	workers int,
	logger *logrus.Logger,
) (*Runner, error) {
	if iterations < 1 {
		return nil, &models.InvalidParameterError{Param: "iterations", Value: float64(iterations), Reason: "draw count must be positive"}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		simulator:  simulation.NewSimulator(),
		aggregator: aggregator,
		optimizer:  optimizer,
		iterations: iterations,
		workers:    workers,
		logger:     logger,
	}, nil
}

// ProcessRace runs simulate, aggregate and optimize for one race with
// the given seed. Pure data in, orders out; nothing is persisted here.
func (r *Runner) ProcessRace(input RaceInput, seed int64) RaceResult {
	start := time.Now()
	result := RaceResult{RaceID: input.Chaos.RaceID, Seed: seed}

	samples, err := r.simulator.Simulate(input.Predictions, input.Chaos, r.iterations, seed)
	if err != nil {
		metrics.RecordSimulationFailure()
		result.Err = err
		return result
	}

	tables, err := r.aggregator.Aggregate(samples, r.optimizer.Config().EnabledBetTypes)
	if err != nil {
		metrics.RecordSimulationFailure()
		result.Err = err
		return result
	}

	orders, err := r.optimizer.Optimize(tables, input.Quotes, input.Capital)
	if err != nil {
		metrics.RecordSimulationFailure()
		result.Err = err
		return result
	}

	result.Tables = tables
	result.Orders = orders

	elapsed := time.Since(start).Seconds()
	metrics.RecordSimulation(elapsed)
	metrics.RecordOrdersEmitted(len(orders))

	r.logger.WithFields(logrus.Fields{
		"race_id":    result.RaceID,
		"field_size": samples.FieldSize(),
		"iterations": r.iterations,
		"seed":       seed,
		"orders":     len(orders),
		"duration_s": elapsed,
	}).Info("Race processed")

	return result
}

// ProcessBatch runs the race pass across the batch on a bounded worker
// pool. One malformed race is logged and skipped; the rest of the
// batch continues. Results are returned in input order. Each race's
// seed is derived from the batch seed and its race ID, so a race's
// samples do not depend on batch composition or scheduling.
func (r *Runner) ProcessBatch(ctx context.Context, inputs []RaceInput, batchSeed int64) []RaceResult {
	start := time.Now()
	results := make([]RaceResult, len(inputs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				input := inputs[idx]
				results[idx] = r.ProcessRace(input, RaceSeed(batchSeed, input.Chaos.RaceID))
			}
		}()
	}

	for idx := range inputs {
		if ctx.Err() != nil {
			for j := idx; j < len(inputs); j++ {
				results[j] = RaceResult{RaceID: inputs[j].Chaos.RaceID, Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		}
		select {
		case <-ctx.Done():
			for j := idx; j < len(inputs); j++ {
				results[j] = RaceResult{RaceID: inputs[j].Chaos.RaceID, Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	skipped := 0
	for _, res := range results {
		if res.Err != nil {
			skipped++
			r.logger.WithField("race_id", res.RaceID).WithError(res.Err).Warn("Race skipped")
		}
	}

	metrics.RecordBatchDuration(time.Since(start).Seconds())
	r.logger.WithFields(logrus.Fields{
		"races":   len(inputs),
		"skipped": skipped,
	}).Info("Batch processed")

	return results
}

// Iterations returns the configured draw count per race
func (r *Runner) Iterations() int {
	return r.iterations
}

// RaceSeed derives a race's RNG seed from the batch seed and race ID
func RaceSeed(batchSeed int64, raceID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(raceID))
	return batchSeed ^ int64(h.Sum64())
}
