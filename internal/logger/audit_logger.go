// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/models"
)

// AuditLogger provides a dedicated audit trail for race-day decisions.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogSimulationRun logs one completed race simulation.
func (al *AuditLogger) LogSimulationRun(raceID string, fieldSize, iterations int, seed int64, durationSeconds float64) {
	al.WithFields(logrus.Fields{
		"race_id":    raceID,
		"field_size": fieldSize,
		"iterations": iterations,
		"seed":       seed,
		"duration_s": durationSeconds,
	}).Info("Simulation run recorded")
}

// LogOrderEmitted logs an emitted order.
func (al *AuditLogger) LogOrderEmitted(order models.Order) {
	al.WithFields(logrus.Fields{
		"order_id":       order.ID.String(),
		"race_id":        order.RaceID,
		"bet_type":       order.BetType,
		"combination":    order.Combination.String(),
		"stake":          order.Stake,
		"odds":           order.Odds,
		"probability":    order.Probability,
		"expected_value": order.ExpectedValue,
		"timestamp":      order.CreatedAt.Unix(),
	}).Info("Order emitted")
}

// LogRaceSkipped logs a race dropped from a batch with the reason.
func (al *AuditLogger) LogRaceSkipped(raceID string, reason error) {
	al.WithFields(logrus.Fields{
		"race_id": raceID,
	}).WithError(reason).Warn("Race skipped")
}

// LogBudgetAllocation logs the day's per-race budget split.
func (al *AuditLogger) LogBudgetAllocation(day time.Time, totalBudget float64, budgets map[string]float64) {
	al.WithFields(logrus.Fields{
		"day":          day.Format("2006-01-02"),
		"total_budget": totalBudget,
		"races_funded": len(budgets),
		"budgets":      budgets,
	}).Info("Daily budget allocation recorded")
}
