package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerProductionUsesJSON(t *testing.T) {
	log := NewLogger("debug", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestAuditLoggerSimulationRun(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSimulationRun("202605010811", 16, 10000, 42, 0.35)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "202605010811", logEntry["race_id"])
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, float64(10000), logEntry["iterations"])
}

func TestAuditLoggerOrderEmitted(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	order := models.Order{
		ID:            uuid.New(),
		RaceID:        "202605010811",
		BetType:       models.BetTypeWin,
		Combination:   models.NewCombination(7),
		Stake:         8300,
		Odds:          2.5,
		Probability:   0.5,
		ExpectedValue: 0.25,
		CreatedAt:     time.Date(2026, 5, 1, 14, 50, 0, 0, time.UTC),
	}
	auditLogger.LogOrderEmitted(order)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, order.ID.String(), logEntry["order_id"])
	assert.Equal(t, "7", logEntry["combination"])
	assert.Equal(t, float64(8300), logEntry["stake"])
}

func TestAuditLoggerRaceSkipped(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogRaceSkipped("202605010811", &models.InvalidParameterError{
		Param: "sigma", Value: -0.1, Reason: "scale must be positive",
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "202605010811", logEntry["race_id"])
	assert.Contains(t, logEntry["error"], "sigma")
}

func TestAuditLoggerBudgetAllocation(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogBudgetAllocation(
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		50000,
		map[string]float64{"202605010811": 30000, "202605010812": 20000},
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "2026-05-01", logEntry["day"])
	assert.Equal(t, float64(2), logEntry["races_funded"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogSimulationRun("202605010811", 16, 10000, 42, 0.35)

	// Verify output is valid JSON
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}

func BenchmarkAuditLoggerOrderEmitted(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	auditLogger := NewAuditLogger(log)

	order := models.Order{
		ID:          uuid.New(),
		RaceID:      "202605010811",
		BetType:     models.BetTypeWin,
		Combination: models.NewCombination(7),
		Stake:       8300,
		Odds:        2.5,
		CreatedAt:   time.Now(),
	}
	for i := 0; i < b.N; i++ {
		auditLogger.LogOrderEmitted(order)
	}
}
