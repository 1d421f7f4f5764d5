package oddsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
)

// ErrNoOdds indicates the provider has no odds for the race yet
var ErrNoOdds = errors.New("no odds published for race")

// quoteRow is the provider's wire format for one combination's odds
type quoteRow struct {
	BetType     string  `json:"bet_type"`
	Combination string  `json:"combination"`
	Odds        float64 `json:"odds"`
}

type snapshotResponse struct {
	RaceID    string     `json:"race_id"`
	FetchedAt time.Time  `json:"fetched_at"`
	Quotes    []quoteRow `json:"quotes"`
}

// SnapshotClient fetches near-post odds snapshots per race
type SnapshotClient struct {
	http    *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// NewSnapshotClient creates a snapshot client from the feed configuration
func NewSnapshotClient(cfg *config.OddsFeedConfig, logger *logrus.Logger) *SnapshotClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RequestsPerSecond
	httpCfg.Burst = cfg.Burst
	httpCfg.CircuitBreakerMax = cfg.FailureThreshold

	return &SnapshotClient{
		http:    NewRateLimitedHTTPClient(httpCfg, logger),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// GetRaceOdds fetches the current odds for one race across all bet types
func (c *SnapshotClient) GetRaceOdds(ctx context.Context, raceID string) ([]models.MarketQuote, error) {
	start := time.Now()

	url := fmt.Sprintf("%s/races/%s/odds", c.baseURL, raceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		metrics.RecordOddsFetch("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("odds fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		metrics.RecordOddsFetch("not_found", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s", ErrNoOdds, raceID)
	default:
		body, _ := io.ReadAll(resp.Body)
		metrics.RecordOddsFetch("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("odds fetch returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapshot snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		metrics.RecordOddsFetch("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to decode odds snapshot: %w", err)
	}

	quotes, err := snapshot.toQuotes(raceID)
	if err != nil {
		metrics.RecordOddsFetch("error", time.Since(start).Seconds())
		return nil, err
	}

	metrics.RecordOddsFetch("success", time.Since(start).Seconds())
	c.logger.WithFields(logrus.Fields{
		"race_id":  raceID,
		"quotes":   len(quotes),
		"duration": time.Since(start),
	}).Debug("Odds snapshot fetched")

	return quotes, nil
}

// Close releases the underlying HTTP client resources
func (c *SnapshotClient) Close() error {
	return c.http.Close()
}

func (s *snapshotResponse) toQuotes(raceID string) ([]models.MarketQuote, error) {
	quotes := make([]models.MarketQuote, 0, len(s.Quotes))
	for _, row := range s.Quotes {
		betType, err := models.ParseBetType(row.BetType)
		if err != nil {
			return nil, fmt.Errorf("odds snapshot for %s: %w", raceID, err)
		}
		combo, err := models.ParseCombination(row.Combination)
		if err != nil {
			return nil, fmt.Errorf("odds snapshot for %s: %w", raceID, err)
		}
		quotes = append(quotes, models.MarketQuote{
			RaceID:      raceID,
			BetType:     betType,
			Combination: combo,
			Odds:        row.Odds,
		})
	}
	return quotes, nil
}
