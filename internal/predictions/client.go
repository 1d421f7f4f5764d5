// Package predictions provides the client for the model inference service.
package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
)

// RacePrediction is the inference service's output for one race
type RacePrediction struct {
	RaceID       string                   `json:"race_id"`
	ModelVersion string                   `json:"model_version"`
	Nu           float64                  `json:"nu"`
	Horses       []models.HorsePrediction `json:"horses"`
}

// Chaos returns the race-level tail parameter in model form
func (p *RacePrediction) Chaos() models.RaceChaos {
	return models.RaceChaos{RaceID: p.RaceID, Nu: p.Nu}
}

// Client fetches race predictions from the inference service
type Client interface {
	GetRacePrediction(ctx context.Context, raceID string) (*RacePrediction, error)
	HealthCheck(ctx context.Context) error
}

// HTTPClient provides the HTTP client for the inference service
type HTTPClient struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	modelVersion string
	retries      int
	logger       *logrus.Logger
}

// NewHTTPClient creates a new HTTP client for the inference service
func NewHTTPClient(cfg *config.InferenceConfig, logger *logrus.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:      cfg.URL,
		apiKey:       cfg.APIKey,
		modelVersion: cfg.ModelVersion,
		retries:      cfg.RetryAttempts,
		logger:       logger,
	}
}

// GetRacePrediction fetches the per-horse mu/sigma and race nu for one race
func (c *HTTPClient) GetRacePrediction(ctx context.Context, raceID string) (*RacePrediction, error) {
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		pred, err := c.fetchPrediction(ctx, raceID)
		if err == nil {
			metrics.RecordPredictionRequest("success", time.Since(start).Seconds())
			c.logger.WithFields(logrus.Fields{
				"race_id":       raceID,
				"model_version": pred.ModelVersion,
				"horses":        len(pred.Horses),
				"duration":      time.Since(start),
			}).Debug("Race prediction fetched")
			return pred, nil
		}
		// Only transport failures are retried
		if err == ErrRaceNotFound || err == ErrInvalidPrediction {
			metrics.RecordPredictionRequest("error", time.Since(start).Seconds())
			return nil, err
		}
		lastErr = err
	}

	metrics.RecordPredictionRequest("error", time.Since(start).Seconds())
	return nil, lastErr
}

func (c *HTTPClient) fetchPrediction(ctx context.Context, raceID string) (*RacePrediction, error) {
	url := fmt.Sprintf("%s/api/v1/races/%s/prediction?model_version=%s", c.baseURL, raceID, c.modelVersion)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrRaceNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("prediction request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var pred RacePrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrediction, err)
	}
	if pred.RaceID == "" || len(pred.Horses) == 0 {
		return nil, ErrInvalidPrediction
	}

	return &pred, nil
}

// HealthCheck checks inference service health
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	return nil
}
