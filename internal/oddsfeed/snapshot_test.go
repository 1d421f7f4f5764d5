package oddsfeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/config"
	"github.com/yourusername/keiba-engine/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testFeedConfig(baseURL string) *config.OddsFeedConfig {
	return &config.OddsFeedConfig{
		BaseURL:           baseURL,
		StreamURL:         "ws://localhost/stream",
		RequestsPerSecond: 100,
		Burst:             10,
		MaxRetries:        0,
		TimeoutSeconds:    5,
		FailureThreshold:  5,
		APIKey:            "test-key",
	}
}

func TestGetRaceOdds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/races/R1/odds", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"race_id": "R1",
			"quotes": [
				{"bet_type": "win", "combination": "1", "odds": 2.5},
				{"bet_type": "win", "combination": "2", "odds": 4.0},
				{"bet_type": "exacta", "combination": "1-2", "odds": 9.8}
			]
		}`))
	}))
	defer server.Close()

	client := NewSnapshotClient(testFeedConfig(server.URL), testLogger())
	defer client.Close()

	quotes, err := client.GetRaceOdds(context.Background(), "R1")
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, "R1", quotes[0].RaceID)
	assert.Equal(t, models.BetTypeWin, quotes[0].BetType)
	assert.Equal(t, []int{1}, quotes[0].Combination.Numbers())
	assert.Equal(t, 2.5, quotes[0].Odds)

	assert.Equal(t, models.BetTypeExacta, quotes[2].BetType)
	assert.Equal(t, []int{1, 2}, quotes[2].Combination.Numbers())
}

func TestGetRaceOddsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewSnapshotClient(testFeedConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.GetRaceOdds(context.Background(), "R404")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoOdds)
}

func TestGetRaceOddsMalformedQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"race_id": "R1", "quotes": [{"bet_type": "superfecta", "combination": "1", "odds": 2.0}]}`))
	}))
	defer server.Close()

	client := NewSnapshotClient(testFeedConfig(server.URL), testLogger())
	defer client.Close()

	_, err := client.GetRaceOdds(context.Background(), "R1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bet type")
}

func TestStreamDispatchRoutesQuotes(t *testing.T) {
	stream := NewStreamClient("ws://localhost/stream", "", testLogger())

	var received []models.MarketQuote
	stream.AddHandler(func(q models.MarketQuote) error {
		received = append(received, q)
		return nil
	})

	stream.dispatch(streamMessage{Op: "quote", RaceID: "R1", BetType: "win", Combination: "3", Odds: 5.2})
	stream.dispatch(streamMessage{Op: "heartbeat"})
	stream.dispatch(streamMessage{Op: "quote", RaceID: "R1", BetType: "quinella", Combination: "3-7", Odds: 12.0})

	require.Len(t, received, 2)
	assert.Equal(t, models.BetTypeWin, received[0].BetType)
	assert.Equal(t, 5.2, received[0].Odds)
	assert.Equal(t, []int{3, 7}, received[1].Combination.Numbers())
}

func TestStreamDispatchSkipsMalformedFrames(t *testing.T) {
	stream := NewStreamClient("ws://localhost/stream", "", testLogger())

	called := false
	stream.AddHandler(func(models.MarketQuote) error {
		called = true
		return nil
	})

	stream.dispatch(streamMessage{Op: "quote", RaceID: "R1", BetType: "superfecta", Combination: "1", Odds: 2.0})
	stream.dispatch(streamMessage{Op: "quote", RaceID: "R1", BetType: "win", Combination: "zero", Odds: 2.0})

	assert.False(t, called)
}

func TestStreamNotConnectedErrors(t *testing.T) {
	stream := NewStreamClient("ws://localhost/stream", "", testLogger())

	assert.False(t, stream.IsConnected())
	assert.Error(t, stream.Ping())
	assert.Error(t, stream.SubscribeToRaces([]string{"R1"}))
	assert.NoError(t, stream.Close())
}
