package oddsfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-engine/internal/metrics"
	"github.com/yourusername/keiba-engine/internal/models"
)

// StreamClient handles the websocket connection to the odds provider's
// streaming endpoint.
type StreamClient struct {
	streamURL       string
	apiKey          string
	reconnectConfig ReconnectConfig
	logger          *logrus.Logger

	mu              sync.RWMutex
	conn            *websocket.Conn
	isConnected     bool
	handlers        []QuoteHandler
	subscribed      []string
	lastMessageTime time.Time
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// QuoteHandler is called for each odds update received from the stream
type QuoteHandler func(quote models.MarketQuote) error

// streamMessage is the provider's wire format for one stream frame
type streamMessage struct {
	Op          string  `json:"op"`
	RaceID      string  `json:"race_id,omitempty"`
	BetType     string  `json:"bet_type,omitempty"`
	Combination string  `json:"combination,omitempty"`
	Odds        float64 `json:"odds,omitempty"`
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// NewStreamClient creates a new stream client
func NewStreamClient(streamURL, apiKey string, logger *logrus.Logger) *StreamClient {
	return &StreamClient{
		streamURL:       streamURL,
		apiKey:          apiKey,
		handlers:        make([]QuoteHandler, 0),
		reconnectConfig: DefaultReconnectConfig(),
		logger:          logger,
	}
}

// Connect establishes the websocket connection and starts the read loop
func (s *StreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isConnected {
		return fmt.Errorf("already connected")
	}

	s.logger.WithField("url", s.streamURL).Info("Connecting to odds stream")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to odds stream: %w", err)
	}

	s.conn = conn
	s.isConnected = true
	s.lastMessageTime = time.Now()

	if s.apiKey != "" {
		authMsg := map[string]interface{}{
			"op":      "auth",
			"api_key": s.apiKey,
		}
		if err := conn.WriteJSON(authMsg); err != nil {
			s.isConnected = false
			_ = conn.Close()
			return fmt.Errorf("failed to authenticate stream: %w", err)
		}
	}

	// Start message reading loop
	go s.readMessages(ctx)

	return nil
}

// SubscribeToRaces subscribes to odds updates for the given races
func (s *StreamClient) SubscribeToRaces(raceIDs []string) error {
	s.mu.Lock()
	s.subscribed = append([]string{}, raceIDs...)
	s.mu.Unlock()

	subMsg := map[string]interface{}{
		"op":       "subscribe",
		"race_ids": raceIDs,
	}

	s.logger.WithField("races", len(raceIDs)).Info("Subscribing to odds updates")
	return s.sendMessage(subMsg)
}

// AddHandler registers a quote handler
func (s *StreamClient) AddHandler(handler QuoteHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// readMessages reads frames until the connection drops, then reconnects
// with exponential backoff up to MaxRetries.
func (s *StreamClient) readMessages(ctx context.Context) {
	for {
		var msg streamMessage
		err := s.conn.ReadJSON(&msg)
		if err != nil {
			s.mu.Lock()
			s.isConnected = false
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			s.logger.WithError(err).Warn("Odds stream read failed, reconnecting")
			if rerr := s.reconnect(ctx); rerr != nil {
				s.logger.WithError(rerr).Error("Odds stream reconnect gave up")
				return
			}
			return
		}

		s.mu.Lock()
		s.lastMessageTime = time.Now()
		s.mu.Unlock()

		s.dispatch(msg)
	}
}

func (s *StreamClient) dispatch(msg streamMessage) {
	if msg.Op != "quote" {
		return
	}

	betType, err := models.ParseBetType(msg.BetType)
	if err != nil {
		s.logger.WithField("bet_type", msg.BetType).Warn("Stream quote with unknown bet type")
		return
	}
	combo, err := models.ParseCombination(msg.Combination)
	if err != nil {
		s.logger.WithField("combination", msg.Combination).Warn("Stream quote with malformed combination")
		return
	}

	quote := models.MarketQuote{
		RaceID:      msg.RaceID,
		BetType:     betType,
		Combination: combo,
		Odds:        msg.Odds,
	}

	s.mu.RLock()
	handlers := s.handlers
	s.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(quote); err != nil {
			s.logger.WithError(err).Warn("Quote handler error")
		}
	}
}

// reconnect re-dials and re-subscribes with exponential backoff
func (s *StreamClient) reconnect(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff

	for attempt := 1; attempt <= s.reconnectConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		metrics.RecordStreamReconnect()
		if err := s.Connect(ctx); err != nil {
			s.logger.WithError(err).Warnf("Reconnect attempt %d failed", attempt)
			backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
			if backoff > s.reconnectConfig.MaxBackoff {
				backoff = s.reconnectConfig.MaxBackoff
			}
			continue
		}

		s.mu.RLock()
		subscribed := s.subscribed
		s.mu.RUnlock()
		if len(subscribed) > 0 {
			return s.SubscribeToRaces(subscribed)
		}
		return nil
	}

	return fmt.Errorf("odds stream reconnect failed after %d attempts", s.reconnectConfig.MaxRetries)
}

// sendMessage sends a JSON message to the stream
func (s *StreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	conn := s.conn
	s.mu.RUnlock()

	return conn.WriteJSON(msg)
}

// IsConnected returns whether the stream is connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	s.isConnected = false
	return s.conn.Close()
}

// Ping sends a keepalive message
func (s *StreamClient) Ping() error {
	return s.sendMessage(map[string]interface{}{
		"op": "ping",
	})
}
