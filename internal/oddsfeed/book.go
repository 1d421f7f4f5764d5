package oddsfeed

import (
	"sync"
	"time"

	"github.com/yourusername/keiba-engine/internal/models"
)

type bookKey struct {
	raceID      string
	betType     models.BetType
	combination models.Combination
}

// QuoteBook holds the latest odds per combination as stream updates
// arrive. Reads see the most recent update, never a partial one.
type QuoteBook struct {
	mu      sync.RWMutex
	quotes  map[bookKey]models.MarketQuote
	updated map[string]time.Time
}

// NewQuoteBook creates an empty quote book
func NewQuoteBook() *QuoteBook {
	return &QuoteBook{
		quotes:  make(map[bookKey]models.MarketQuote),
		updated: make(map[string]time.Time),
	}
}

// Apply records one quote update
func (b *QuoteBook) Apply(quote models.MarketQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[bookKey{quote.RaceID, quote.BetType, quote.Combination}] = quote
	b.updated[quote.RaceID] = time.Now()
}

// RaceQuotes returns the current quotes for one race
func (b *QuoteBook) RaceQuotes(raceID string) []models.MarketQuote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var quotes []models.MarketQuote
	for key, quote := range b.quotes {
		if key.raceID == raceID {
			quotes = append(quotes, quote)
		}
	}
	return quotes
}

// LastUpdated returns when the race's quotes last changed
func (b *QuoteBook) LastUpdated(raceID string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.updated[raceID]
	return t, ok
}

// DropRace removes a finished race's quotes from the book
func (b *QuoteBook) DropRace(raceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.quotes {
		if key.raceID == raceID {
			delete(b.quotes, key)
		}
	}
	delete(b.updated, raceID)
}

// Size returns the number of quotes held
func (b *QuoteBook) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.quotes)
}
