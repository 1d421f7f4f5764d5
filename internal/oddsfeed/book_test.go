package oddsfeed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-engine/internal/models"
)

func quote(raceID string, horse int, odds float64) models.MarketQuote {
	return models.MarketQuote{
		RaceID:      raceID,
		BetType:     models.BetTypeWin,
		Combination: models.NewCombination(horse),
		Odds:        odds,
	}
}

func TestQuoteBookApplyAndRead(t *testing.T) {
	book := NewQuoteBook()
	assert.Equal(t, 0, book.Size())

	book.Apply(quote("R1", 1, 2.5))
	book.Apply(quote("R1", 2, 4.0))
	book.Apply(quote("R2", 1, 3.0))

	assert.Equal(t, 3, book.Size())
	assert.Len(t, book.RaceQuotes("R1"), 2)
	assert.Len(t, book.RaceQuotes("R2"), 1)
	assert.Empty(t, book.RaceQuotes("R3"))
}

func TestQuoteBookLatestQuoteWins(t *testing.T) {
	book := NewQuoteBook()
	book.Apply(quote("R1", 1, 2.5))
	book.Apply(quote("R1", 1, 3.1))

	quotes := book.RaceQuotes("R1")
	require.Len(t, quotes, 1)
	assert.Equal(t, 3.1, quotes[0].Odds)
}

func TestQuoteBookLastUpdated(t *testing.T) {
	book := NewQuoteBook()

	_, ok := book.LastUpdated("R1")
	assert.False(t, ok)

	book.Apply(quote("R1", 1, 2.5))
	ts, ok := book.LastUpdated("R1")
	assert.True(t, ok)
	assert.False(t, ts.IsZero())
}

func TestQuoteBookDropRace(t *testing.T) {
	book := NewQuoteBook()
	book.Apply(quote("R1", 1, 2.5))
	book.Apply(quote("R1", 2, 4.0))
	book.Apply(quote("R2", 1, 3.0))

	book.DropRace("R1")

	assert.Empty(t, book.RaceQuotes("R1"))
	assert.Len(t, book.RaceQuotes("R2"), 1)
	_, ok := book.LastUpdated("R1")
	assert.False(t, ok)
}

func TestQuoteBookConcurrentAccess(t *testing.T) {
	book := NewQuoteBook()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(horse int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				book.Apply(quote("R1", horse, float64(j)+1))
			}
		}(i + 1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = book.RaceQuotes("R1")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, book.Size())
}
