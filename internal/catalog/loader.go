// internal/catalog/loader.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tablesync/internal/decklist"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultFetchDelay spaces catalog lookups to stay inside Scryfall's rate limit.
const DefaultFetchDelay = 100 * time.Millisecond

// Loader turns deck list entries into deck cards.
type Loader struct {
	fetcher Fetcher
	limiter *rate.Limiter
	logger  *logrus.Logger
	newID   func() uuid.UUID
}

// NewLoader builds a loader over fetcher that starts at most one entry per delay.
// A zero or negative delay disables the pause.
func NewLoader(fetcher Fetcher, delay time.Duration, logger *logrus.Logger) *Loader {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Loader{
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		newID:   uuid.New,
	}
}

// Load fetches entries one at a time, pausing between entries, and expands each into
// Quantity copies. Every copy gets its own instance id.
//
// Entries outside 1..decklist.MaxQuantity are rejected with decklist.ErrBadQuantity.
// On the first failure it stops and returns the cards built so far with the error, so
// a caller may still use a partial deck.
func (l *Loader) Load(ctx context.Context, entries []decklist.Entry) ([]models.Card, error) {
	var cards []models.Card
	for _, e := range entries {
		if e.Quantity <= 0 || e.Quantity > decklist.MaxQuantity {
			return cards, fmt.Errorf("load %q: %d copies: %w", e.Name, e.Quantity, decklist.ErrBadQuantity)
		}
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return cards, ctx.Err()
			}
			return cards, err
		}

		card, err := l.fetcher.FetchCard(ctx, e.Name)
		if err != nil {
			l.logger.WithField("card", e.Name).Warnf("deck load halted: %v", err)
			return cards, fmt.Errorf("load %q: %w", e.Name, err)
		}
		card = catalogOnly(card)
		for n := 0; n < e.Quantity; n++ {
			c := card
			c.InstanceID = l.newID()
			cards = append(cards, c)
		}
		l.logger.WithFields(logrus.Fields{
			"card":     card.Name,
			"quantity": e.Quantity,
		}).Debug("deck entry loaded")
	}
	return cards, nil
}
