// internal/catalog/catalog.go
package catalog

import (
	"context"
	"errors"

	"github.com/jason-s-yu/tablesync/internal/models"
)

// ErrCardNotFound is returned when a source has no card for the requested name.
var ErrCardNotFound = errors.New("card not found")

// Fetcher resolves a card name to its catalog payload.
type Fetcher interface {
	FetchCard(ctx context.Context, name string) (models.Card, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) (models.Card, error)

func (f FetcherFunc) FetchCard(ctx context.Context, name string) (models.Card, error) {
	return f(ctx, name)
}

// Chain tries each fetcher in order and returns the first hit. A source that fails
// for any reason is skipped; if every source fails, the last error is returned.
func Chain(fetchers ...Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, name string) (models.Card, error) {
		err := ErrCardNotFound
		for _, f := range fetchers {
			if f == nil {
				continue
			}
			var card models.Card
			card, err = f.FetchCard(ctx, name)
			if err == nil {
				return card, nil
			}
			if ctx.Err() != nil {
				return models.Card{}, ctx.Err()
			}
		}
		return models.Card{}, err
	})
}
