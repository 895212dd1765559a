// cmd/catalog-import/main.go loads a Scryfall bulk-data export into the Postgres catalog
// mirror so that deck loads can resolve cards without calling the API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jason-s-yu/tablesync/internal/catalog"
	"github.com/jason-s-yu/tablesync/internal/config"
	"github.com/jason-s-yu/tablesync/internal/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	file := flag.String("file", "", "path to a Scryfall bulk JSON export (oracle-cards or default-cards)")
	batchSize := flag.Int("batch", 500, "cards per transaction")
	flag.Parse()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	if *file == "" {
		logger.Fatal("-file is required")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := catalog.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	store := catalog.NewPostgresStore(pool, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to prepare schema: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()

	start := time.Now()
	imported, err := importCards(ctx, bufio.NewReader(f), store, *batchSize, logger)
	if err != nil {
		logger.Fatalf("Import stopped after %d cards: %v", imported, err)
	}
	logger.WithFields(logrus.Fields{
		"cards":    imported,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Catalog import complete")
}

// upserter is the slice of PostgresStore the importer needs.
type upserter interface {
	Upsert(ctx context.Context, cards []models.Card) (int, error)
}

// importCards streams a JSON array of cards and flushes them in batches. Names seen
// earlier in the export win, so the first printing of a card is the one mirrored.
func importCards(ctx context.Context, r io.Reader, store upserter, batchSize int, logger *logrus.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("read export: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, errors.New("export must be a JSON array of cards")
	}

	seen := make(map[string]bool)
	batch := make([]models.Card, 0, batchSize)
	imported := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.Upsert(ctx, batch)
		if err != nil {
			return err
		}
		imported += n
		logger.Debugf("Flushed %d cards (%d total)", n, imported)
		batch = batch[:0]
		return nil
	}

	for dec.More() {
		var card models.Card
		if err := dec.Decode(&card); err != nil {
			return imported, fmt.Errorf("decode card %d: %w", imported+len(batch)+1, err)
		}
		key := models.NameKey(card.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		batch = append(batch, card)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return imported, err
			}
		}
	}
	if err := flush(); err != nil {
		return imported, err
	}
	return imported, nil
}
