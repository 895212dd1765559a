// internal/catalog/postgres.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
)

const schema = `
	CREATE TABLE IF NOT EXISTS catalog_cards (
		name_key   TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// ConnectDB opens a pool for databaseURL and pings it.
func ConnectDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// PostgresStore is a local mirror of the card catalog, keyed by normalized name.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// EnsureSchema creates the mirror table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create catalog_cards: %w", err)
	}
	return nil
}

// FetchCard looks a card up by exact (case-insensitive) name.
func (s *PostgresStore) FetchCard(ctx context.Context, name string) (models.Card, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM catalog_cards WHERE name_key = $1`,
		models.NameKey(name),
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Card{}, fmt.Errorf("catalog mirror %q: %w", name, ErrCardNotFound)
	}
	if err != nil {
		return models.Card{}, fmt.Errorf("catalog mirror %q: %w", name, err)
	}

	var card models.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return models.Card{}, fmt.Errorf("decode mirrored card %q: %w", name, err)
	}
	s.logger.WithField("card", card.Name).Debug("fetched card from catalog mirror")
	return card, nil
}

// Upsert writes cards in a single transaction and returns how many rows were written.
func (s *PostgresStore) Upsert(ctx context.Context, cards []models.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}
	q := `
		INSERT INTO catalog_cards (name_key, name, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (name_key)
		DO UPDATE SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = NOW()
	`
	written := 0
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range cards {
			data, err := json.Marshal(catalogOnly(c))
			if err != nil {
				return fmt.Errorf("marshal %q: %w", c.Name, err)
			}
			batch.Queue(q, models.NameKey(c.Name), c.Name, data)
		}
		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range cards {
			if _, err := results.Exec(); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert catalog batch: %w", err)
	}
	return written, nil
}
