// internal/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultCachePrefix namespaces catalog keys in a shared Redis.
const DefaultCachePrefix = "tablesync:card:"

// ConnectRedis opens a client and verifies it answers a PING.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Cache memoizes a Fetcher by normalized card name. Catalog data never changes for a
// given name, so entries do not expire. The in-process map is always used; Redis, when
// configured, shares entries across processes and restarts.
type Cache struct {
	next   Fetcher
	rdb    *redis.Client
	prefix string
	logger *logrus.Logger

	mu    sync.RWMutex
	cards map[string]models.Card
}

// NewCache wraps next. rdb may be nil.
func NewCache(next Fetcher, rdb *redis.Client, prefix string, logger *logrus.Logger) *Cache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &Cache{
		next:   next,
		rdb:    rdb,
		prefix: prefix,
		logger: logger,
		cards:  make(map[string]models.Card),
	}
}

// FetchCard serves from memory, then Redis, then the wrapped fetcher.
// Redis failures are logged and treated as misses.
func (c *Cache) FetchCard(ctx context.Context, name string) (models.Card, error) {
	key := models.NameKey(name)

	c.mu.RLock()
	card, ok := c.cards[key]
	c.mu.RUnlock()
	if ok {
		return card, nil
	}

	if card, ok := c.fromRedis(ctx, key); ok {
		c.remember(key, card)
		return card, nil
	}

	card, err := c.next.FetchCard(ctx, name)
	if err != nil {
		return models.Card{}, err
	}
	card = catalogOnly(card)
	c.remember(key, card)
	c.toRedis(ctx, key, card)
	return card, nil
}

// Len is the number of cards held in memory.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

func (c *Cache) remember(key string, card models.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards[key] = card
}

func (c *Cache) fromRedis(ctx context.Context, key string) (models.Card, bool) {
	if c.rdb == nil {
		return models.Card{}, false
	}
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithField("card", key).Warnf("redis get failed: %v", err)
		}
		return models.Card{}, false
	}
	var card models.Card
	if err := json.Unmarshal(data, &card); err != nil {
		c.logger.WithField("card", key).Warnf("discarding unreadable cache entry: %v", err)
		return models.Card{}, false
	}
	return card, true
}

func (c *Cache) toRedis(ctx context.Context, key string, card models.Card) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(card)
	if err != nil {
		c.logger.WithField("card", key).Warnf("failed to marshal card for cache: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, 0).Err(); err != nil {
		c.logger.WithField("card", key).Warnf("redis set failed: %v", err)
	}
}

// catalogOnly strips the table-local fields so cached entries are shareable.
func catalogOnly(card models.Card) models.Card {
	card.Position = nil
	card.InstanceID = uuid.Nil
	return card
}
