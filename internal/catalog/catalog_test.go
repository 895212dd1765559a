package catalog

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tablesync/internal/decklist"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// countingFetcher serves cards from a fixed table and records every lookup.
type countingFetcher struct {
	mu    sync.Mutex
	known map[string]models.Card
	calls []string
	fail  error
}

func newCountingFetcher(names ...string) *countingFetcher {
	f := &countingFetcher{known: make(map[string]models.Card)}
	for _, n := range names {
		f.known[models.NameKey(n)] = models.Card{Name: n, CatalogID: "id-" + n}
	}
	return f
}

func (f *countingFetcher) FetchCard(_ context.Context, name string) (models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.fail != nil {
		return models.Card{}, f.fail
	}
	c, ok := f.known[models.NameKey(name)]
	if !ok {
		return models.Card{}, ErrCardNotFound
	}
	return c, nil
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestScryfallClientFetchesByFuzzyName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/named", r.URL.Path)
		assert.Equal(t, "sol ring", r.URL.Query().Get("fuzzy"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"object": "card",
			"id": "abc",
			"name": "Sol Ring",
			"mana_cost": "{1}",
			"type_line": "Artifact",
			"scryfall_uri": "https://scryfall.com/card/x",
			"image_uris": {"small": "https://img/small.jpg"}
		}`)
	}))
	defer srv.Close()

	c := NewScryfallClient(srv.URL+"/", time.Second, quietLogger())
	card, err := c.FetchCard(context.Background(), "sol ring")
	require.NoError(t, err)
	assert.Equal(t, "Sol Ring", card.Name)
	assert.Equal(t, "abc", card.CatalogID)
	assert.Equal(t, "https://img/small.jpg", card.SmallImage())
	assert.Equal(t, uuid.Nil, card.InstanceID)
	object, ok := card.Extra("object")
	require.True(t, ok)
	assert.JSONEq(t, `"card"`, string(object))
}

func TestScryfallClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"object":"error","code":"not_found","details":"No cards found"}`)
	}))
	defer srv.Close()

	_, err := NewScryfallClient(srv.URL, time.Second, quietLogger()).FetchCard(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestScryfallClientReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"object":"error","code":"rate_limited","details":"slow down"}`)
	}))
	defer srv.Close()

	_, err := NewScryfallClient(srv.URL, time.Second, quietLogger()).FetchCard(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCardNotFound)
	assert.Contains(t, err.Error(), "slow down")
}

func TestCacheFetchesEachNameOnce(t *testing.T) {
	src := newCountingFetcher("Island")
	c := NewCache(src, nil, "", quietLogger())

	for _, n := range []string{"Island", "island", " ISLAND "} {
		card, err := c.FetchCard(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, "Island", card.Name)
	}
	assert.Equal(t, 1, src.count())
	assert.Equal(t, 1, c.Len())
}

func TestCacheDoesNotRememberFailures(t *testing.T) {
	src := newCountingFetcher()
	c := NewCache(src, nil, "", quietLogger())

	_, err := c.FetchCard(context.Background(), "Island")
	assert.ErrorIs(t, err, ErrCardNotFound)
	src.known["island"] = models.Card{Name: "Island"}
	_, err = c.FetchCard(context.Background(), "Island")
	assert.NoError(t, err)
	assert.Equal(t, 2, src.count())
}

func TestCacheSharesEntriesThroughRedis(t *testing.T) {
	addr := os.Getenv("TABLESYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TABLESYNC_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer rdb.Close()

	prefix := "tablesync-test:" + uuid.NewString() + ":"
	src := newCountingFetcher("Forest")
	_, err = NewCache(src, rdb, prefix, quietLogger()).FetchCard(ctx, "Forest")
	require.NoError(t, err)

	// a second process with a cold memory cache is served from redis
	card, err := NewCache(src, rdb, prefix, quietLogger()).FetchCard(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, "Forest", card.Name)
	assert.Equal(t, 1, src.count())
	rdb.Del(ctx, prefix+"forest")
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	url := os.Getenv("TABLESYNC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TABLESYNC_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPostgresStore(pool, quietLogger())
	require.NoError(t, store.EnsureSchema(ctx))

	name := "Test Card " + uuid.NewString()
	n, err := store.Upsert(ctx, []models.Card{{Name: name, TypeLine: "Artifact", InstanceID: uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	defer pool.Exec(ctx, `DELETE FROM catalog_cards WHERE name_key = $1`, models.NameKey(name))

	card, err := store.FetchCard(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Artifact", card.TypeLine)
	assert.Equal(t, uuid.Nil, card.InstanceID)

	_, err = store.FetchCard(ctx, "missing "+uuid.NewString())
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestChainFallsThrough(t *testing.T) {
	mirror := newCountingFetcher("Island")
	remote := newCountingFetcher("Island", "Forest")
	f := Chain(mirror, nil, remote)

	card, err := f.FetchCard(context.Background(), "Island")
	require.NoError(t, err)
	assert.Equal(t, "Island", card.Name)
	assert.Equal(t, 0, remote.count())

	card, err = f.FetchCard(context.Background(), "Forest")
	require.NoError(t, err)
	assert.Equal(t, "Forest", card.Name)
	assert.Equal(t, 1, remote.count())

	_, err = f.FetchCard(context.Background(), "Plains")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestChainReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	down := newCountingFetcher()
	down.fail = boom

	_, err := Chain(newCountingFetcher(), down).FetchCard(context.Background(), "Island")
	assert.ErrorIs(t, err, boom)

	_, err = Chain().FetchCard(context.Background(), "Island")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestLoaderExpandsQuantitiesWithDistinctInstances(t *testing.T) {
	src := newCountingFetcher("Island", "Sol Ring")
	l := NewLoader(src, 0, quietLogger())

	cards, err := l.Load(context.Background(), []decklist.Entry{{Quantity: 3, Name: "Island"}, {Quantity: 1, Name: "Sol Ring"}})
	require.NoError(t, err)
	require.Len(t, cards, 4)

	names := make([]string, len(cards))
	seen := map[uuid.UUID]bool{}
	for i, c := range cards {
		names[i] = c.Name
		assert.NotEqual(t, uuid.Nil, c.InstanceID)
		assert.Nil(t, c.Position)
		seen[c.InstanceID] = true
	}
	assert.Equal(t, []string{"Island", "Island", "Island", "Sol Ring"}, names)
	assert.Len(t, seen, 4)
	assert.Equal(t, 2, src.count())
}

func TestLoaderHaltsOnFirstFailure(t *testing.T) {
	src := newCountingFetcher("Island", "Forest")
	l := NewLoader(src, 0, quietLogger())

	cards, err := l.Load(context.Background(), []decklist.Entry{
		{Quantity: 2, Name: "Island"},
		{Quantity: 1, Name: "Not A Card"},
		{Quantity: 1, Name: "Forest"},
	})
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Len(t, cards, 2)
	assert.Equal(t, []string{"Island", "Not A Card"}, src.calls)
}

func TestLoaderRejectsOutOfRangeQuantity(t *testing.T) {
	src := newCountingFetcher("Island", "Forest")
	l := NewLoader(src, 0, quietLogger())

	cards, err := l.Load(context.Background(), []decklist.Entry{
		{Quantity: 1, Name: "Forest"},
		{Quantity: math.MaxInt, Name: "Island"},
	})
	assert.ErrorIs(t, err, decklist.ErrBadQuantity)
	assert.Len(t, cards, 1)
	assert.Equal(t, []string{"Forest"}, src.calls)

	_, err = l.Load(context.Background(), []decklist.Entry{{Quantity: -3, Name: "Island"}})
	assert.ErrorIs(t, err, decklist.ErrBadQuantity)
}

func TestLoaderWaitsBetweenEntries(t *testing.T) {
	src := newCountingFetcher("A", "B", "C")
	l := NewLoader(src, 20*time.Millisecond, quietLogger())

	start := time.Now()
	_, err := l.Load(context.Background(), []decklist.Entry{{Quantity: 1, Name: "A"}, {Quantity: 1, Name: "B"}, {Quantity: 1, Name: "C"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLoaderStopsOnCancel(t *testing.T) {
	src := newCountingFetcher("A", "B")
	l := NewLoader(src, time.Hour, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	cards, err := l.Load(ctx, []decklist.Entry{{Quantity: 1, Name: "A"}, {Quantity: 1, Name: "B"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, cards, 1)
}
