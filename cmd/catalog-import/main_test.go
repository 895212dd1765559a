package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	batches [][]string
	fail    error
}

func (s *recordingStore) Upsert(_ context.Context, cards []models.Card) (int, error) {
	if s.fail != nil {
		return 0, s.fail
	}
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	s.batches = append(s.batches, names)
	return len(cards), nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const export = `[
	{"id": "1", "name": "Island", "type_line": "Basic Land"},
	{"id": "2", "name": "Forest"},
	{"id": "3", "name": "island"},
	{"id": "4", "name": "Sol Ring"},
	{"id": "5", "name": ""}
]`

func TestImportBatchesAndDeduplicates(t *testing.T) {
	store := &recordingStore{}
	n, err := importCards(context.Background(), strings.NewReader(export), store, 2, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][]string{{"Island", "Forest"}, {"Sol Ring"}}, store.batches)
}

func TestImportRejectsNonArray(t *testing.T) {
	_, err := importCards(context.Background(), strings.NewReader(`{"name":"Island"}`), &recordingStore{}, 10, quietLogger())
	assert.Error(t, err)
}

func TestImportStopsOnStoreError(t *testing.T) {
	boom := errors.New("boom")
	n, err := importCards(context.Background(), strings.NewReader(export), &recordingStore{fail: boom}, 2, quietLogger())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}
