package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jason-s-yu/tablesync/internal/decklist"
	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable applies submissions with a real reducer so the console sees realistic state.
type fakeTable struct {
	reducer   *game.Reducer
	state     *game.State
	submitted []game.Event
	loaded    [][]models.Card
}

func newFakeTable(deck ...string) *fakeTable {
	st := game.NewState(40)
	for _, n := range deck {
		st.Zones[models.ZoneDeck] = append(st.Zones[models.ZoneDeck], models.Card{Name: n})
	}
	return &fakeTable{reducer: game.NewReducer(game.WithSeed(1)), state: st}
}

func (f *fakeTable) Submit(_ context.Context, ev game.Event) error {
	f.submitted = append(f.submitted, ev)
	f.state = f.reducer.Apply(f.state, ev)
	return nil
}

func (f *fakeTable) Snapshot(context.Context) (*game.State, error) { return f.state.Clone(), nil }

func (f *fakeTable) LoadDeck(_ context.Context, cards []models.Card) error {
	f.loaded = append(f.loaded, cards)
	f.state.Zones[models.ZoneDeck] = cards
	return nil
}

type fakeLoader struct {
	entries []decklist.Entry
	cards   []models.Card
	err     error
}

func (l *fakeLoader) Load(_ context.Context, entries []decklist.Entry) ([]models.Card, error) {
	l.entries = entries
	return l.cards, l.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newConsole(t *fakeTable, l DeckLoader) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(t, l, out, quietLogger()), out
}

func TestCommandsBecomeEvents(t *testing.T) {
	table := newFakeTable("Island", "Forest")
	c, _ := newConsole(table, nil)
	ctx := context.Background()

	for _, line := range []string{"draw", "shuffle", "search sol ring", "under", "", "  "} {
		require.NoError(t, c.Exec(ctx, line), line)
	}
	require.Len(t, table.submitted, 4)
	assert.Equal(t, game.DrawCard{}, table.submitted[0])
	assert.Equal(t, game.ShuffleDeck{}, table.submitted[1])
	assert.Equal(t, game.SearchDeck{Query: "sol ring"}, table.submitted[2])
	assert.Equal(t, game.PutUnderDeck{}, table.submitted[3])
}

func TestMoveLooksUpTheCardOnTheTable(t *testing.T) {
	table := newFakeTable("Sol Ring", "Island")
	c, _ := newConsole(table, nil)
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "move battlefield 10,-2.5 sol ring"))
	require.Len(t, table.submitted, 1)
	mv := table.submitted[0].(game.MoveCard)
	assert.Equal(t, "Sol Ring", mv.Card.Name)
	assert.Equal(t, models.ZoneBattlefield, mv.To)
	assert.Equal(t, &models.Position{X: 10, Y: -2.5}, mv.Position)

	require.NoError(t, c.Exec(ctx, "move graveyard Island"))
	assert.Nil(t, table.submitted[1].(game.MoveCard).Position)
	assert.Equal(t, []string{"Island"}, table.state.Names(models.ZoneGraveyard))
}

func TestMoveRejectsUnknownZoneAndCard(t *testing.T) {
	table := newFakeTable("Island")
	c, _ := newConsole(table, nil)
	ctx := context.Background()

	assert.ErrorContains(t, c.Exec(ctx, "move library Island"), "unknown zone")
	assert.ErrorContains(t, c.Exec(ctx, "move hand Black Lotus"), "no card named")
	assert.Error(t, c.Exec(ctx, "move hand"))
	assert.Empty(t, table.submitted)
}

func TestStatePrintsZones(t *testing.T) {
	table := newFakeTable("Island", "Forest")
	c, out := newConsole(table, nil)
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "draw"))
	require.NoError(t, c.Exec(ctx, "state"))
	s := out.String()
	assert.Contains(t, s, "p1 life 40")
	assert.Contains(t, s, "deck: 1 cards")
	assert.Contains(t, s, "hand (1): Island")
}

func TestSearchResultsArePrinted(t *testing.T) {
	c, out := newConsole(newFakeTable(), nil)
	c.SearchResult(game.SearchResult{Query: "x", Matches: []string{}})
	c.SearchResult(game.SearchResult{Query: "is", Matches: []string{"Island"}})
	assert.Contains(t, out.String(), "No cards found.")
	assert.Contains(t, out.String(), "Found: Island")
}

func TestLoadFileInstallsDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.txt")
	require.NoError(t, os.WriteFile(path, []byte("2, Island\nnot a line\n1, \"Borborygmos, Enraged\"\n"), 0o600))

	table := newFakeTable()
	loader := &fakeLoader{cards: []models.Card{{Name: "Island"}, {Name: "Island"}, {Name: "Borborygmos, Enraged"}}}
	c, out := newConsole(table, loader)

	require.NoError(t, c.Exec(context.Background(), "load "+path))
	assert.Equal(t, []decklist.Entry{{Quantity: 2, Name: "Island"}, {Quantity: 1, Name: "Borborygmos, Enraged"}}, loader.entries)
	require.Len(t, table.loaded, 1)
	assert.Len(t, table.loaded[0], 3)
	assert.Contains(t, out.String(), "skipping line 2")
}

func TestLoadFileKeepsPartialDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.txt")
	require.NoError(t, os.WriteFile(path, []byte("1, Island\n1, Nope\n"), 0o600))

	table := newFakeTable()
	loader := &fakeLoader{cards: []models.Card{{Name: "Island"}}, err: errors.New("card not found")}
	c, _ := newConsole(table, loader)

	err := c.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partially loaded")
	require.Len(t, table.loaded, 1)
	assert.Len(t, table.loaded[0], 1)
}

func TestRunStopsAtQuit(t *testing.T) {
	table := newFakeTable("Island")
	c, out := newConsole(table, nil)

	err := c.Run(context.Background(), strings.NewReader("draw\nbogus\nquit\ndraw\n"))
	require.ErrorIs(t, err, ErrQuit)
	assert.Len(t, table.submitted, 1)
	assert.Contains(t, out.String(), `unknown command "bogus"`)
}

func TestRunEndsAtEOF(t *testing.T) {
	c, _ := newConsole(newFakeTable(), nil)
	assert.NoError(t, c.Run(context.Background(), strings.NewReader("help\n")))
}
