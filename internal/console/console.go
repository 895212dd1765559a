// internal/console/console.go
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jason-s-yu/tablesync/internal/decklist"
	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/sirupsen/logrus"
)

// Table is the session surface the console drives.
type Table interface {
	Submit(ctx context.Context, ev game.Event) error
	Snapshot(ctx context.Context) (*game.State, error)
	LoadDeck(ctx context.Context, cards []models.Card) error
}

// DeckLoader resolves deck list entries into cards.
type DeckLoader interface {
	Load(ctx context.Context, entries []decklist.Entry) ([]models.Card, error)
}

const helpText = `commands:
  draw                        draw the top card of the deck
  shuffle                     shuffle the deck
  search <text>               list deck cards whose name contains text
  under                       put the last card in hand on the bottom of the deck
  move <zone> [x,y] <card>    move a card to a zone (position only on battlefield/hand)
  state                       print life totals and zone contents
  load <file>                 load a deck list file into the deck
  help                        show this message
  quit                        leave the table`

var coords = regexp.MustCompile(`^(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)$`)

// ErrQuit is returned by Run when the user asks to leave the table.
var ErrQuit = errors.New("quit")

// Console is a line-oriented stand-in for the table UI. It turns typed commands into
// local events and prints search results as they happen.
type Console struct {
	table  Table
	loader DeckLoader
	logger *logrus.Logger

	mu  sync.Mutex
	out io.Writer
}

// New builds a console writing to out. loader may be nil, which disables `load`.
func New(table Table, loader DeckLoader, out io.Writer, logger *logrus.Logger) *Console {
	return &Console{table: table, loader: loader, out: out, logger: logger}
}

// SearchResult prints a search outcome. It makes the console a game.Notifier.
func (c *Console) SearchResult(r game.SearchResult) {
	c.printf("search %q: %s\n", r.Query, r)
}

// Run reads commands from in until EOF, `quit` or ctx is done. Quitting returns ErrQuit;
// EOF and cancellation return nil.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := c.Exec(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				if ctx.Err() != nil {
					return nil
				}
				c.printf("error: %v\n", err)
			}
		}
	}
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c.logger.WithField("command", cmd).Debug("console command")

	switch cmd {
	case "draw":
		return c.table.Submit(ctx, game.DrawCard{})
	case "shuffle":
		return c.table.Submit(ctx, game.ShuffleDeck{})
	case "search":
		if len(args) == 0 {
			return errors.New("usage: search <text>")
		}
		return c.table.Submit(ctx, game.SearchDeck{Query: strings.Join(args, " ")})
	case "under":
		return c.table.Submit(ctx, game.PutUnderDeck{})
	case "move":
		return c.move(ctx, args)
	case "state":
		return c.printState(ctx)
	case "load":
		if len(args) == 0 {
			return errors.New("usage: load <file>")
		}
		return c.LoadFile(ctx, strings.Join(args, " "))
	case "help", "?":
		c.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *Console) move(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: move <zone> [x,y] <card>")
	}
	to := models.Zone(args[0])
	if !to.Valid() {
		return fmt.Errorf("unknown zone %q", args[0])
	}
	args = args[1:]

	var pos *models.Position
	if m := coords.FindStringSubmatch(args[0]); m != nil && len(args) > 1 {
		x, _ := strconv.ParseFloat(m[1], 64)
		y, _ := strconv.ParseFloat(m[2], 64)
		pos = &models.Position{X: x, Y: y}
		args = args[1:]
	}
	name := strings.Join(args, " ")

	st, err := c.table.Snapshot(ctx)
	if err != nil {
		return err
	}
	card, ok := findCard(st, name)
	if !ok {
		return fmt.Errorf("no card named %q on the table", name)
	}
	return c.table.Submit(ctx, game.MoveCard{Card: card, To: to, Position: pos})
}

// findCard returns the first card named name, looking through zones in table order.
func findCard(st *game.State, name string) (models.Card, bool) {
	key := models.NameKey(name)
	for _, z := range models.Zones {
		for _, card := range st.Zones[z] {
			if models.NameKey(card.Name) == key {
				return card, true
			}
		}
	}
	return models.Card{}, false
}

func (c *Console) printState(ctx context.Context) error {
	st, err := c.table.Snapshot(ctx)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "phase: %s\n", st.TurnPhase)

	ids := make([]string, 0, len(st.Players))
	for id := range st.Players {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  %s life %d\n", id, st.Players[models.PlayerID(id)].Life)
	}
	for _, z := range models.Zones {
		cards := st.Zones[z]
		if z.FaceDown() {
			fmt.Fprintf(&b, "  %s: %d cards\n", z, len(cards))
			continue
		}
		fmt.Fprintf(&b, "  %s (%d): %s\n", z, len(cards), strings.Join(st.Names(z), ", "))
	}
	c.printf("%s", b.String())
	return nil
}

// LoadFile reads a deck list file, resolves it through the catalog and installs it as
// the deck. Bad lines are reported and skipped. If the catalog fails part way, the
// cards resolved so far are still loaded and the error is returned.
func (c *Console) LoadFile(ctx context.Context, path string) error {
	if c.loader == nil {
		return errors.New("deck loading is not available")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read deck list: %w", err)
	}
	entries, lineErrs := decklist.Parse(string(data))
	for _, le := range lineErrs {
		c.printf("skipping %v\n", le)
	}
	if len(entries) == 0 {
		return fmt.Errorf("deck list %s has no valid entries", path)
	}

	c.printf("loading %d cards...\n", decklist.Count(entries))
	cards, loadErr := c.loader.Load(ctx, entries)
	if len(cards) > 0 {
		if err := c.table.LoadDeck(ctx, cards); err != nil {
			return err
		}
	}
	if loadErr != nil {
		return fmt.Errorf("deck partially loaded (%d cards): %w", len(cards), loadErr)
	}
	c.printf("deck loaded: %d cards\n", len(cards))
	return nil
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

var _ game.Notifier = (*Console)(nil)
