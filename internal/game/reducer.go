// internal/game/reducer.go
package game

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jason-s-yu/tablesync/internal/models"
)

// SearchResult is the observational outcome of a SearchDeck event.
type SearchResult struct {
	Query   string   `json:"query"`
	Matches []string `json:"matches"`
}

// String renders the result the way the table surface shows it.
func (r SearchResult) String() string {
	if len(r.Matches) == 0 {
		return "No cards found."
	}
	return "Found: " + strings.Join(r.Matches, ", ")
}

// Notifier receives search results. It must not call back into the reducer.
type Notifier interface {
	SearchResult(SearchResult)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(SearchResult)

func (f NotifierFunc) SearchResult(r SearchResult) { f(r) }

// Reducer folds events onto states. Apply never mutates its input and never fails:
// unmet preconditions (empty deck, empty hand, unknown zone) leave the state unchanged.
//
// A Reducer is not safe for concurrent use; the session drives it from a single goroutine.
type Reducer struct {
	rng      *rand.Rand
	identity Identity
	notifier Notifier
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithRand substitutes the randomness used for unseeded shuffles and for minting seeds.
func WithRand(src rand.Source) Option {
	return func(r *Reducer) { r.rng = rand.New(src) }
}

// WithSeed is WithRand over a PCG source with the given seed.
func WithSeed(seed uint64) Option {
	return WithRand(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WithIdentity selects how cards are matched for MoveCard.
func WithIdentity(id Identity) Option {
	return func(r *Reducer) { r.identity = id }
}

// WithNotifier receives SearchDeck results.
func WithNotifier(n Notifier) Option {
	return func(r *Reducer) { r.notifier = n }
}

// NewReducer builds a reducer. Without WithRand it seeds itself from the clock.
func NewReducer(opts ...Option) *Reducer {
	r := &Reducer{identity: IdentityName}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		now := uint64(time.Now().UnixNano())
		r.rng = rand.New(rand.NewPCG(now, now>>17))
	}
	return r
}

// Identity returns the card identity mode.
func (r *Reducer) Identity() Identity { return r.identity }

// Quiet returns a reducer sharing this one's configuration but without a notifier.
// Replays use it so that rebuilding a log does not re-announce old searches.
func (r *Reducer) Quiet() *Reducer {
	cp := *r
	cp.notifier = nil
	return &cp
}

// NewSeed draws a non-zero shuffle seed.
func (r *Reducer) NewSeed() int64 {
	for {
		if s := r.rng.Int64(); s != 0 {
			return s
		}
	}
}

// Apply returns the state after ev. The input state is left untouched.
// Init yields a copy of the carried snapshot.
func (r *Reducer) Apply(s *State, ev Event) *State {
	a := &application{r: r, s: s.Clone()}
	ev.accept(a)
	return a.s
}

// Search lists, in deck order, the names of deck cards containing query (case-insensitive).
func Search(s *State, query string) []string {
	q := strings.ToLower(query)
	matches := []string{}
	for _, c := range s.Deck() {
		if strings.Contains(strings.ToLower(c.Name), q) {
			matches = append(matches, c.Name)
		}
	}
	return matches
}

// application applies one event to a private copy of the state.
type application struct {
	r *Reducer
	s *State
}

func (a *application) visitInit(e Init) {
	if e.State == nil {
		return
	}
	a.s = e.State.Clone()
	a.s.normalize(DefaultStartingLife)
}

func (a *application) visitDrawCard(DrawCard) {
	deck := a.s.Zones[models.ZoneDeck]
	if len(deck) == 0 {
		return
	}
	top := deck[0]
	a.s.Zones[models.ZoneDeck] = deck[1:]
	a.s.Zones[models.ZoneHand] = append(a.s.Zones[models.ZoneHand], top)
}

func (a *application) visitShuffleDeck(e ShuffleDeck) {
	rng := a.r.rng
	if e.Seed != 0 {
		seed := uint64(e.Seed)
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	deck := a.s.Zones[models.ZoneDeck]
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

func (a *application) visitSearchDeck(e SearchDeck) {
	if a.r.notifier == nil {
		return
	}
	a.r.notifier.SearchResult(SearchResult{Query: e.Query, Matches: Search(a.s, e.Query)})
}

func (a *application) visitPutUnderDeck(PutUnderDeck) {
	hand := a.s.Zones[models.ZoneHand]
	if len(hand) == 0 {
		return
	}
	last := hand[len(hand)-1]
	a.s.Zones[models.ZoneHand] = hand[:len(hand)-1]
	a.s.Zones[models.ZoneDeck] = append(a.s.Zones[models.ZoneDeck], last.WithPosition(nil))
}

func (a *application) visitMoveCard(e MoveCard) {
	if !e.To.Valid() {
		return
	}
	// Scan every zone, not just the claimed origin, so a stale origin can never
	// leave the card in two places.
	for _, z := range models.Zones {
		kept := a.s.Zones[z][:0]
		for _, c := range a.s.Zones[z] {
			if !a.r.identity.Same(e.Card, c) {
				kept = append(kept, c)
			}
		}
		a.s.Zones[z] = kept
	}
	var pos *models.Position
	if e.To.FreelyPositioned() {
		pos = e.Position
	}
	a.s.Zones[e.To] = append(a.s.Zones[e.To], e.Card.WithPosition(pos))
}
