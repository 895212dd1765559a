// internal/game/event.go
package game

import "github.com/jason-s-yu/tablesync/internal/models"

// EventType is the wire tag of an event.
type EventType string

const (
	EventInit         EventType = "init"
	EventDrawCard     EventType = "drawCard"
	EventShuffleDeck  EventType = "shuffleDeck"
	EventSearchDeck   EventType = "searchDeck"
	EventPutUnderDeck EventType = "putUnderDeck"
	EventMoveCard     EventType = "moveCard"
)

// Event is the closed set of table events. The unexported accept method seals the set:
// adding a variant means adding a method to visitor, which breaks every consumer until
// it handles the new variant.
type Event interface {
	Type() EventType
	accept(v visitor)
}

// visitor is implemented by every exhaustive consumer of events (reducer, encoder).
type visitor interface {
	visitInit(Init)
	visitDrawCard(DrawCard)
	visitShuffleDeck(ShuffleDeck)
	visitSearchDeck(SearchDeck)
	visitPutUnderDeck(PutUnderDeck)
	visitMoveCard(MoveCard)
}

// Init carries a full snapshot to a joining peer. It is never appended to a log or relayed.
type Init struct {
	State *State
}

// DrawCard moves the top of the deck to the end of the hand.
type DrawCard struct{}

// ShuffleDeck permutes the deck. A non-zero Seed pins the permutation so that every
// peer, and every replay, produces the same order.
type ShuffleDeck struct {
	Seed int64
}

// SearchDeck looks for deck cards whose name contains Query. It does not mutate state.
type SearchDeck struct {
	Query string
}

// PutUnderDeck moves the most recently added hand card to the bottom of the deck.
type PutUnderDeck struct{}

// MoveCard places Card at the end of To, removing every matching card from all zones first.
type MoveCard struct {
	Card     models.Card
	To       models.Zone
	Position *models.Position
}

func (Init) Type() EventType         { return EventInit }
func (DrawCard) Type() EventType     { return EventDrawCard }
func (ShuffleDeck) Type() EventType  { return EventShuffleDeck }
func (SearchDeck) Type() EventType   { return EventSearchDeck }
func (PutUnderDeck) Type() EventType { return EventPutUnderDeck }
func (MoveCard) Type() EventType     { return EventMoveCard }

func (e Init) accept(v visitor)         { v.visitInit(e) }
func (e DrawCard) accept(v visitor)     { v.visitDrawCard(e) }
func (e ShuffleDeck) accept(v visitor)  { v.visitShuffleDeck(e) }
func (e SearchDeck) accept(v visitor)   { v.visitSearchDeck(e) }
func (e PutUnderDeck) accept(v visitor) { v.visitPutUnderDeck(e) }
func (e MoveCard) accept(v visitor)     { v.visitMoveCard(e) }
