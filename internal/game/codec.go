// internal/game/codec.go
package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/tablesync/internal/models"
)

var (
	// ErrMalformedMessage is returned for payloads that are not a valid event message.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownEventType is returned for a well-formed message with an unrecognized type.
	ErrUnknownEventType = errors.New("unknown event type")
)

// message is the JSON envelope exchanged between peers.
type message struct {
	Type     EventType        `json:"type"`
	State    *State           `json:"state,omitempty"`
	Query    string           `json:"query,omitempty"`
	Card     *models.Card     `json:"card,omitempty"`
	To       models.Zone      `json:"to,omitempty"`
	Position *models.Position `json:"position,omitempty"`
	Seed     int64            `json:"seed,omitempty"`
}

// Encode marshals an event into its wire message.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: %w: nil event", ErrMalformedMessage)
	}
	enc := &encoder{}
	ev.accept(enc)
	data, err := json.Marshal(enc.msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return data, nil
}

// Decode parses a wire message. Unknown types yield ErrUnknownEventType so callers can
// ignore them; anything else that cannot be turned into an event yields ErrMalformedMessage.
func Decode(data []byte) (Event, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch msg.Type {
	case EventInit:
		if msg.State == nil {
			return nil, fmt.Errorf("%w: init without state", ErrMalformedMessage)
		}
		msg.State.normalize(DefaultStartingLife)
		return Init{State: msg.State}, nil
	case EventDrawCard:
		return DrawCard{}, nil
	case EventShuffleDeck:
		return ShuffleDeck{Seed: msg.Seed}, nil
	case EventSearchDeck:
		return SearchDeck{Query: msg.Query}, nil
	case EventPutUnderDeck:
		return PutUnderDeck{}, nil
	case EventMoveCard:
		if msg.Card == nil {
			return nil, fmt.Errorf("%w: moveCard without card", ErrMalformedMessage)
		}
		if !msg.To.Valid() {
			return nil, fmt.Errorf("%w: moveCard to unknown zone %q", ErrMalformedMessage, msg.To)
		}
		return MoveCard{Card: *msg.Card, To: msg.To, Position: msg.Position}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, msg.Type)
	}
}

type encoder struct {
	msg message
}

func (e *encoder) visitInit(ev Init) {
	e.msg = message{Type: EventInit, State: ev.State}
}

func (e *encoder) visitDrawCard(DrawCard) {
	e.msg = message{Type: EventDrawCard}
}

func (e *encoder) visitShuffleDeck(ev ShuffleDeck) {
	e.msg = message{Type: EventShuffleDeck, Seed: ev.Seed}
}

func (e *encoder) visitSearchDeck(ev SearchDeck) {
	e.msg = message{Type: EventSearchDeck, Query: ev.Query}
}

func (e *encoder) visitPutUnderDeck(PutUnderDeck) {
	e.msg = message{Type: EventPutUnderDeck}
}

func (e *encoder) visitMoveCard(ev MoveCard) {
	card := ev.Card
	e.msg = message{Type: EventMoveCard, Card: &card, To: ev.To, Position: ev.Position}
}
