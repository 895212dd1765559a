// internal/game/state.go
package game

import (
	"github.com/jason-s-yu/tablesync/internal/models"
)

// DefaultStartingLife is the life total every seat starts with.
const DefaultStartingLife = 40

// DefaultTurnPhase is the label a fresh table starts on. The phase is advisory only.
const DefaultTurnPhase = "Untap"

// State is the shared table document replicated across peers.
// Every player slot and every zone is always present; mutation goes through the Reducer.
type State struct {
	Players   map[models.PlayerID]models.Player `json:"players"`
	Zones     map[models.Zone][]models.Card     `json:"zones"`
	TurnPhase string                            `json:"turnPhases"`
}

// NewState builds the canonical initial state: all seats at startingLife, all zones empty.
// The deck is populated afterwards by the deck loader.
func NewState(startingLife int) *State {
	s := &State{
		Players:   make(map[models.PlayerID]models.Player, len(models.PlayerIDs)),
		Zones:     make(map[models.Zone][]models.Card, len(models.Zones)),
		TurnPhase: DefaultTurnPhase,
	}
	for _, id := range models.PlayerIDs {
		s.Players[id] = models.Player{Life: startingLife}
	}
	for _, z := range models.Zones {
		s.Zones[z] = []models.Card{}
	}
	return s
}

// Clone returns a deep copy. Card values are copied; catalog sub-objects are shared
// because nothing mutates them.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Players:   make(map[models.PlayerID]models.Player, len(s.Players)),
		Zones:     make(map[models.Zone][]models.Card, len(s.Zones)),
		TurnPhase: s.TurnPhase,
	}
	for id, p := range s.Players {
		out.Players[id] = p
	}
	for z, cards := range s.Zones {
		cp := make([]models.Card, len(cards))
		for i, c := range cards {
			cp[i] = c.WithPosition(c.Position)
		}
		out.Zones[z] = cp
	}
	return out
}

// normalize fills in any seat or zone missing from a snapshot received off the wire.
func (s *State) normalize(startingLife int) {
	if s.Players == nil {
		s.Players = make(map[models.PlayerID]models.Player, len(models.PlayerIDs))
	}
	for _, id := range models.PlayerIDs {
		if _, ok := s.Players[id]; !ok {
			s.Players[id] = models.Player{Life: startingLife}
		}
	}
	if s.Zones == nil {
		s.Zones = make(map[models.Zone][]models.Card, len(models.Zones))
	}
	for _, z := range models.Zones {
		if s.Zones[z] == nil {
			s.Zones[z] = []models.Card{}
		}
	}
}

// Deck returns the deck zone.
func (s *State) Deck() []models.Card { return s.Zones[models.ZoneDeck] }

// Hand returns the hand zone.
func (s *State) Hand() []models.Card { return s.Zones[models.ZoneHand] }

// ZonesOf lists, in fixed zone order, every zone holding a card that matches c under id.
// A zone is listed once per matching card, so a duplicated card shows up twice.
func (s *State) ZonesOf(c models.Card, id Identity) []models.Zone {
	var found []models.Zone
	for _, z := range models.Zones {
		for _, other := range s.Zones[z] {
			if id.Same(c, other) {
				found = append(found, z)
			}
		}
	}
	return found
}

// Names returns the card names of a zone in order.
func (s *State) Names(z models.Zone) []string {
	cards := s.Zones[z]
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names
}
