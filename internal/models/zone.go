// internal/models/zone.go
package models

// Zone names a container of cards on the table. The string values are the wire names.
type Zone string

const (
	ZoneCommand     Zone = "commandZone"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exiledZone"
	ZoneDeck        Zone = "deck"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
)

// Zones lists every zone in a fixed order. Iteration over zones always uses this order.
var Zones = []Zone{ZoneCommand, ZoneGraveyard, ZoneExile, ZoneDeck, ZoneHand, ZoneBattlefield}

// Valid reports whether z is one of the fixed zones.
func (z Zone) Valid() bool {
	for _, known := range Zones {
		if z == known {
			return true
		}
	}
	return false
}

// FreelyPositioned reports whether cards in z keep an x/y placement.
func (z Zone) FreelyPositioned() bool {
	return z == ZoneBattlefield || z == ZoneHand
}

// FaceDown reports whether cards in z are hidden from view.
func (z Zone) FaceDown() bool {
	return z == ZoneDeck
}
