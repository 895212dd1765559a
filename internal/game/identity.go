package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tablesync/internal/models"
)

// Identity decides when two cards are "the same card" for MoveCard and zone exclusivity.
type Identity int

const (
	// IdentityName treats cards with equal names as one card. Distinct copies of the
	// same card are conflated; this is the behaviour every peer must agree on by default.
	IdentityName Identity = iota
	// IdentityInstance matches on the per-copy instance id, falling back to name when
	// the moved card carries no id.
	IdentityInstance
)

// ParseIdentity maps a config value ("name" or "instance") to an Identity.
func ParseIdentity(s string) (Identity, error) {
	switch s {
	case "", "name":
		return IdentityName, nil
	case "instance", "id":
		return IdentityInstance, nil
	default:
		return IdentityName, fmt.Errorf("unknown card identity mode %q", s)
	}
}

func (i Identity) String() string {
	if i == IdentityInstance {
		return "instance"
	}
	return "name"
}

// Same reports whether candidate is the card c under this identity mode.
func (i Identity) Same(c, candidate models.Card) bool {
	if i == IdentityInstance && c.InstanceID != uuid.Nil {
		return c.InstanceID == candidate.InstanceID
	}
	return c.Name == candidate.Name
}
