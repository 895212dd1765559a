// internal/models/player.go
package models

// PlayerID is one of the fixed player slots at the table.
type PlayerID string

const (
	PlayerOne   PlayerID = "p1"
	PlayerTwo   PlayerID = "p2"
	PlayerThree PlayerID = "p3"
	PlayerFour  PlayerID = "p4"
)

// PlayerIDs lists every slot. All four are always present in a table state.
var PlayerIDs = []PlayerID{PlayerOne, PlayerTwo, PlayerThree, PlayerFour}

// Player holds the per-seat counters. Life is not clamped and may go negative.
type Player struct {
	Life int `json:"life"`
}
