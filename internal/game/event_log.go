// internal/game/event_log.go
package game

// EventLog is the append-only history of accepted events on top of a base state.
// The current state is maintained incrementally and always equals Rebuild().
//
// The base is the canonical initial state, or the snapshot most recently installed
// with Reset (an Init from the host, or a freshly loaded deck).
type EventLog struct {
	reducer *Reducer
	replay  *Reducer
	base    *State
	events  []Event
	current *State
}

// NewEventLog starts an empty log on base. A nil base means NewState(DefaultStartingLife).
func NewEventLog(r *Reducer, base *State) *EventLog {
	l := &EventLog{reducer: r, replay: r.Quiet()}
	l.Reset(base)
	return l
}

// Reset discards the history and installs base as the new replay origin.
func (l *EventLog) Reset(base *State) {
	if base == nil {
		base = NewState(DefaultStartingLife)
	}
	l.base = base.Clone()
	l.base.normalize(DefaultStartingLife)
	l.events = nil
	l.current = l.base.Clone()
}

// Append records ev and folds it into the current state. It always succeeds.
// Unseeded shuffles are stamped with a seed first; the returned event is the one
// that was recorded and is what must be relayed to other peers.
// Init is not a log entry and is returned unrecorded.
func (l *EventLog) Append(ev Event) (Event, *State) {
	switch e := ev.(type) {
	case Init:
		return ev, l.Current()
	case ShuffleDeck:
		if e.Seed == 0 {
			e.Seed = l.reducer.NewSeed()
			ev = e
		}
	}
	l.events = append(l.events, ev)
	l.current = l.reducer.Apply(l.current, ev)
	return ev, l.Current()
}

// Current returns a copy of the incrementally maintained state.
func (l *EventLog) Current() *State {
	return l.current.Clone()
}

// Base returns a copy of the replay origin.
func (l *EventLog) Base() *State {
	return l.base.Clone()
}

// Rebuild replays the full history from the base without notifying observers.
func (l *EventLog) Rebuild() *State {
	return l.RebuildPrefix(len(l.events))
}

// RebuildPrefix replays the first n events. n is clamped to the log length.
func (l *EventLog) RebuildPrefix(n int) *State {
	if n > len(l.events) {
		n = len(l.events)
	}
	s := l.base.Clone()
	for _, ev := range l.events[:n] {
		s = l.replay.Apply(s, ev)
	}
	return s
}

// Events returns a copy of the recorded history.
func (l *EventLog) Events() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len is the number of recorded events.
func (l *EventLog) Len() int { return len(l.events) }
