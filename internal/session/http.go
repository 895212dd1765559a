// internal/session/http.go
package session

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/jason-s-yu/tablesync/internal/middleware"
	"github.com/jason-s-yu/tablesync/internal/transport"
)

// Paths served by Handler.
const (
	PathSocket  = "/table/ws"
	PathState   = "/table/state"
	PathHistory = "/table/history"
)

// Handler serves the peer websocket endpoint plus read-only JSON views of the replica.
func (s *Session) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(PathSocket, transport.NewHTTPHandler(s.conns, s.base))
	mux.HandleFunc("GET "+PathState, s.handleState)
	mux.HandleFunc("GET "+PathHistory, s.handleHistory)
	return middleware.LogMiddleware(s.base)(mux)
}

func (s *Session) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st)
}

// handleHistory renders the log in wire form, one message per entry.
func (s *Session) handleHistory(w http.ResponseWriter, r *http.Request) {
	evs, err := s.History(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	out := make([]json.RawMessage, 0, len(evs))
	for _, ev := range evs {
		data, err := game.Encode(ev)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, data)
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
