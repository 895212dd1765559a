// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tablesync/internal/game"
	"github.com/jason-s-yu/tablesync/internal/models"
	"github.com/jason-s-yu/tablesync/internal/transport"
	"github.com/sirupsen/logrus"
)

// ErrSessionClosed is returned by calls made after the session loop has stopped.
var ErrSessionClosed = errors.New("session closed")

// Config carries everything a session needs besides its role.
type Config struct {
	StartingLife int
	Identity     game.Identity
	// QueueSize bounds the number of pending jobs (local submissions and inbound messages).
	QueueSize int
	Transport transport.Options
	// Notifier receives SearchDeck results, local and remote. Optional.
	Notifier game.Notifier
	// ReducerOptions are appended after the identity and notifier options; tests use
	// them to pin randomness.
	ReducerOptions []game.Option
	Logger         *logrus.Logger
}

// Session is one process's replica of the table. All state lives behind a single job
// queue drained by Run, so events are applied in exactly the order they are dequeued.
type Session struct {
	ID uuid.UUID

	role   Role
	log    *game.EventLog
	conns  *transport.Manager
	base   *logrus.Logger
	logger *logrus.Entry

	jobs     chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

// New builds a session for role. Call Run before anything else can make progress.
func New(role Role, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.StartingLife <= 0 {
		cfg.StartingLife = game.DefaultStartingLife
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	s := &Session{
		ID:      uuid.New(),
		role:    role,
		jobs:    make(chan func(), cfg.QueueSize),
		stopped: make(chan struct{}),
		base:    cfg.Logger,
	}
	s.logger = cfg.Logger.WithFields(logrus.Fields{
		"session": s.ID,
		"role":    role.Name(),
	})

	opts := []game.Option{
		game.WithIdentity(cfg.Identity),
		game.WithNotifier(s.searchNotifier(cfg.Notifier)),
	}
	opts = append(opts, cfg.ReducerOptions...)
	s.log = game.NewEventLog(game.NewReducer(opts...), game.NewState(cfg.StartingLife))
	s.conns = transport.NewManager(s, cfg.Logger, cfg.Transport)
	return s
}

// Role returns the session's fixed role.
func (s *Session) Role() Role { return s.role }

// Connections exposes the live channel set, e.g. to mount the websocket endpoint.
func (s *Session) Connections() *transport.Manager { return s.conns }

// Run drains the job queue until ctx is done, then closes every channel.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started")
	defer func() {
		s.stopOnce.Do(func() { close(s.stopped) })
		s.conns.CloseAll("session ended")
		s.logger.Info("session stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.jobs:
			job()
		}
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.jobs <- job:
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting for it. Jobs posted from one goroutine run in order.
func (s *Session) post(fn func()) {
	select {
	case s.jobs <- fn:
	case <-s.stopped:
	}
}

// Submit applies a locally generated event and forwards it according to the role.
// Init cannot be submitted; snapshots only travel host to client.
func (s *Session) Submit(ctx context.Context, ev game.Event) error {
	if ev == nil {
		return fmt.Errorf("submit: nil event")
	}
	if ev.Type() == game.EventInit {
		return fmt.Errorf("submit %s: snapshots are sent by the host, not submitted", ev.Type())
	}
	var err error
	doErr := s.do(ctx, func() { err = s.applyLocal(ev) })
	if doErr != nil {
		return doErr
	}
	return err
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot(ctx context.Context) (*game.State, error) {
	var st *game.State
	if err := s.do(ctx, func() { st = s.log.Current() }); err != nil {
		return nil, err
	}
	return st, nil
}

// History returns the events accepted since the last snapshot or deck load.
func (s *Session) History(ctx context.Context) ([]game.Event, error) {
	var evs []game.Event
	if err := s.do(ctx, func() { evs = s.log.Events() }); err != nil {
		return nil, err
	}
	return evs, nil
}

// LoadDeck replaces the deck and starts a fresh history on the resulting state.
// A host re-bootstraps all connected peers; a client only changes its own replica.
func (s *Session) LoadDeck(ctx context.Context, cards []models.Card) error {
	deck := make([]models.Card, len(cards))
	for i, c := range cards {
		deck[i] = c.WithPosition(nil)
	}
	return s.do(ctx, func() {
		base := s.log.Current()
		base.Zones[models.ZoneDeck] = deck
		s.log.Reset(base)
		s.logger.WithField("cards", len(deck)).Info("deck loaded")
		s.role.deckLoaded(s)
	})
}

// Attach serves one already-established channel until it closes.
func (s *Session) Attach(ctx context.Context, conn transport.Conn) error {
	return s.conns.Serve(ctx, conn)
}

// Join dials a host and serves the channel until it closes.
func (s *Session) Join(ctx context.Context, url string) error {
	conn, err := transport.Dial(ctx, url)
	if err != nil {
		return err
	}
	s.logger.WithField("url", url).Info("joined host")
	return s.Attach(ctx, conn)
}

// PeerOpened registers p and lets the role greet it, atomically with respect to events:
// a new peer either receives a snapshot that already contains an event or receives the
// event itself, never neither.
func (s *Session) PeerOpened(p *transport.Peer) error {
	return s.do(context.Background(), func() {
		s.conns.Add(p)
		s.role.peerOpened(s, p)
	})
}

// PeerMessage queues an inbound message. Messages from one peer are applied in arrival order.
func (s *Session) PeerMessage(p *transport.Peer, data []byte) {
	s.post(func() { s.applyRemote(p, data) })
}

// PeerClosed queues the role's cleanup for p.
func (s *Session) PeerClosed(p *transport.Peer) {
	s.post(func() { s.role.peerClosed(s, p) })
}

func (s *Session) applyLocal(ev game.Event) error {
	recorded, _ := s.log.Append(ev)
	data, err := game.Encode(recorded)
	if err != nil {
		return err
	}
	s.logger.WithField("event", recorded.Type()).Debug("applied local event")
	s.role.forwardLocal(s, data)
	return nil
}

func (s *Session) applyRemote(p *transport.Peer, data []byte) {
	entry := s.logger.WithField("peer", p.ID)
	ev, err := game.Decode(data)
	if err != nil {
		entry.Warnf("ignoring message: %v", err)
		return
	}

	if snap, ok := ev.(game.Init); ok {
		if !s.role.acceptsInit(p) {
			entry.Warn("ignoring snapshot from a peer that is not our host")
			return
		}
		s.log.Reset(snap.State)
		entry.Info("state replaced by host snapshot")
		return
	}
	if !s.role.acceptsEvent(p) {
		entry.WithField("event", ev.Type()).Warn("ignoring event from a peer that is not our host")
		return
	}

	recorded, _ := s.log.Append(ev)
	entry.WithField("event", recorded.Type()).Debug("applied remote event")

	out, err := game.Encode(recorded)
	if err != nil {
		entry.Errorf("failed to re-encode %s: %v", recorded.Type(), err)
		return
	}
	s.role.forwardRemote(s, out, p)
}

func (s *Session) sendInit(p *transport.Peer) {
	data, err := game.Encode(game.Init{State: s.log.Current()})
	if err != nil {
		s.logger.Errorf("failed to encode snapshot: %v", err)
		return
	}
	if err := s.conns.SendTo(p, data); err != nil {
		s.logger.WithField("peer", p.ID).Warnf("failed to send snapshot: %v", err)
	}
}

// searchNotifier logs every search result and passes it on to next.
func (s *Session) searchNotifier(next game.Notifier) game.Notifier {
	return game.NotifierFunc(func(r game.SearchResult) {
		s.logger.WithFields(logrus.Fields{
			"query":   r.Query,
			"matches": len(r.Matches),
		}).Info(r.String())
		if next != nil {
			next.SearchResult(r)
		}
	})
}

var _ transport.Handler = (*Session)(nil)
