// internal/transport/manager.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errSendBufferFull = errors.New("send buffer full")

// Handler receives connection lifecycle and inbound messages from the Manager.
//
// PeerOpened must register the peer (Manager.Add) before it returns if the peer is to
// receive broadcasts; returning an error closes the channel. PeerMessage and PeerClosed
// are called from the peer's read goroutine.
type Handler interface {
	PeerOpened(p *Peer) error
	PeerMessage(p *Peer, data []byte)
	PeerClosed(p *Peer)
}

// Options tunes per-peer buffering.
type Options struct {
	// SendBuffer is the outbound queue length per peer. A peer whose queue overflows is
	// closed rather than silently missing events.
	SendBuffer int
	// WriteTimeout bounds a single write on the underlying channel.
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

// Manager tracks the set of live peer channels and moves bytes in and out of them.
// It knows nothing about game semantics.
type Manager struct {
	handler Handler
	logger  *logrus.Logger
	opts    Options

	mu    sync.Mutex
	peers map[uuid.UUID]*Peer
}

// NewManager builds a manager delivering to h.
func NewManager(h Handler, logger *logrus.Logger, opts Options) *Manager {
	return &Manager{
		handler: h,
		logger:  logger,
		opts:    opts.withDefaults(),
		peers:   make(map[uuid.UUID]*Peer),
	}
}

// Peer is a single live channel to another process.
type Peer struct {
	ID     uuid.UUID
	Remote string

	conn      Conn
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       *logrus.Entry
}

func (m *Manager) newPeer(conn Conn) *Peer {
	id, _ := uuid.NewRandom()
	return &Peer{
		ID:     id,
		Remote: conn.RemoteAddr(),
		conn:   conn,
		out:    make(chan []byte, m.opts.SendBuffer),
		done:   make(chan struct{}),
		log: m.logger.WithFields(logrus.Fields{
			"peer":   id,
			"remote": conn.RemoteAddr(),
		}),
	}
}

// Send queues data for the peer without blocking. Per-peer order is preserved.
func (p *Peer) Send(data []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	default:
		p.log.Warn("outbound queue full, dropping peer")
		p.closeWith(SlowPeerError, "outbound queue overflow")
		return fmt.Errorf("peer %s: %w", p.ID, errSendBufferFull)
	}
}

// Close shuts the channel down. It is safe to call more than once.
func (p *Peer) Close(reason string) {
	p.closeWith(websocket.StatusNormalClosure, reason)
}

func (p *Peer) closeWith(code websocket.StatusCode, reason string) {
	p.closeOnce.Do(func() {
		close(p.done)
		if ws, ok := p.conn.(*wsConn); ok {
			// the close handshake can take seconds; never hold up the caller
			go ws.c.Close(code, reason)
			return
		}
		p.conn.Close(reason)
	})
}

// Done is closed once the peer has been closed.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) String() string { return p.ID.String() }

func (p *Peer) writeLoop(ctx context.Context, timeout time.Duration) {
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case data := <-p.out:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := p.conn.Write(wctx, data)
			cancel()
			if err != nil {
				p.log.Warnf("write failed: %v", err)
				p.Close("write failed")
				return
			}
		}
	}
}

// Serve runs one channel until it closes: it announces the peer to the handler, pumps
// inbound messages into it, and removes the peer from the live set on exit.
// A normal closure returns nil.
func (m *Manager) Serve(ctx context.Context, conn Conn) error {
	p := m.newPeer(conn)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.writeLoop(ctx, m.opts.WriteTimeout)

	if err := m.handler.PeerOpened(p); err != nil {
		p.closeWith(SessionClosedError, "session unavailable")
		return fmt.Errorf("open peer %s: %w", p.ID, err)
	}
	p.log.Info("peer connected")

	err := m.readLoop(ctx, p)

	m.Remove(p)
	p.Close("channel closed")
	m.handler.PeerClosed(p)
	p.log.Info("peer disconnected")
	return err
}

func (m *Manager) readLoop(ctx context.Context, p *Peer) error {
	for {
		data, err := p.conn.Read(ctx)
		if err != nil {
			return classifyReadError(err, p)
		}
		m.handler.PeerMessage(p, data)
	}
}

func classifyReadError(err error, p *Peer) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, ErrPeerClosed):
		return nil
	}
	return fmt.Errorf("read from peer %s: %w", p.ID, err)
}

// Add registers p in the live set so that it receives broadcasts.
func (m *Manager) Add(p *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[p.ID] = p
}

// Remove drops p from the live set. Nothing is buffered for a removed peer.
func (m *Manager) Remove(p *Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, p.ID)
}

// Broadcast queues data for every live peer except exclude (which may be nil) and
// returns how many peers it was queued for.
func (m *Manager) Broadcast(data []byte, exclude *Peer) int {
	sent := 0
	for _, p := range m.Peers() {
		if exclude != nil && p.ID == exclude.ID {
			continue
		}
		if err := p.Send(data); err != nil {
			m.Remove(p)
			continue
		}
		sent++
	}
	return sent
}

// SendTo queues data for a single peer.
func (m *Manager) SendTo(p *Peer, data []byte) error {
	if err := p.Send(data); err != nil {
		m.Remove(p)
		return err
	}
	return nil
}

// Peers returns a snapshot of the live set.
func (m *Manager) Peers() []*Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out
}

// Len is the number of live peers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// CloseAll closes every live peer.
func (m *Manager) CloseAll(reason string) {
	for _, p := range m.Peers() {
		p.Close(reason)
		m.Remove(p)
	}
}
