// internal/session/role.go
package session

import (
	"fmt"

	"github.com/jason-s-yu/tablesync/internal/transport"
)

// Role is the replication policy of a session. It is chosen once when the session is
// built and never changes. Every method runs on the session goroutine.
type Role interface {
	Name() string

	// peerOpened runs after p has joined the live set.
	peerOpened(s *Session, p *transport.Peer)
	// peerClosed runs after p has left the live set.
	peerClosed(s *Session, p *transport.Peer)
	// forwardLocal relays an event this process generated.
	forwardLocal(s *Session, data []byte)
	// forwardRemote relays an event accepted from p.
	forwardRemote(s *Session, data []byte, from *transport.Peer)
	// acceptsEvent reports whether an ordinary event from p may be applied.
	acceptsEvent(p *transport.Peer) bool
	// acceptsInit reports whether a snapshot from p may replace local state.
	acceptsInit(p *transport.Peer) bool
	// deckLoaded runs after the local deck was replaced outside the event stream.
	deckLoaded(s *Session)
}

// RoleFor maps a config value ("host" or "client") to a fresh role.
func RoleFor(name string) (Role, error) {
	switch name {
	case "host":
		return &Host{}, nil
	case "client":
		return &Client{}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", name)
	}
}

// Host is the relay of record. Its append order is the total order every peer observes.
type Host struct{}

func (*Host) Name() string { return "host" }

// peerOpened bootstraps the newcomer with a full snapshot instead of the history.
func (*Host) peerOpened(s *Session, p *transport.Peer) {
	s.sendInit(p)
}

func (*Host) peerClosed(*Session, *transport.Peer) {}

func (*Host) forwardLocal(s *Session, data []byte) {
	s.conns.Broadcast(data, nil)
}

// forwardRemote echoes to everyone but the sender.
func (*Host) forwardRemote(s *Session, data []byte, from *transport.Peer) {
	s.conns.Broadcast(data, from)
}

func (*Host) acceptsEvent(*transport.Peer) bool { return true }

func (*Host) acceptsInit(*transport.Peer) bool { return false }

// deckLoaded re-bootstraps every peer, since the deck change is not an event.
func (*Host) deckLoaded(s *Session) {
	for _, p := range s.conns.Peers() {
		s.sendInit(p)
	}
}

// Client talks to exactly one host and never relays.
type Client struct {
	host *transport.Peer
}

func (*Client) Name() string { return "client" }

func (c *Client) peerOpened(s *Session, p *transport.Peer) {
	if c.host != nil {
		s.logger.WithField("peer", p.ID).Warn("client already has a host; closing extra channel")
		s.conns.Remove(p)
		p.Close("client accepts a single host channel")
		return
	}
	c.host = p
	s.logger.WithField("peer", p.ID).Info("connected to host")
}

func (c *Client) peerClosed(s *Session, p *transport.Peer) {
	if c.host == nil || c.host.ID != p.ID {
		return
	}
	c.host = nil
	s.logger.WithField("peer", p.ID).Warn("lost connection to host; local state will no longer converge")
}

func (c *Client) forwardLocal(s *Session, data []byte) {
	if c.host == nil {
		s.logger.Warn("not connected to a host; event applied locally only")
		return
	}
	if err := s.conns.SendTo(c.host, data); err != nil {
		s.logger.WithField("peer", c.host.ID).Warnf("failed to forward event to host: %v", err)
	}
}

func (*Client) forwardRemote(*Session, []byte, *transport.Peer) {}

// acceptsEvent drops anything an extra channel delivered before it was closed.
func (c *Client) acceptsEvent(p *transport.Peer) bool {
	return c.isHost(p)
}

func (c *Client) acceptsInit(p *transport.Peer) bool {
	return c.isHost(p)
}

func (c *Client) isHost(p *transport.Peer) bool {
	return c.host != nil && c.host.ID == p.ID
}

func (*Client) deckLoaded(s *Session) {
	s.logger.Info("deck loaded locally; other peers are not updated by a client")
}

var (
	_ Role = (*Host)(nil)
	_ Role = (*Client)(nil)
)
