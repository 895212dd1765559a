// internal/transport/websocket.go
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/tablesync/internal/middleware"
	"github.com/sirupsen/logrus"
)

// maxMessageBytes bounds a single inbound message. Init snapshots carry whole catalog
// payloads for every card on the table, well past the library's 32KiB default.
const maxMessageBytes = 8 << 20

// wsConn adapts a websocket connection to Conn. Only text frames carry events.
type wsConn struct {
	c      *websocket.Conn
	remote string
}

func newWSConn(c *websocket.Conn, remote string) *wsConn {
	c.SetReadLimit(maxMessageBytes)
	return &wsConn{c: c, remote: remote}
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		return data, nil
	}
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close(reason string) error {
	return w.c.Close(websocket.StatusNormalClosure, reason)
}

func (w *wsConn) RemoteAddr() string { return w.remote }

// NewHTTPHandler upgrades requests to websocket peers and hands them to the manager.
// The handler blocks for the lifetime of the peer.
func NewHTTPHandler(m *Manager, logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // peers are not authenticated
		})
		if err != nil {
			logger.Warnf("websocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}
		if c.Subprotocol() != Subprotocol {
			logger.Warnf("peer %s connected with invalid subprotocol %q", r.RemoteAddr, c.Subprotocol())
			c.Close(BadSubprotocolError, "peer must use the '"+Subprotocol+"' subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		err = m.Serve(r.Context(), newWSConn(c, r.RemoteAddr))
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}

// Dial opens a websocket channel to a host.
func Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "host did not negotiate the '"+Subprotocol+"' subprotocol")
		return nil, fmt.Errorf("dial %s: host negotiated subprotocol %q", url, c.Subprotocol())
	}
	return newWSConn(c, url), nil
}
