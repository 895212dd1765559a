// internal/transport/codes.go
package transport

import "github.com/coder/websocket"

// Subprotocol is the websocket subprotocol every peer must negotiate.
const Subprotocol = "tablesync"

// Custom websocket close codes. These give more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Peer connected with an unsupported subprotocol.
	SlowPeerError       websocket.StatusCode = 3001 // Peer's outbound queue overflowed; it can no longer converge.
	SessionClosedError  websocket.StatusCode = 3002 // Local session stopped before the peer could be registered.
)
