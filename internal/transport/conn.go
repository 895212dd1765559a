// internal/transport/conn.go
package transport

import (
	"context"
	"errors"
)

// ErrPeerClosed is returned when writing to a channel that has already closed.
var ErrPeerClosed = errors.New("peer closed")

// Conn is one bidirectional, ordered message channel to another peer.
// Read and Write may be called concurrently with each other, but each only from one goroutine.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
	RemoteAddr() string
}
