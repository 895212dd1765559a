// internal/transport/pipe.go
package transport

import (
	"context"
	"io"
	"sync"
)

// pipeBuffer is how many messages each direction of a Pipe holds before Write blocks.
const pipeBuffer = 64

// Pipe returns two connected in-memory channels. It is the transport for peers living in
// the same process, such as an embedded table or scenario tests.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, pipeBuffer)
	ba := make(chan []byte, pipeBuffer)
	closed := make(chan struct{})
	once := &sync.Once{}
	a := &pipeConn{in: ba, out: ab, closed: closed, once: once, name: "pipe:a"}
	b := &pipeConn{in: ab, out: ba, closed: closed, once: once, name: "pipe:b"}
	return a, b
}

type pipeConn struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
	name   string
}

func (p *pipeConn) Read(ctx context.Context) ([]byte, error) {
	// drain what was delivered before a close
	select {
	case data := <-p.in:
		return data, nil
	default:
	}
	select {
	case data := <-p.in:
		return data, nil
	case <-p.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConn) Write(ctx context.Context, data []byte) error {
	select {
	case <-p.closed:
		return ErrPeerClosed
	default:
	}
	msg := append([]byte(nil), data...)
	select {
	case p.out <- msg:
		return nil
	case <-p.closed:
		return ErrPeerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Close(string) error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) RemoteAddr() string { return p.name }
