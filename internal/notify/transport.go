package notify

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"
)

// Transport opens connections to the notification server.
type Transport interface {
	Open(ctx context.Context, addr netip.AddrPort) (Conn, error)
}

// Conn is an open connection carrying one request.
type Conn interface {
	// Write sends the whole request.
	Write(p []byte) error
	// Receive registers handler, called at most once with the first chunk
	// of response data. A connection closed without data never calls it.
	Receive(handler func(data []byte))
	// Close releases the connection.
	Close() error
}

// maxResponseChunk bounds the first read of a response.
const maxResponseChunk = 1024

// TCPTransport dials plain TCP connections.
type TCPTransport struct {
	dialer       net.Dialer
	writeTimeout time.Duration
}

// NewTCPTransport creates a transport with the given connect and write timeouts.
func NewTCPTransport(connectTimeout, writeTimeout time.Duration) *TCPTransport {
	return &TCPTransport{
		dialer:       net.Dialer{Timeout: connectTimeout},
		writeTimeout: writeTimeout,
	}
}

// Open dials addr.
func (t *TCPTransport) Open(ctx context.Context, addr netip.AddrPort) (Conn, error) {
	c, err := t.dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &tcpConn{conn: c, writeTimeout: t.writeTimeout}, nil
}

type tcpConn struct {
	conn         net.Conn
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (c *tcpConn) Write(p []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := c.conn.Write(p); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (c *tcpConn) Receive(handler func(data []byte)) {
	go func() {
		buf := make([]byte, maxResponseChunk)
		n, _ := c.conn.Read(buf)
		if n > 0 {
			handler(buf[:n])
		}
	}()
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
