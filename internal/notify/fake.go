package notify

import (
	"context"
	"net/netip"
	"sync"
)

// FakeTransport is a test double that hands out scripted FakeConns.
type FakeTransport struct {
	mu sync.Mutex

	// OpenError, if set, is returned by Open.
	OpenError error

	// WriteError is copied into every opened connection.
	WriteError error

	// Response is delivered to the response handler of every opened
	// connection. Nil means the server never answers.
	Response []byte

	// Opened records every address passed to Open.
	Opened []netip.AddrPort

	// Conns records every connection handed out.
	Conns []*FakeConn
}

// NewFakeTransport creates a FakeTransport answering with response.
func NewFakeTransport(response []byte) *FakeTransport {
	return &FakeTransport{Response: response}
}

// Open records addr and returns a new FakeConn.
func (f *FakeTransport) Open(_ context.Context, addr netip.AddrPort) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Opened = append(f.Opened, addr)
	if f.OpenError != nil {
		return nil, f.OpenError
	}
	c := &FakeConn{WriteError: f.WriteError, Response: f.Response}
	f.Conns = append(f.Conns, c)
	return c, nil
}

// LastConn returns the most recently opened connection, or nil.
func (f *FakeTransport) LastConn() *FakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Conns) == 0 {
		return nil
	}
	return f.Conns[len(f.Conns)-1]
}

// FakeConn records writes and closes.
type FakeConn struct {
	mu sync.Mutex

	WriteError error
	Response   []byte

	Written    [][]byte
	Receivers  int
	CloseCalls int
}

// Write records p.
func (c *FakeConn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteError != nil {
		return c.WriteError
	}
	c.Written = append(c.Written, append([]byte(nil), p...))
	return nil
}

// Receive delivers the scripted response, if any.
func (c *FakeConn) Receive(handler func(data []byte)) {
	c.mu.Lock()
	c.Receivers++
	resp := c.Response
	c.mu.Unlock()
	if resp != nil {
		handler(resp)
	}
}

// Close counts the call.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CloseCalls++
	return nil
}

// Request returns everything written so far as one string.
func (c *FakeConn) Request() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s string
	for _, w := range c.Written {
		s += string(w)
	}
	return s
}

// Closes returns the number of Close calls.
func (c *FakeConn) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CloseCalls
}
