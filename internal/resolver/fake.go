package resolver

import (
	"context"
	"errors"
	"net/netip"
	"sync"
)

// FakeResponse is one scripted Query outcome.
type FakeResponse struct {
	Addr netip.Addr
	Err  error
}

// FakeMechanism is a test double that returns scripted Query results.
type FakeMechanism struct {
	mu sync.Mutex

	// Responses are consumed one per Query; the last one repeats.
	Responses []FakeResponse

	// SetServerError, if set, is returned by SetServer.
	SetServerError error

	// Server is the last server passed to SetServer.
	Server string

	// Queries counts Query calls.
	Queries int

	// SetServerCalls counts SetServer calls.
	SetServerCalls int

	index int
}

// NewFakeMechanism creates a FakeMechanism with the given responses.
func NewFakeMechanism(responses ...FakeResponse) *FakeMechanism {
	return &FakeMechanism{Responses: responses}
}

// SetServer records the server.
func (f *FakeMechanism) SetServer(server string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetServerCalls++
	if f.SetServerError != nil {
		return f.SetServerError
	}
	f.Server = server
	return nil
}

// Query returns the next scripted response.
func (f *FakeMechanism) Query(_ context.Context, _ string) (netip.Addr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries++
	if len(f.Responses) == 0 {
		return netip.Addr{}, errors.New("no responses configured")
	}
	r := f.Responses[f.index]
	if f.index < len(f.Responses)-1 {
		f.index++
	}
	return r.Addr, r.Err
}

// QueryCount returns the number of Query calls so far.
func (f *FakeMechanism) QueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Queries
}
