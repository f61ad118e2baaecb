package resolver

import (
	"net/netip"
	"sync"
)

// State is the resolution state of a cached hostname.
type State int

const (
	Unresolved State = iota
	InProgress
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "UNRESOLVED"
	case InProgress:
		return "IN_PROGRESS"
	case Resolved:
		return "RESOLVED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Entry is the cached state for one hostname.
type Entry struct {
	Addr  netip.Addr
	State State
}

// Cache memoizes hostname lookups for the lifetime of the process.
// A Resolved entry is never replaced; any other state may be retried.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for host. Unknown hosts report Unresolved.
func (c *Cache) Get(host string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[host]
}

func (c *Cache) set(host string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[host]; ok && cur.State == Resolved {
		return
	}
	c.entries[host] = e
}

// Snapshot returns a copy of all entries.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
