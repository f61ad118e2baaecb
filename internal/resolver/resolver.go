// Package resolver resolves hostnames through an upstream DNS server and
// caches successful answers for the lifetime of the process.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/metrics"
)

// DefaultServer is the public resolver queried when none is configured.
const DefaultServer = "8.8.8.8:53"

var (
	// ErrInProgress is reported by a Mechanism whose answer is not ready yet.
	ErrInProgress = errors.New("lookup in progress")

	// ErrResolutionFailed matches every error returned by Resolve.
	ErrResolutionFailed = errors.New("resolution failed")

	// ErrResolutionTimedOut is returned when a lookup stays in progress for
	// longer than the poll bound.
	ErrResolutionTimedOut = errors.New("resolution timed out")
)

// Mechanism issues DNS queries. Query either answers immediately, reports
// ErrInProgress (call again later), or fails.
type Mechanism interface {
	SetServer(server string) error
	Query(ctx context.Context, hostname string) (netip.Addr, error)
}

// Config controls the upstream server and the in-progress poll bound.
type Config struct {
	Server       string        `toml:"server"`
	PollInterval time.Duration `toml:"poll-interval"`
	MaxAttempts  int           `toml:"max-attempts"`
}

// NewConfig returns the default resolver configuration: 8.8.8.8, polled
// every 100ms for up to 50 attempts.
func NewConfig() Config {
	return Config{
		Server:       DefaultServer,
		PollInterval: 100 * time.Millisecond,
		MaxAttempts:  50,
	}
}

// Resolver resolves hostnames and caches the results.
type Resolver struct {
	mech    Mechanism
	cfg     Config
	cache   *Cache
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	configured bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for poll waits.
func WithClock(c clock.Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithCache shares an existing cache.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a Resolver over mech.
func New(mech Mechanism, cfg Config, opts ...Option) *Resolver {
	def := NewConfig()
	if cfg.Server == "" {
		cfg.Server = def.Server
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	r := &Resolver{
		mech:  mech,
		cfg:   cfg,
		cache: NewCache(),
		clock: clock.New(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Configure points the mechanism at the upstream server. Safe to call
// repeatedly; only the first successful call has an effect.
func (r *Resolver) Configure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configured {
		return nil
	}
	if err := r.mech.SetServer(r.cfg.Server); err != nil {
		return fmt.Errorf("set dns server %s: %w", r.cfg.Server, err)
	}
	r.configured = true
	r.log.Info("dns server configured", zap.String("server", r.cfg.Server))
	return nil
}

// Resolve returns the address for hostname, from the cache when possible.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (netip.Addr, error) {
	if e := r.cache.Get(hostname); e.State == Resolved {
		r.metrics.CacheHit()
		r.log.Debug("using cached address", zap.String("host", hostname), zap.Stringer("addr", e.Addr))
		return e.Addr, nil
	}
	r.metrics.CacheMiss()

	if err := r.Configure(); err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w: %w", hostname, err, ErrResolutionFailed)
	}

	r.cache.set(hostname, Entry{State: InProgress})
	r.log.Info("resolving hostname", zap.String("host", hostname))

	addr, err := r.mech.Query(ctx, hostname)
	if err == nil {
		return r.resolved(hostname, addr), nil
	}
	if !errors.Is(err, ErrInProgress) {
		return netip.Addr{}, r.fail(hostname, err)
	}

	r.log.Debug("waiting for dns answer", zap.String("host", hostname))
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return netip.Addr{}, r.fail(hostname, ctx.Err())
		case <-r.clock.After(r.cfg.PollInterval):
		}

		addr, err = r.mech.Query(ctx, hostname)
		if err == nil {
			return r.resolved(hostname, addr), nil
		}
		if !errors.Is(err, ErrInProgress) {
			return netip.Addr{}, r.fail(hostname, err)
		}
	}

	r.cache.set(hostname, Entry{State: Failed})
	r.log.Warn("dns resolution timed out",
		zap.String("host", hostname),
		zap.Int("attempts", r.cfg.MaxAttempts),
		zap.Duration("interval", r.cfg.PollInterval))
	return netip.Addr{}, fmt.Errorf("resolve %s: %w: %w", hostname, ErrResolutionTimedOut, ErrResolutionFailed)
}

func (r *Resolver) resolved(hostname string, addr netip.Addr) netip.Addr {
	r.cache.set(hostname, Entry{Addr: addr, State: Resolved})
	r.log.Info("hostname resolved", zap.String("host", hostname), zap.Stringer("addr", addr))
	return addr
}

func (r *Resolver) fail(hostname string, err error) error {
	r.cache.set(hostname, Entry{State: Failed})
	r.log.Warn("dns resolution failed", zap.String("host", hostname), zap.Error(err))
	return fmt.Errorf("resolve %s: %w: %w", hostname, err, ErrResolutionFailed)
}
