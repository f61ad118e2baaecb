package notify

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/metrics"
	"github.com/sweeney/alert-dispatch/internal/resolver"
)

// ErrLinkDown is reported when the network link is not up at send time.
var ErrLinkDown = errors.New("network link is down")

// Config is the [callmebot] section of the configuration file.
type Config struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	Path            string        `toml:"path"`
	UserAgent       string        `toml:"user-agent"`
	SuccessMarker   string        `toml:"success-marker"`
	ResponseTimeout time.Duration `toml:"response-timeout"`
	ConnectTimeout  time.Duration `toml:"connect-timeout"`
	WriteTimeout    time.Duration `toml:"write-timeout"`
}

// NewConfig returns the CallMeBot defaults.
func NewConfig() Config {
	return Config{
		Host:            "api.callmebot.com",
		Port:            80,
		Path:            "/whatsapp.php",
		UserAgent:       "Mozilla/5.0",
		SuccessMarker:   "HTTP/1.1 200 OK",
		ResponseTimeout: 10 * time.Second,
		ConnectTimeout:  5 * time.Second,
		WriteTimeout:    5 * time.Second,
	}
}

// Resolver resolves the server hostname.
type Resolver interface {
	Resolve(ctx context.Context, hostname string) (netip.Addr, error)
}

// LinkChecker reports whether the network link is up.
type LinkChecker interface {
	IsLinkUp() bool
}

// Notifier sends alerts one at a time. Concurrent Send calls are serialized.
type Notifier struct {
	cfg       Config
	resolver  Resolver
	transport Transport
	link      LinkChecker
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
	newID     func() string

	mu sync.Mutex
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock sets the clock used for the response deadline.
func WithClock(c clock.Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Notifier) { n.log = l }
}

// WithMetrics records delivery outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithLinkChecker skips sends while the link is down.
func WithLinkChecker(l LinkChecker) Option {
	return func(n *Notifier) { n.link = l }
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() string) Option {
	return func(n *Notifier) { n.newID = fn }
}

// New creates a Notifier.
func New(cfg Config, r Resolver, t Transport, opts ...Option) *Notifier {
	n := &Notifier{
		cfg:       cfg,
		resolver:  r,
		transport: t,
		clock:     clock.New(),
		log:       zap.NewNop(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// request is the single in-flight request owned by one Send call.
type request struct {
	id     string
	target netip.AddrPort
	state  State
	start  time.Time
	log    *zap.Logger
}

func (r *request) enter(s State) {
	r.state = s
	r.log.Debug("request state", zap.Stringer("state", s))
}

// Send delivers p and blocks until the request reaches a terminal state.
func (n *Notifier) Send(ctx context.Context, p AlertPayload) DeliveryResult {
	n.mu.Lock()
	defer n.mu.Unlock()

	req := &request{
		id:    n.newID(),
		state: Connecting,
		start: n.clock.Now(),
	}
	req.log = n.log.With(zap.String("request_id", req.id))

	res := n.run(ctx, req, p)
	res.RequestID = req.id
	res.State = req.state
	res.Elapsed = n.clock.Now().Sub(req.start)

	n.metrics.Delivery(res.Outcome(), res.Elapsed)
	if res.OK {
		req.log.Info("message delivered",
			zap.String("status", res.StatusLine),
			zap.Duration("elapsed", res.Elapsed))
	} else {
		req.log.Warn("message not delivered",
			zap.Stringer("failure", res.Failure),
			zap.Stringer("state", res.State),
			zap.String("status", res.StatusLine),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(res.Err))
	}
	return res
}

func (n *Notifier) run(ctx context.Context, req *request, p AlertPayload) DeliveryResult {
	req.enter(Connecting)

	if n.link != nil && !n.link.IsLinkUp() {
		return req.fail(FailureConnect, ErrLinkDown)
	}

	addr, err := n.resolver.Resolve(ctx, n.cfg.Host)
	if err != nil {
		kind := FailureResolution
		if errors.Is(err, resolver.ErrResolutionTimedOut) {
			kind = FailureResolutionTimedOut
		}
		return req.fail(kind, err)
	}

	req.target = netip.AddrPortFrom(addr, uint16(n.cfg.Port))
	conn, err := n.transport.Open(ctx, req.target)
	if err != nil {
		return req.fail(FailureConnect, err)
	}
	req.log.Info("connected", zap.Stringer("server", req.target))

	req.enter(Sending)
	if err := conn.Write(BuildRequest(n.cfg, p)); err != nil {
		conn.Close()
		return req.fail(FailureWrite, err)
	}

	req.enter(AwaitingResponse)
	responses := make(chan []byte, 1)
	conn.Receive(func(data []byte) {
		select {
		case responses <- data:
		default:
		}
	})

	deadline := n.clock.Timer(n.cfg.ResponseTimeout)
	defer deadline.Stop()

	select {
	case data := <-responses:
		conn.Close()
		line := firstLine(data)
		req.log.Info("server response", zap.String("status", line))
		req.enter(Complete)
		if strings.Contains(line, n.cfg.SuccessMarker) {
			return DeliveryResult{OK: true, StatusLine: line}
		}
		return DeliveryResult{StatusLine: line, Failure: FailureNonSuccess}
	case <-deadline.C:
		conn.Close()
		req.enter(TimedOut)
		return DeliveryResult{Failure: FailureResponseTimedOut}
	case <-ctx.Done():
		conn.Close()
		req.enter(TimedOut)
		return DeliveryResult{Failure: FailureResponseTimedOut, Err: ctx.Err()}
	}
}

func (r *request) fail(kind FailureKind, err error) DeliveryResult {
	r.log.Debug("request failed", zap.Stringer("in_state", r.state), zap.Error(err))
	r.state = Failed
	return DeliveryResult{Failure: kind, Err: err}
}

// firstLine returns the response text up to the first line break.
func firstLine(data []byte) string {
	s := string(data)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
