package debounce

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/metrics"
)

// Scheduler samples every channel on each tick and fires at most one alert
// per channel per tick.
type Scheduler struct {
	sampler    Sampler
	refractory time.Duration
	channels   []*Channel
	onAlert    AlertFunc

	log     *zap.Logger
	metrics *metrics.Metrics

	startTime     time.Time
	lastHeartbeat time.Time
	ticks         int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMetrics counts accepted presses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a Scheduler. The startTime is used for uptime in
// heartbeats.
func NewScheduler(sampler Sampler, cfg Config, startTime time.Time, onAlert AlertFunc, opts ...Option) *Scheduler {
	refractory := cfg.Refractory
	if refractory <= 0 {
		refractory = DefaultRefractory
	}
	s := &Scheduler{
		sampler:       sampler,
		refractory:    refractory,
		onAlert:       onAlert,
		log:           zap.NewNop(),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	for id, c := range cfg.Channels {
		s.channels = append(s.channels, &Channel{ID: id, Name: c.Name, Payload: c.Payload})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick samples each channel in id order and handles accepted presses.
func (s *Scheduler) Tick(now time.Time) {
	s.ticks++
	for _, ch := range s.channels {
		level, err := s.sampler.ReadChannel(ch.ID)
		if err != nil {
			s.log.Warn("channel read failed", zap.String("channel", ch.Name), zap.Error(err))
			continue
		}
		s.processChannel(ch, level, now)
	}
}

func (s *Scheduler) processChannel(ch *Channel, level bool, now time.Time) {
	ch.LastLevel = level

	// First sample: start the refractory window without firing.
	if ch.LastAccept.IsZero() {
		ch.LastAccept = now
	}

	if !level {
		ch.Pressed = false
		return
	}

	if ch.Pressed || now.Sub(ch.LastAccept) <= s.refractory {
		return
	}

	ch.LastAccept = now
	ch.Pressed = true
	ch.Presses++
	s.metrics.Press(ch.Name)
	s.log.Info("button pressed", zap.Int("channel", ch.ID), zap.String("name", ch.Name))

	if s.onAlert != nil {
		s.onAlert(*ch)
	}
}

// Snapshot returns a copy of every channel's state.
func (s *Scheduler) Snapshot() []Channel {
	out := make([]Channel, len(s.channels))
	for i, ch := range s.channels {
		out[i] = *ch
	}
	return out
}

// Ticks returns the number of ticks processed.
func (s *Scheduler) Ticks() int {
	return s.ticks
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// is <= 0 (disabled).
func (s *Scheduler) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}

	s.lastHeartbeat = now
	presses := make(map[string]int, len(s.channels))
	for _, ch := range s.channels {
		presses[ch.Name] = ch.Presses
	}
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Ticks:     s.ticks,
		Presses:   presses,
	}
}
