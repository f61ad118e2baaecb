// Package debounce turns periodic channel samples into accepted presses.
// Time is always injected through Tick; nothing here sleeps or reads a clock.
package debounce

import (
	"time"

	"github.com/sweeney/alert-dispatch/internal/notify"
)

// DefaultRefractory is the minimum time between accepted presses on a channel.
const DefaultRefractory = 200 * time.Millisecond

// Sampler reads the current level of a channel.
type Sampler interface {
	ReadChannel(id int) (bool, error)
}

// ChannelConfig describes one input channel. Its position in Config.Channels
// is its id.
type ChannelConfig struct {
	Name    string
	Payload notify.AlertPayload
}

// Config configures a Scheduler.
type Config struct {
	Refractory time.Duration
	Channels   []ChannelConfig
}

// Channel is the debounce state of one input line.
type Channel struct {
	ID      int
	Name    string
	Payload notify.AlertPayload

	// LastLevel is the most recent sample.
	LastLevel bool
	// LastAccept is the time of the last accepted press; zero until the
	// channel's first sample.
	LastAccept time.Time
	// Pressed is set by an accepted press and cleared when the level drops.
	Pressed bool
	// Presses counts accepted presses since startup.
	Presses int
}

// AlertFunc is called synchronously for every accepted press with a copy of
// the channel state.
type AlertFunc func(ch Channel)

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Ticks     int
	Presses   map[string]int
}
