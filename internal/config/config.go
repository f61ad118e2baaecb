// Package config loads the daemon configuration from a TOML file, an
// optional .env file and the environment.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/sweeney/alert-dispatch/internal/debounce"
	"github.com/sweeney/alert-dispatch/internal/dispatch"
	"github.com/sweeney/alert-dispatch/internal/gpio"
	"github.com/sweeney/alert-dispatch/internal/logging"
	"github.com/sweeney/alert-dispatch/internal/mqtt"
	"github.com/sweeney/alert-dispatch/internal/network"
	"github.com/sweeney/alert-dispatch/internal/notify"
	"github.com/sweeney/alert-dispatch/internal/resolver"
)

// Credential environment variables. They override the file.
const (
	EnvPhone  = "ALERT_PHONE"
	EnvAPIKey = "ALERT_APIKEY"
)

// GPIOConfig is the [gpio] section.
type GPIOConfig struct {
	Chip string `toml:"chip"`
}

// DebounceConfig is the [debounce] section.
type DebounceConfig struct {
	Tick       time.Duration `toml:"tick"`
	Refractory time.Duration `toml:"refractory"`
	Heartbeat  time.Duration `toml:"heartbeat"`
}

// CallMeBotConfig is the [callmebot] section: the server plus the
// recipient credentials.
type CallMeBotConfig struct {
	notify.Config
	Phone  string `toml:"phone"`
	APIKey string `toml:"apikey"`
}

// HTTPConfig is the [http] section.
type HTTPConfig struct {
	// Addr is the status server address; empty disables it.
	Addr string `toml:"addr"`
}

// NetworkConfig is the [network] section.
type NetworkConfig struct {
	// File is the pi-helper state file, re-read before every send and
	// heartbeat. Empty uses the process environment only.
	File string `toml:"file"`
}

// AnnounceConfig is the [announce] section.
type AnnounceConfig struct {
	Enabled bool   `toml:"enabled"`
	Message string `toml:"message"`
}

// ChannelConfig is one [[channels]] entry. Channel ids follow file order.
type ChannelConfig struct {
	Name    string `toml:"name"`
	Pin     int    `toml:"pin"`
	Message string `toml:"message"`
}

// Config is the full daemon configuration.
type Config struct {
	GPIO      GPIOConfig      `toml:"gpio"`
	Debounce  DebounceConfig  `toml:"debounce"`
	CallMeBot CallMeBotConfig `toml:"callmebot"`
	Resolver  resolver.Config `toml:"resolver"`
	MQTT      mqtt.Config     `toml:"mqtt"`
	HTTP      HTTPConfig      `toml:"http"`
	Network   NetworkConfig   `toml:"network"`
	Log       logging.Config  `toml:"log"`
	Announce  AnnounceConfig  `toml:"announce"`
	Channels  []ChannelConfig `toml:"channels"`
}

// DefaultChannels returns the four buttons of the original device, most
// urgent first.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: "BUTTON_A", Pin: gpio.PinButtonA, Message: "SOCORRO! Preciso de ajuda imediata!"},
		{Name: "BUTTON_B", Pin: gpio.PinButtonB, Message: "Estou me sentindo um pouco mal. Me ligue por favor?"},
		{Name: "BUTTON_C", Pin: gpio.PinButtonC, Message: "Estou tendo dificuldades. Por favor, me ajude."},
		{Name: "BUTTON_D", Pin: gpio.PinButtonD, Message: "Estou bem, mas gostaria de conversar. Me ligue por favor?"},
	}
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		GPIO: GPIOConfig{Chip: gpio.DefaultChip},
		Debounce: DebounceConfig{
			Tick:       time.Second,
			Refractory: debounce.DefaultRefractory,
			Heartbeat:  15 * time.Minute,
		},
		CallMeBot: CallMeBotConfig{Config: notify.NewConfig()},
		Resolver:  resolver.NewConfig(),
		MQTT:      mqtt.NewConfig(),
		HTTP:      HTTPConfig{Addr: ":80"},
		Network:   NetworkConfig{File: network.DefaultFile},
		Log:       logging.NewConfig(),
		Announce:  AnnounceConfig{Enabled: true, Message: dispatch.DefaultAnnounceMessage},
		Channels:  DefaultChannels(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// A file that lists [[channels]] replaces the default channels entirely.
func Load(path string) (Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}

	c.Channels = nil
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, errors.Wrapf(err, "decode %s", path)
	}
	if len(c.Channels) == 0 {
		c.Channels = DefaultChannels()
	}
	return c, nil
}

// LoadEnvFile adds variables from a .env file to the process environment.
// Variables already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// ApplyEnv overrides the credentials from the environment. A nil getenv
// uses os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvPhone); v != "" {
		c.CallMeBot.Phone = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.CallMeBot.APIKey = v
	}
}

// Validate ensures that all configuration options are valid.
func (c Config) Validate() error {
	if c.Debounce.Tick <= 0 {
		return errors.New("debounce tick must be positive")
	}
	if c.Debounce.Refractory <= 0 {
		return errors.New("debounce refractory must be positive")
	}
	if c.Debounce.Heartbeat < 0 {
		return errors.New("heartbeat must not be negative (0 disables)")
	}

	if err := c.validateChannels(); err != nil {
		return errors.Wrap(err, "channels")
	}

	cb := c.CallMeBot
	if cb.Host == "" {
		return errors.New("must specify callmebot host")
	}
	if cb.Port <= 0 || cb.Port > 65535 {
		return errors.Errorf("invalid callmebot port %d", cb.Port)
	}
	if cb.ResponseTimeout <= 0 {
		return errors.New("callmebot response-timeout must be positive")
	}
	if cb.ConnectTimeout < 0 || cb.WriteTimeout < 0 {
		return errors.New("callmebot connect-timeout and write-timeout must not be negative (0 disables)")
	}
	if cb.Phone == "" {
		return errors.Errorf("must specify callmebot phone (or %s)", EnvPhone)
	}
	if cb.APIKey == "" {
		return errors.Errorf("must specify callmebot apikey (or %s)", EnvAPIKey)
	}

	if c.Resolver.Server == "" {
		return errors.New("must specify resolver server")
	}
	if c.Resolver.PollInterval <= 0 || c.Resolver.MaxAttempts <= 0 {
		return errors.New("resolver poll-interval and max-attempts must be positive")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("must specify mqtt broker")
		}
		if _, err := url.Parse(c.MQTT.Broker); err != nil {
			return errors.Wrapf(err, "invalid mqtt broker %q", c.MQTT.Broker)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log")
	}
	return nil
}

func (c Config) validateChannels() error {
	if len(c.Channels) == 0 {
		return errors.New("at least one channel is required")
	}
	pins := make(map[int]string, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return errors.Errorf("channel %d: must specify name", i)
		}
		if ch.Message == "" {
			return errors.Errorf("channel %s: must specify message", ch.Name)
		}
		if ch.Pin < 0 {
			return errors.Errorf("channel %s: invalid pin %d", ch.Name, ch.Pin)
		}
		if other, ok := pins[ch.Pin]; ok {
			return errors.Errorf("channel %s: pin %d already used by %s", ch.Name, ch.Pin, other)
		}
		pins[ch.Pin] = ch.Name
	}
	return nil
}

// Pins returns the GPIO line of each channel, in channel order.
func (c Config) Pins() []int {
	pins := make([]int, len(c.Channels))
	for i, ch := range c.Channels {
		pins[i] = ch.Pin
	}
	return pins
}

// Payload builds an alert payload for message with the configured
// credentials.
func (c Config) Payload(message string) notify.AlertPayload {
	return notify.AlertPayload{
		Message: message,
		Phone:   c.CallMeBot.Phone,
		APIKey:  c.CallMeBot.APIKey,
	}
}

// Scheduler returns the debounce configuration with each channel's payload.
func (c Config) Scheduler() debounce.Config {
	out := debounce.Config{Refractory: c.Debounce.Refractory}
	for _, ch := range c.Channels {
		out.Channels = append(out.Channels, debounce.ChannelConfig{
			Name:    ch.Name,
			Payload: c.Payload(ch.Message),
		})
	}
	return out
}
