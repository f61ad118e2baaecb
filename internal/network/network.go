// Package network reads link state published by pi-helper. pi-helper
// rewrites /run/pi-helper.env as the link changes, so the file is parsed
// again on every read; the process environment is the fallback.
package network

import (
	"os"

	"github.com/joho/godotenv"
)

// DefaultFile is where pi-helper writes the current link state.
const DefaultFile = "/run/pi-helper.env"

// pi-helper env var names.
const (
	EnvType       = "NETWORK_TYPE"
	EnvIP         = "NETWORK_IP"
	EnvStatus     = "NETWORK_STATUS"
	EnvGateway    = "NETWORK_GATEWAY"
	EnvWifiStatus = "NETWORK_WIFI_STATUS"
	EnvWifiSSID   = "NETWORK_WIFI_SSID"
)

// StatusConnected is the NETWORK_STATUS value for a usable link.
const StatusConnected = "connected"

// Info contains network state.
type Info struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Env looks up environment variables. os.Getenv satisfies it.
type Env func(key string) string

// Source yields the current link variables each time it is called.
type Source func() Env

// FileSource parses path with godotenv on every call. Keys the file does not
// set, and every key when the file cannot be read, come from fallback.
// A nil fallback uses os.Getenv; an empty path uses fallback only.
func FileSource(path string, fallback Env) Source {
	if fallback == nil {
		fallback = os.Getenv
	}
	return func() Env {
		if path == "" {
			return fallback
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return fallback
		}
		return func(key string) string {
			if v, ok := vars[key]; ok {
				return v
			}
			return fallback(key)
		}
	}
}

// Read returns the current network info, or nil if pi-helper has not
// reported a status.
func Read(getenv Env) *Info {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := getenv(EnvStatus)
	if s == "" {
		return nil
	}
	return &Info{
		Type:       getenv(EnvType),
		IP:         getenv(EnvIP),
		Status:     s,
		Gateway:    getenv(EnvGateway),
		WifiStatus: getenv(EnvWifiStatus),
		SSID:       getenv(EnvWifiSSID),
	}
}

// LinkChecker reports link state from a Source, read fresh on every check.
type LinkChecker struct {
	source Source
}

// NewLinkChecker creates a LinkChecker. A nil source uses os.Getenv.
func NewLinkChecker(source Source) *LinkChecker {
	if source == nil {
		source = FileSource("", nil)
	}
	return &LinkChecker{source: source}
}

// IsLinkUp reports false only when pi-helper says the link is not connected.
// An unknown status counts as up so hosts without pi-helper still send.
func (c *LinkChecker) IsLinkUp() bool {
	info := Read(c.source())
	if info == nil {
		return true
	}
	return info.Status == StatusConnected
}
