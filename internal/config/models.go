package config

import (
	"fmt"
	"time"

	"github.com/muurk/castscan/internal/discovery"
)

// CurrentVersion is the config schema version written by this build
const CurrentVersion = 1

// Config represents the entire user configuration file.
// It stores discovery preferences and user metadata for known receivers.
type Config struct {
	Version     int                       `yaml:"version"`
	Preferences *Preferences              `yaml:"preferences,omitempty"`
	Receivers   map[string]*KnownReceiver `yaml:"receivers,omitempty"` // Keyed by ReceiverKey
}

// Preferences represents discovery preferences.
type Preferences struct {
	TimeoutMS   int    `yaml:"timeout_ms"`          // Discovery budget in milliseconds
	Dedup       string `yaml:"dedup"`               // "address" or "none"
	ServiceType string `yaml:"service_type"`        // mDNS service type to browse
	LogLevel    string `yaml:"log_level,omitempty"` // Used when CASTSCAN_LOG_LEVEL is unset
}

// KnownReceiver is what castscan remembers about a receiver between runs.
type KnownReceiver struct {
	Nickname    string    `yaml:"nickname,omitempty"`
	Name        string    `yaml:"name"`
	Model       string    `yaml:"model,omitempty"`
	LastAddress string    `yaml:"last_address,omitempty"`
	Port        int       `yaml:"port,omitempty"`
	LastSeen    time.Time `yaml:"last_seen,omitempty"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		Preferences: DefaultPreferences(),
		Receivers:   make(map[string]*KnownReceiver),
	}
}

// DefaultPreferences returns preferences matching discovery's defaults.
func DefaultPreferences() *Preferences {
	return &Preferences{
		TimeoutMS:   int(discovery.DefaultTimeout / time.Millisecond),
		Dedup:       discovery.DedupByAddress.String(),
		ServiceType: discovery.ServiceType,
	}
}

// Timeout returns the discovery budget, falling back to the default for
// non-positive values.
func (p *Preferences) Timeout() time.Duration {
	if p == nil || p.TimeoutMS <= 0 {
		return discovery.DefaultTimeout
	}
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// LocatorOptions converts preferences into discovery options.
func (p *Preferences) LocatorOptions() ([]discovery.Option, error) {
	if p == nil {
		p = DefaultPreferences()
	}

	policy, err := discovery.ParseDedupPolicy(p.Dedup)
	if err != nil {
		return nil, fmt.Errorf("invalid preferences: %w", err)
	}

	return []discovery.Option{
		discovery.WithTimeout(p.Timeout()),
		discovery.WithDedupPolicy(policy),
		discovery.WithServiceType(p.ServiceType),
	}, nil
}

// ReceiverKey returns the key a receiver is stored under: its "id" TXT value,
// or its host when the receiver does not advertise one.
func ReceiverKey(r *discovery.Receiver) string {
	if id := r.ID(); id != "" {
		return id
	}
	return r.Host()
}

// GetReceiver retrieves a known receiver by key.
// Returns nil if the receiver isn't in the config.
func (c *Config) GetReceiver(key string) *KnownReceiver {
	return c.Receivers[key]
}

// RecordReceiver creates or updates the entry for a discovered receiver and
// returns its key. An existing nickname is kept.
func (c *Config) RecordReceiver(r *discovery.Receiver) string {
	if c.Receivers == nil {
		c.Receivers = make(map[string]*KnownReceiver)
	}

	key := ReceiverKey(r)
	known, ok := c.Receivers[key]
	if !ok {
		known = &KnownReceiver{}
		c.Receivers[key] = known
	}

	known.Name = r.Name
	known.Model = r.Model
	known.LastAddress = r.AddressString()
	known.Port = r.Port
	known.LastSeen = r.DiscoveredAt
	if known.LastSeen.IsZero() {
		known.LastSeen = time.Now()
	}
	return key
}

// SetNickname sets a user-friendly nickname for a known receiver.
func (c *Config) SetNickname(key, nickname string) error {
	known, ok := c.Receivers[key]
	if !ok {
		return fmt.Errorf("unknown receiver %q (run 'castscan scan --remember' first)", key)
	}
	known.Nickname = nickname
	return nil
}

// DisplayName returns the nickname for a receiver if one is set, otherwise
// its friendly name.
func (c *Config) DisplayName(r *discovery.Receiver) string {
	if known := c.GetReceiver(ReceiverKey(r)); known != nil && known.Nickname != "" {
		return known.Nickname
	}
	return r.Name
}
