package discovery

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Well-known TXT keys advertised by cast receivers
const (
	KeyFriendlyName = "fn"
	KeyModel        = "md"
	KeyVersion      = "ve"
	KeyStatus       = "rs"
	KeyID           = "id"
	KeyCapabilities = "ca"
)

// Receiver represents a discovered cast receiver on the network.
// A Receiver is immutable once it has been added to a Registry.
type Receiver struct {
	// Address is the receiver endpoint (e.g., "https://10.0.0.5")
	Address *url.URL

	// Name is the friendly name from the "fn" TXT key (e.g., "Living Room")
	Name string

	// Model is the device model from the "md" TXT key (e.g., "Chromecast Ultra")
	Model string

	// FirmwareVersion is the "ve" TXT key
	FirmwareVersion string

	// Status is the raw "rs" TXT key, usually the running app (may be empty)
	Status string

	// Port is the cast port reported by the announcement (typically 8009)
	Port int

	// Metadata contains every TXT key/value pair, including the ones above
	Metadata map[string]string

	// DiscoveredAt is when the announcement was accepted
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the receiver
func (r *Receiver) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", r.Name, r.Model, r.Host(), r.Port)
}

// Host returns the address host without brackets, or empty string if unset
func (r *Receiver) Host() string {
	if r.Address == nil {
		return ""
	}
	return r.Address.Hostname()
}

// AddressString returns the receiver address as a string, or empty string if unset
func (r *Receiver) AddressString() string {
	if r.Address == nil {
		return ""
	}
	return r.Address.String()
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (r *Receiver) GetMetadata(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// ID returns the receiver's stable identifier ("id" TXT key).
func (r *Receiver) ID() string {
	return r.GetMetadata(KeyID)
}

// Capabilities returns the "ca" bitmask, or 0 if absent or not a number.
func (r *Receiver) Capabilities() int {
	ca, err := strconv.Atoi(r.GetMetadata(KeyCapabilities))
	if err != nil {
		return 0
	}
	return ca
}

// Key returns the identity used for deduplication: the resolved address
// plus port.
func (r *Receiver) Key() string {
	return fmt.Sprintf("%s:%d", r.AddressString(), r.Port)
}

// ReceiverView is the serialized form of a Receiver used for JSON and YAML output.
type ReceiverView struct {
	ID              string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string            `json:"name" yaml:"name"`
	Model           string            `json:"model,omitempty" yaml:"model,omitempty"`
	FirmwareVersion string            `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`
	Status          string            `json:"status,omitempty" yaml:"status,omitempty"`
	Address         string            `json:"address" yaml:"address"`
	Port            int               `json:"port" yaml:"port"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	DiscoveredAt    time.Time         `json:"discovered_at" yaml:"discovered_at"`
}

// View returns the serializable form of the receiver
func (r *Receiver) View() ReceiverView {
	return ReceiverView{
		ID:              r.ID(),
		Name:            r.Name,
		Model:           r.Model,
		FirmwareVersion: r.FirmwareVersion,
		Status:          r.Status,
		Address:         r.AddressString(),
		Port:            r.Port,
		Metadata:        r.Metadata,
		DiscoveredAt:    r.DiscoveredAt,
	}
}

// Views converts receivers to their serializable form, preserving order
func Views(receivers []*Receiver) []ReceiverView {
	views := make([]ReceiverView, 0, len(receivers))
	for _, r := range receivers {
		views = append(views, r.View())
	}
	return views
}
