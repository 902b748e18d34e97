package discovery

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// Announcement is a resolved mDNS service announcement as delivered by a Browser.
type Announcement struct {
	// Instance is the service instance name (informational only)
	Instance string

	// Addresses lists the resolved addresses; the first one is used
	Addresses []string

	// Port is the advertised service port
	Port int

	// Text holds the raw TXT entries in "key=value" form
	Text []string
}

// ParseAnnouncement converts an announcement into a Receiver.
//
// The whole announcement is rejected if any TXT entry lacks '=', if the "fn"
// key is missing, or if the first address cannot form a receiver URL. All
// rejections satisfy IsFiltered. Missing "md", "ve" and "rs" keys yield empty
// fields.
func ParseAnnouncement(a Announcement) (*Receiver, error) {
	metadata, err := ParseTXT(a.Text)
	if err != nil {
		return nil, err
	}

	name, ok := metadata[KeyFriendlyName]
	if !ok {
		return nil, ErrNotReceiver
	}

	if len(a.Addresses) == 0 {
		return nil, ErrNoAddress
	}

	address, err := receiverURL(a.Addresses[0])
	if err != nil {
		return nil, err
	}

	return &Receiver{
		Address:         address,
		Name:            name,
		Model:           metadata[KeyModel],
		FirmwareVersion: metadata[KeyVersion],
		Status:          metadata[KeyStatus],
		Port:            a.Port,
		Metadata:        metadata,
		DiscoveredAt:    time.Now(),
	}, nil
}

// ParseTXT splits each entry on its first '=' into a key/value map.
// Later duplicates of a key overwrite earlier ones.
func ParseTXT(text []string) (map[string]string, error) {
	metadata := make(map[string]string, len(text))
	for _, entry := range text {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedTXT, entry)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// receiverURL builds https://<address>. IPv6 literals are bracketed; anything
// else must survive a URL round trip as a bare host.
func receiverURL(address string) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if ip, err := netip.ParseAddr(address); err == nil {
		host := ip.String()
		if ip.Is6() && !ip.Is4In6() {
			host = "[" + host + "]"
		} else if ip.Is4In6() {
			host = ip.Unmap().String()
		}
		return &url.URL{Scheme: "https", Host: host}, nil
	}

	u, err := url.Parse("https://" + address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Host != address || u.Path != "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" || u.Port() != "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return u, nil
}
