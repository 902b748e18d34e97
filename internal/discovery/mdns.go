package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/castscan/internal/logging"
)

const (
	// ServiceType is the mDNS service type advertised by cast receivers
	ServiceType = "_googlecast._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultPort is the cast port used when an announcement reports none
	DefaultPort = 8009

	// stopTimeout bounds how long Stop waits for the resolver to drain.
	// zeroconf can take a few seconds to exit after cancellation.
	stopTimeout = 2 * time.Second
)

// ErrAlreadyBrowsing is returned by Browse when a browse is already active.
var ErrAlreadyBrowsing = errors.New("browse already active")

// Resolver is the subset of *zeroconf.Resolver used for browsing
type Resolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ResolverFactory creates a fresh Resolver for each browse.
type ResolverFactory func() (Resolver, error)

func defaultResolverFactory() (Resolver, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return resolver, nil
}

// ZeroconfBrowser is a Browser backed by github.com/grandcat/zeroconf
type ZeroconfBrowser struct {
	// Domain is the mDNS browse domain
	Domain string

	newResolver ResolverFactory
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewZeroconfBrowser creates a browser using the system's multicast interfaces
func NewZeroconfBrowser() *ZeroconfBrowser {
	return NewZeroconfBrowserWithResolver(defaultResolverFactory)
}

// NewZeroconfBrowserWithResolver creates a browser with a custom resolver factory
func NewZeroconfBrowserWithResolver(factory ResolverFactory) *ZeroconfBrowser {
	return &ZeroconfBrowser{
		Domain:      ServiceDomain,
		newResolver: factory,
		logger:      logging.GetLogger(),
	}
}

// Browse starts browsing serviceType in the background.
func (b *ZeroconfBrowser) Browse(serviceType string, handler AnnouncementHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		return ErrAlreadyBrowsing
	}

	resolver, err := b.newResolver()
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})

	// The resolver closes entries once ctx is cancelled. Keep draining so it
	// never blocks, but stop delivering as soon as Stop has been called.
	go func() {
		defer close(done)
		for entry := range entries {
			if ctx.Err() != nil || entry == nil {
				continue
			}
			handler(AnnouncementFromEntry(entry))
		}
	}()

	if err := resolver.Browse(ctx, serviceType, b.Domain, entries); err != nil {
		cancel()
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	b.cancel = cancel
	b.done = done

	b.logger.Debug("mDNS browse started",
		zap.String("service_type", serviceType),
		zap.String("domain", b.Domain),
	)
	return nil
}

// Stop cancels the active browse and waits briefly for the resolver to drain.
func (b *ZeroconfBrowser) Stop() error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		b.logger.Debug("mDNS browse stopped")
	case <-time.After(stopTimeout):
		b.logger.Debug("mDNS resolver still draining after stop, continuing")
	}
	return nil
}

// Browsing reports whether a browse is active
func (b *ZeroconfBrowser) Browsing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

// AnnouncementFromEntry converts a zeroconf service entry to an Announcement.
// IPv4 addresses are listed before IPv6 so the parser prefers IPv4.
func AnnouncementFromEntry(entry *zeroconf.ServiceEntry) Announcement {
	addresses := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, addr := range entry.AddrIPv4 {
		addresses = append(addresses, addr.String())
	}
	for _, addr := range entry.AddrIPv6 {
		addresses = append(addresses, addr.String())
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	text := make([]string, len(entry.Text))
	copy(text, entry.Text)

	return Announcement{
		Instance:  entry.Instance,
		Addresses: addresses,
		Port:      port,
		Text:      text,
	}
}
