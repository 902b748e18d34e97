package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/muurk/castscan/internal/logging"
)

// DefaultTimeout is the discovery budget used by FindReceivers
const DefaultTimeout = 2000 * time.Millisecond

// ErrSessionActive is returned when a Locator is asked to run a second
// session while one is still browsing.
var ErrSessionActive = errors.New("discovery session already active")

// SessionState is the lifecycle state of a Locator's discovery session
type SessionState int32

const (
	StateIdle SessionState = iota
	StateBrowsing
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBrowsing:
		return "browsing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Option configures a Locator
type Option func(*Locator)

// WithDedupPolicy sets how repeated announcements are handled
func WithDedupPolicy(policy DedupPolicy) Option {
	return func(l *Locator) {
		l.registry = NewRegistry(policy)
	}
}

// WithServiceType overrides the browsed service type
func WithServiceType(serviceType string) Option {
	return func(l *Locator) {
		if serviceType != "" {
			l.serviceType = serviceType
		}
	}
}

// WithTimeout overrides the budget used by FindReceivers
func WithTimeout(timeout time.Duration) Option {
	return func(l *Locator) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for session and announcement events
func WithLogger(logger *zap.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Locator finds cast receivers by driving a Browser for a bounded time.
//
// A Locator owns its Browser. Sessions on one Locator are serialized:
// a second concurrent FindReceivers call fails with ErrSessionActive.
type Locator struct {
	browser     Browser
	registry    *Registry
	serviceType string
	timeout     time.Duration
	logger      *zap.Logger

	mu    sync.Mutex
	state SessionState

	dropped atomic.Int64
}

// NewLocator creates a Locator over the given browser
func NewLocator(browser Browser, opts ...Option) *Locator {
	l := &Locator{
		browser:     browser,
		registry:    NewRegistry(DedupByAddress),
		serviceType: ServiceType,
		timeout:     DefaultTimeout,
		logger:      logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FindReceivers runs one discovery session with the Locator's timeout
// (DefaultTimeout unless overridden).
func (l *Locator) FindReceivers() ([]*Receiver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.FindReceiversWithContext(ctx)
}

// FindReceiversWithContext runs one discovery session until ctx is done and
// returns the receivers accepted during it, in acceptance order.
//
// Rejected announcements never fail the session. Only transport failures are
// returned, and no partial result accompanies them.
func (l *Locator) FindReceiversWithContext(ctx context.Context) ([]*Receiver, error) {
	l.mu.Lock()
	if l.state == StateBrowsing {
		l.mu.Unlock()
		return nil, ErrSessionActive
	}
	l.state = StateBrowsing
	l.mu.Unlock()
	defer l.setState(StateStopped)

	sessionID := uuid.NewString()
	log := l.logger.With(zap.String("session_id", sessionID))

	if l.browser.Browsing() {
		log.Debug("Browser already active, restarting")
		if err := l.browser.Stop(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStopFailed, err)
		}
	}

	l.registry.Reset()

	logging.LogSession(log, sessionID, StateBrowsing.String(),
		zap.String("service_type", l.serviceType),
		zap.String("dedup", l.registry.Policy().String()),
	)
	started := time.Now()

	if err := l.browser.Browse(l.serviceType, l.handleAnnouncement(log)); err != nil {
		err = fmt.Errorf("%w: %w", ErrBrowseFailed, err)
		if stopErr := l.browser.Stop(); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %w", ErrStopFailed, stopErr))
		}
		return nil, err
	}

	<-ctx.Done()

	if err := l.browser.Stop(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStopFailed, err)
	}

	receivers := l.registry.Snapshot()
	logging.LogSession(log, sessionID, StateStopped.String(),
		zap.Int("receivers", len(receivers)),
		zap.Duration("elapsed", time.Since(started)),
		zap.NamedError("cause", context.Cause(ctx)),
	)
	return receivers, nil
}

func (l *Locator) handleAnnouncement(log *zap.Logger) AnnouncementHandler {
	return func(a Announcement) {
		if l.State() != StateBrowsing {
			return
		}

		logging.LogAnnouncement(log, a.Instance, a.Addresses, a.Port, a.Text)

		receiver, err := ParseAnnouncement(a)
		if err != nil {
			log.Debug("Announcement dropped",
				zap.String("instance", a.Instance),
				zap.Error(err),
			)
			return
		}

		if l.registry.Add(receiver) == Duplicate {
			log.Debug("Duplicate receiver ignored", zap.String("key", receiver.Key()))
			return
		}
		logging.LogReceiver(log, receiver.Name, receiver.AddressString(), receiver.Port, "discovered")
	}
}

// Subscribe registers fn to be called synchronously for every newly
// discovered receiver. fn must not call back into the Locator.
func (l *Locator) Subscribe(fn func(*Receiver)) func() {
	return l.registry.Subscribe(fn)
}

// Notifications returns a channel that receives every newly discovered
// receiver, and a function that unsubscribes and closes the channel.
// Sends never block discovery; when the buffer is full the receiver is
// dropped for this channel only.
func (l *Locator) Notifications(buffer int) (<-chan *Receiver, func()) {
	ch := make(chan *Receiver, buffer)
	unsubscribe := l.registry.Subscribe(func(r *Receiver) {
		select {
		case ch <- r:
		default:
			l.dropped.Add(1)
			l.logger.Debug("Notification dropped, subscriber is behind",
				zap.String("name", r.Name),
				zap.String("address", r.AddressString()),
			)
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			close(ch)
		})
	}
}

// DroppedNotifications returns how many channel notifications were dropped
func (l *Locator) DroppedNotifications() int64 {
	return l.dropped.Load()
}

// State returns the current session state
func (l *Locator) State() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Locator) setState(s SessionState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// ServiceType returns the browsed service type
func (l *Locator) ServiceType() string {
	return l.serviceType
}

// Timeout returns the budget used by FindReceivers
func (l *Locator) Timeout() time.Duration {
	return l.timeout
}

// DedupPolicy returns the registry's dedup policy
func (l *Locator) DedupPolicy() DedupPolicy {
	return l.registry.Policy()
}
