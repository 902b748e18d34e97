package discovery

import (
	"fmt"
	"strings"
	"sync"
)

// DedupPolicy controls whether repeated announcements of the same receiver
// are recorded again.
type DedupPolicy int

const (
	// DedupByAddress drops a receiver whose address and port were already seen.
	DedupByAddress DedupPolicy = iota

	// DedupNone records and republishes every accepted announcement.
	DedupNone
)

// String returns the config name of the policy
func (p DedupPolicy) String() string {
	switch p {
	case DedupByAddress:
		return "address"
	case DedupNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseDedupPolicy parses "address" or "none". Empty input means DedupByAddress.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "address":
		return DedupByAddress, nil
	case "none", "off":
		return DedupNone, nil
	default:
		return DedupByAddress, fmt.Errorf("unknown dedup policy %q (expected address or none)", s)
	}
}

// AddResult reports what Registry.Add did with a receiver.
type AddResult int

const (
	// Published means the receiver was appended and subscribers were notified.
	Published AddResult = iota

	// Duplicate means the receiver was dropped by the dedup policy.
	Duplicate
)

func (r AddResult) String() string {
	if r == Duplicate {
		return "duplicate"
	}
	return "published"
}

// Registry is an append-only, concurrency-safe list of discovered receivers.
//
// Add holds a single lock across dedup check, subscriber notification and
// append, so notifications are delivered in the same order as Snapshot.
// Subscribers run inside that lock and must not call back into the Registry.
type Registry struct {
	mu          sync.Mutex
	policy      DedupPolicy
	receivers   []*Receiver
	seen        map[string]struct{}
	subscribers []subscriber
	nextSubID   int
}

type subscriber struct {
	id int
	fn func(*Receiver)
}

// NewRegistry creates an empty registry with the given dedup policy
func NewRegistry(policy DedupPolicy) *Registry {
	return &Registry{
		policy: policy,
		seen:   make(map[string]struct{}),
	}
}

// Policy returns the registry's dedup policy
func (r *Registry) Policy() DedupPolicy {
	return r.policy
}

// Add records a receiver and notifies subscribers before it becomes visible
// in Snapshot.
func (r *Registry) Add(receiver *Receiver) AddResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == DedupByAddress {
		key := receiver.Key()
		if _, ok := r.seen[key]; ok {
			return Duplicate
		}
		r.seen[key] = struct{}{}
	}

	for _, sub := range r.subscribers {
		sub.fn(receiver)
	}

	r.receivers = append(r.receivers, receiver)
	return Published
}

// Subscribe registers fn to be called once per published receiver.
// The returned function removes the subscription.
func (r *Registry) Subscribe(fn func(*Receiver)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers = append(r.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, sub := range r.subscribers {
				if sub.id == id {
					r.subscribers = append(r.subscribers[:i:i], r.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Snapshot returns a copy of the receivers in acceptance order
func (r *Registry) Snapshot() []*Receiver {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Receiver, len(r.receivers))
	copy(out, r.receivers)
	return out
}

// Len returns the number of recorded receivers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.receivers)
}

// Reset clears recorded receivers and dedup state. Subscriptions are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.receivers = nil
	r.seen = make(map[string]struct{})
}
