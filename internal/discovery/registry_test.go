package discovery

import (
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReceiver(host string, name string) *Receiver {
	return &Receiver{
		Address:  &url.URL{Scheme: "https", Host: host},
		Name:     name,
		Port:     8009,
		Metadata: map[string]string{"fn": name},
	}
}

func TestRegistry_AddAndSnapshot(t *testing.T) {
	reg := NewRegistry(DedupByAddress)

	r1 := testReceiver("10.0.0.1", "one")
	r2 := testReceiver("10.0.0.2", "two")

	assert.Equal(t, Published, reg.Add(r1))
	assert.Equal(t, Published, reg.Add(r2))

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Same(t, r1, snap[0])
	assert.Same(t, r2, snap[1])
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	reg := NewRegistry(DedupByAddress)
	reg.Add(testReceiver("10.0.0.1", "one"))

	snap := reg.Snapshot()
	snap[0] = nil

	assert.NotNil(t, reg.Snapshot()[0], "mutating a snapshot must not affect the registry")
}

func TestRegistry_DedupByAddress(t *testing.T) {
	reg := NewRegistry(DedupByAddress)

	var published []string
	reg.Subscribe(func(r *Receiver) { published = append(published, r.Name) })

	assert.Equal(t, Published, reg.Add(testReceiver("10.0.0.1", "first")))
	assert.Equal(t, Duplicate, reg.Add(testReceiver("10.0.0.1", "again")))
	assert.Equal(t, Published, reg.Add(testReceiver("10.0.0.2", "other")))

	assert.Equal(t, []string{"first", "other"}, published)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_DedupNone(t *testing.T) {
	reg := NewRegistry(DedupNone)

	var published int
	reg.Subscribe(func(*Receiver) { published++ })

	assert.Equal(t, Published, reg.Add(testReceiver("10.0.0.1", "first")))
	assert.Equal(t, Published, reg.Add(testReceiver("10.0.0.1", "again")))

	assert.Equal(t, 2, published)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_NotifiesBeforeVisible(t *testing.T) {
	reg := NewRegistry(DedupByAddress)

	lenAtNotify := -1
	snapshots := make(chan int, 1)
	reg.Subscribe(func(*Receiver) {
		// Snapshot would deadlock here; read the field directly under the held lock.
		lenAtNotify = len(reg.receivers)
	})
	go func() {
		reg.Add(testReceiver("10.0.0.1", "one"))
		snapshots <- reg.Len()
	}()

	assert.Equal(t, 1, <-snapshots)
	assert.Equal(t, 0, lenAtNotify)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	reg := NewRegistry(DedupByAddress)

	var a, b int
	unsubA := reg.Subscribe(func(*Receiver) { a++ })
	reg.Subscribe(func(*Receiver) { b++ })

	reg.Add(testReceiver("10.0.0.1", "one"))
	unsubA()
	unsubA() // idempotent
	reg.Add(testReceiver("10.0.0.2", "two"))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestRegistry_Reset(t *testing.T) {
	reg := NewRegistry(DedupByAddress)

	var notified int
	reg.Subscribe(func(*Receiver) { notified++ })

	reg.Add(testReceiver("10.0.0.1", "one"))
	reg.Reset()

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, Published, reg.Add(testReceiver("10.0.0.1", "one")), "dedup state should be cleared")
	assert.Equal(t, 2, notified, "subscriptions survive Reset")
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	const writers = 8
	const perWriter = 50

	reg := NewRegistry(DedupNone)

	var mu sync.Mutex
	var notified []*Receiver
	reg.Subscribe(func(r *Receiver) {
		mu.Lock()
		notified = append(notified, r)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				r := testReceiver(fmt.Sprintf("10.0.%d.%d", w, i), fmt.Sprintf("w%d-%d", w, i))
				r.Metadata["writer"] = fmt.Sprint(w)
				r.Metadata["seq"] = fmt.Sprint(i)
				reg.Add(r)
			}
		}(w)
	}
	wg.Wait()

	snap := reg.Snapshot()
	require.Len(t, snap, writers*perWriter, "no lost updates")

	// Each writer's records appear in its own submission order.
	next := make(map[string]int)
	for _, r := range snap {
		w := r.GetMetadata("writer")
		assert.Equal(t, fmt.Sprint(next[w]), r.GetMetadata("seq"), "writer %s out of order", w)
		next[w]++
	}

	// Notification order matches snapshot order.
	require.Len(t, notified, len(snap))
	for i := range snap {
		assert.Same(t, snap[i], notified[i])
	}
}

func TestParseDedupPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DedupPolicy
		wantErr bool
	}{
		{"", DedupByAddress, false},
		{"address", DedupByAddress, false},
		{"ADDRESS", DedupByAddress, false},
		{"none", DedupNone, false},
		{"off", DedupNone, false},
		{"name", DedupByAddress, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDedupPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" && tt.in != "off" && tt.in != "ADDRESS" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}
