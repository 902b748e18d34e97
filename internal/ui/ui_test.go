package ui

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/castscan/internal/discovery"
)

func receiver(name, host string) *discovery.Receiver {
	return &discovery.Receiver{
		Address:         &url.URL{Scheme: "https", Host: host},
		Name:            name,
		Model:           "Chromecast",
		FirmwareVersion: "1.56",
		Status:          "Netflix",
		Port:            8009,
		Metadata:        map[string]string{"fn": name, "id": "id-" + name},
	}
}

// staticBrowser announces a fixed set of services when Browse is called.
type staticBrowser struct {
	mu       sync.Mutex
	browsing bool
	anns     []discovery.Announcement
	err      error
}

func (b *staticBrowser) Browse(_ string, handler discovery.AnnouncementHandler) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	b.browsing = true
	b.mu.Unlock()
	for _, a := range b.anns {
		handler(a)
	}
	return nil
}

func (b *staticBrowser) Stop() error {
	b.mu.Lock()
	b.browsing = false
	b.mu.Unlock()
	return nil
}

func (b *staticBrowser) Browsing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.browsing
}

func TestPrinter_PrintReceivers(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintReceivers([]*discovery.Receiver{receiver("Kitchen", "10.0.0.7")}, "1 receiver")

	out := buf.String()
	assert.Contains(t, out, "CAST RECEIVERS")
	assert.Contains(t, out, "Kitchen")
	assert.Contains(t, out, "https://10.0.0.7")
	assert.Contains(t, out, "Chromecast")
	assert.Contains(t, out, "Netflix")
	assert.Contains(t, out, "id-Kitchen")
}

func TestPrinter_Nicknames(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).WithNames(func(r *discovery.Receiver) string {
		return "Telly"
	})

	p.PrintReceivers([]*discovery.Receiver{receiver("Kitchen", "10.0.0.7")}, "")

	out := buf.String()
	assert.Contains(t, out, "Telly")
	assert.Contains(t, out, "Kitchen")
}

func TestPrinter_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintReceivers(nil, "")

	assert.Contains(t, buf.String(), "No receivers found.")
	assert.Contains(t, buf.String(), "Troubleshooting")
}

func TestRenderErrorBox(t *testing.T) {
	out := RenderErrorBox("Discovery", errors.New("no multicast interface"), []string{"check the network"}, MinTerminalWidth)

	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "no multicast interface")
	assert.Contains(t, out, "check the network")
}

func TestRenderMetadata_Sorted(t *testing.T) {
	out := RenderMetadata(map[string]string{"md": "Chromecast", "fn": "Kitchen"})

	assert.Less(t, bytes.Index([]byte(out), []byte("fn")), bytes.Index([]byte(out), []byte("md")))
}

func TestWatchModel_Updates(t *testing.T) {
	browser := &staticBrowser{}
	locator := discovery.NewLocator(browser, discovery.WithTimeout(time.Second))
	m := NewWatchModel(context.Background(), locator, nil)
	assert.True(t, m.Scanning)

	model, cmd := m.Update(receiverFoundMsg{receiver: receiver("Kitchen", "10.0.0.7")})
	m = model.(WatchModel)
	require.Len(t, m.Receivers, 1)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Kitchen")
	assert.Contains(t, m.View(), "_googlecast._tcp")

	final := []*discovery.Receiver{receiver("Kitchen", "10.0.0.7"), receiver("Den", "10.0.0.8")}
	model, cmd = m.Update(sessionDoneMsg{receivers: final})
	m = model.(WatchModel)
	assert.False(t, m.Scanning)
	assert.Len(t, m.Receivers, 2)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Contains(t, m.View(), "Found 2 receiver(s)")

	// Late notifications after the session are ignored
	model, _ = m.Update(receiverFoundMsg{receiver: receiver("Late", "10.0.0.9")})
	assert.Len(t, model.(WatchModel).Receivers, 2)
}

func TestWatchModel_StopKeyCancelsSession(t *testing.T) {
	browser := &staticBrowser{}
	locator := discovery.NewLocator(browser, discovery.WithTimeout(time.Minute))
	m := NewWatchModel(context.Background(), locator, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.Error(t, m.ctx.Err())

	// The cancelled session returns promptly
	msg := m.runSession()
	done, ok := msg.(sessionDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
}

func TestWatchModel_SessionDeliversReceivers(t *testing.T) {
	browser := &staticBrowser{anns: []discovery.Announcement{
		{Addresses: []string{"10.0.0.7"}, Port: 8009, Text: []string{"fn=Kitchen", "md=Chromecast"}},
	}}
	locator := discovery.NewLocator(browser, discovery.WithTimeout(20*time.Millisecond))
	m := NewWatchModel(context.Background(), locator, nil)

	msg := m.runSession()
	done, ok := msg.(sessionDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	require.Len(t, done.receivers, 1)

	live, ok := m.waitForReceiver().(receiverFoundMsg)
	require.True(t, ok)
	assert.Equal(t, "Kitchen", live.receiver.Name)

	model, _ := m.Update(done)
	m = model.(WatchModel)
	assert.Len(t, m.Receivers, 1)

	// Channel is closed once the session has been handled
	assert.Nil(t, m.waitForReceiver())
}

func TestWatchModel_SessionError(t *testing.T) {
	browser := &staticBrowser{err: errors.New("no interfaces")}
	locator := discovery.NewLocator(browser, discovery.WithTimeout(20*time.Millisecond))
	m := NewWatchModel(context.Background(), locator, nil)

	msg := m.runSession()
	model, _ := m.Update(msg)
	m = model.(WatchModel)

	require.Error(t, m.Err)
	assert.ErrorIs(t, m.Err, discovery.ErrBrowseFailed)
	assert.Contains(t, m.View(), "FAILED")
}
