package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/castscan/internal/discovery"
)

// notificationBuffer sizes the live notification channel; overflow is
// dropped by the locator and the final snapshot still lists every receiver.
const notificationBuffer = 64

// Messages for async operations
type receiverFoundMsg struct {
	receiver *discovery.Receiver
}

type sessionDoneMsg struct {
	receivers []*discovery.Receiver
	err       error
}

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Stop key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Stop}}
}

// WatchModel runs one discovery session and lists receivers as they are
// announced. The program quits when the session ends.
type WatchModel struct {
	// Session state
	Scanning  bool
	Receivers []*discovery.Receiver
	Err       error
	Dropped   int64

	// UI state
	Width     int
	Spinner   spinner.Model
	Help      help.Model
	Keys      watchKeyMap
	StartTime time.Time
	Timeout   time.Duration

	locator       *discovery.Locator
	ctx           context.Context
	cancel        context.CancelFunc
	notifications <-chan *discovery.Receiver
	unsubscribe   func()
	name          NameFunc
}

// NewWatchModel creates a watch model for one session on locator. The
// session ends after the locator's timeout, when ctx is done, or when the
// user presses the stop key.
func NewWatchModel(ctx context.Context, locator *discovery.Locator, name NameFunc) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	if name == nil {
		name = defaultName
	}

	sessionCtx, cancel := context.WithTimeout(ctx, locator.Timeout())
	notifications, unsubscribe := locator.Notifications(notificationBuffer)

	return WatchModel{
		Scanning: true,
		Width:    GetTerminalWidth(),
		Spinner:  s,
		Help:     help.New(),
		Keys: watchKeyMap{
			Stop: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "stop"),
			),
		},
		StartTime:     time.Now(),
		Timeout:       locator.Timeout(),
		locator:       locator,
		ctx:           sessionCtx,
		cancel:        cancel,
		notifications: notifications,
		unsubscribe:   unsubscribe,
		name:          name,
	}
}

// Init starts the session, the notification reader and the spinner
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(
		m.runSession,
		m.waitForReceiver,
		m.Spinner.Tick,
	)
}

func (m WatchModel) runSession() tea.Msg {
	receivers, err := m.locator.FindReceiversWithContext(m.ctx)
	return sessionDoneMsg{receivers: receivers, err: err}
}

// waitForReceiver blocks until the next notification. A closed channel
// yields no message.
func (m WatchModel) waitForReceiver() tea.Msg {
	r, ok := <-m.notifications
	if !ok {
		return nil
	}
	return receiverFoundMsg{receiver: r}
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.Keys.Stop) {
			// Ending the session early still yields the partial result
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width

	case receiverFoundMsg:
		if m.Scanning {
			m.Receivers = append(m.Receivers, msg.receiver)
		}
		return m, m.waitForReceiver

	case sessionDoneMsg:
		m.Scanning = false
		m.Err = msg.err
		if msg.err == nil {
			// The session snapshot is authoritative; live notifications may
			// have been dropped or still be queued.
			m.Receivers = msg.receivers
		}
		m.Dropped = m.locator.DroppedNotifications()
		m.cancel()
		m.unsubscribe()
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the watch screen
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("CAST RECEIVERS"))
	b.WriteString("\n")

	if m.Scanning {
		elapsed := time.Since(m.StartTime).Truncate(100 * time.Millisecond)
		b.WriteString(fmt.Sprintf("  %s Browsing %s (%s / %s)\n\n",
			m.Spinner.View(), m.locator.ServiceType(), elapsed, m.Timeout))
	} else {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("Found %d receiver(s)", len(m.Receivers))))
		b.WriteString("\n\n")
	}

	if m.Err != nil {
		b.WriteString(RenderErrorBox("Discovery", m.Err, []string{
			"Check that this host has a multicast-capable network interface",
			"Try running with CASTSCAN_LOG_LEVEL=debug for details",
		}, m.Width))
		b.WriteString("\n")
		return b.String()
	}

	for _, r := range m.Receivers {
		b.WriteString("  ")
		b.WriteString(RenderReceiverLine(r, m.name(r)))
		b.WriteString("\n")
	}

	if !m.Scanning && len(m.Receivers) == 0 {
		b.WriteString(RenderEmpty())
		b.WriteString("\n")
	}

	if m.Scanning {
		b.WriteString("\n  ")
		b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
		b.WriteString("\n")
	}

	return b.String()
}
