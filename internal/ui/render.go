package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/castscan/internal/discovery"
)

// NameFunc maps a receiver to the name shown for it (e.g., a saved nickname).
type NameFunc func(*discovery.Receiver) string

func defaultName(r *discovery.Receiver) string { return r.Name }

// Printer renders receivers to a writer.
type Printer struct {
	out   io.Writer
	width int
	name  NameFunc
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		name:  defaultName,
	}
}

// WithNames sets how receiver names are displayed
func (p *Printer) WithNames(fn NameFunc) *Printer {
	if fn != nil {
		p.name = fn
	}
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintReceivers prints a title and one card per receiver
func (p *Printer) PrintReceivers(receivers []*discovery.Receiver, subtitle string) {
	p.Println(TitleStyle.Render("CAST RECEIVERS"))
	p.Println(SubtitleStyle.Render(subtitle))
	p.Println("")

	if len(receivers) == 0 {
		p.Println(RenderEmpty())
		return
	}

	for _, r := range receivers {
		p.Println(RenderReceiverCard(r, p.name(r), p.width))
	}
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// RenderReceiverCard renders one receiver as a bordered card
func RenderReceiverCard(r *discovery.Receiver, name string, width int) string {
	lines := []string{ReceiverNameStyle.Render(name)}
	if name != r.Name {
		lines = append(lines, detailLine("Name", r.Name))
	}
	lines = append(lines,
		detailLine("Address", fmt.Sprintf("%s (port %d)", r.AddressString(), r.Port)),
	)
	if r.Model != "" {
		lines = append(lines, detailLine("Model", r.Model))
	}
	if r.FirmwareVersion != "" {
		lines = append(lines, detailLine("Firmware", r.FirmwareVersion))
	}
	if r.Status != "" {
		lines = append(lines, KeyStyle.Render("Status")+" "+StatusStyle.Render(r.Status))
	}
	if id := r.ID(); id != "" {
		lines = append(lines, detailLine("ID", id))
	}

	return CardStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderReceiverLine renders a receiver on a single line
func RenderReceiverLine(r *discovery.Receiver, name string) string {
	line := fmt.Sprintf("%s %s  %s:%d", NewMarker, ReceiverNameStyle.Render(name), r.Host(), r.Port)
	if r.Model != "" {
		line += "  " + lipgloss.NewStyle().Foreground(MutedColor).Render(r.Model)
	}
	if r.Status != "" {
		line += "  " + StatusStyle.Render(r.Status)
	}
	return line
}

// RenderMetadata renders every TXT key sorted by key
func RenderMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, detailLine(k, metadata[k]))
	}
	return strings.Join(lines, "\n")
}

// RenderEmpty renders the no-receivers message with troubleshooting tips
func RenderEmpty() string {
	tips := []string{
		"Ensure the receiver is powered on and on the same network",
		"Check that multicast (UDP 5353) is not blocked by a firewall",
		"Guest or isolated Wi-Fi networks often block mDNS",
		"Try increasing --timeout for slower networks",
	}
	lines := []string{SubtitleStyle.Render("No receivers found."), "", SubtitleStyle.Render("Troubleshooting:")}
	for _, tip := range tips {
		lines = append(lines, SubtitleStyle.Render("  • "+tip))
	}
	return strings.Join(lines, "\n")
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{ErrorTitleStyle.Render(FailureMarker + "  FAILED  ─  " + title), ""}

	if err != nil {
		lines = append(lines, lipgloss.NewStyle().Foreground(ErrorColor).Render("Error: "+err.Error()), "")
	}
	for _, tip := range troubleshooting {
		lines = append(lines, lipgloss.NewStyle().Foreground(MutedColor).Render("  • "+tip))
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func detailLine(key, value string) string {
	return KeyStyle.Render(key) + " " + ValueStyle.Render(value)
}
