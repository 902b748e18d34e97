package discovery

import (
	"net/url"
	"testing"
)

func TestReceiver_String(t *testing.T) {
	receiver := &Receiver{
		Address: &url.URL{Scheme: "https", Host: "10.0.0.5"},
		Name:    "Living Room",
		Model:   "Chromecast Ultra",
		Port:    8009,
	}

	expected := "Living Room (Chromecast Ultra) at 10.0.0.5:8009"
	if receiver.String() != expected {
		t.Errorf("Receiver.String() = %v, want %v", receiver.String(), expected)
	}
}

func TestReceiver_Host(t *testing.T) {
	tests := []struct {
		name     string
		receiver *Receiver
		expected string
	}{
		{
			name:     "ipv4",
			receiver: &Receiver{Address: &url.URL{Scheme: "https", Host: "10.0.0.5"}},
			expected: "10.0.0.5",
		},
		{
			name:     "ipv6 brackets stripped",
			receiver: &Receiver{Address: &url.URL{Scheme: "https", Host: "[fe80::1]"}},
			expected: "fe80::1",
		},
		{
			name:     "nil address",
			receiver: &Receiver{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.receiver.Host(); got != tt.expected {
				t.Errorf("Receiver.Host() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReceiver_GetMetadata(t *testing.T) {
	receiver := &Receiver{
		Metadata: map[string]string{
			"id": "a1b2c3",
			"ca": "4101",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "existing key", key: "id", expected: "a1b2c3"},
		{name: "another existing key", key: "ca", expected: "4101"},
		{name: "non-existent key", key: "missing", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := receiver.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Receiver.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestReceiver_GetMetadata_NilMap(t *testing.T) {
	receiver := &Receiver{Metadata: nil}

	if got := receiver.GetMetadata("anything"); got != "" {
		t.Errorf("Receiver.GetMetadata() with nil map = %v, want empty string", got)
	}
	if got := receiver.ID(); got != "" {
		t.Errorf("Receiver.ID() with nil map = %v, want empty string", got)
	}
}

func TestReceiver_Capabilities(t *testing.T) {
	tests := []struct {
		ca       string
		expected int
	}{
		{"4101", 4101},
		{"5", 5},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.ca, func(t *testing.T) {
			receiver := &Receiver{Metadata: map[string]string{"ca": tt.ca}}
			if got := receiver.Capabilities(); got != tt.expected {
				t.Errorf("Receiver.Capabilities() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReceiver_Key(t *testing.T) {
	a := &Receiver{Address: &url.URL{Scheme: "https", Host: "10.0.0.5"}, Port: 8009}
	b := &Receiver{Address: &url.URL{Scheme: "https", Host: "10.0.0.5"}, Port: 8009, Name: "renamed"}
	c := &Receiver{Address: &url.URL{Scheme: "https", Host: "10.0.0.5"}, Port: 8443}

	if a.Key() != b.Key() {
		t.Errorf("same address and port should share a key: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() == c.Key() {
		t.Errorf("different ports should not share a key: %q", a.Key())
	}
}

func TestReceiver_View(t *testing.T) {
	receiver := &Receiver{
		Address:         &url.URL{Scheme: "https", Host: "10.0.0.5"},
		Name:            "Living Room",
		Model:           "Chromecast",
		FirmwareVersion: "1.0",
		Status:          "idle",
		Port:            8009,
		Metadata:        map[string]string{"id": "abc", "fn": "Living Room"},
	}

	view := receiver.View()
	if view.ID != "abc" || view.Address != "https://10.0.0.5" || view.Port != 8009 {
		t.Errorf("View() = %+v", view)
	}

	views := Views([]*Receiver{receiver, receiver})
	if len(views) != 2 {
		t.Errorf("Views() returned %d views, want 2", len(views))
	}
	if got := Views(nil); got == nil || len(got) != 0 {
		t.Errorf("Views(nil) = %v, want empty non-nil slice", got)
	}
}
