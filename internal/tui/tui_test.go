package tui

import (
	"errors"
	"strings"
	"testing"

	"audiorelay/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next
}

func TestResultsModel(t *testing.T) {
	var m tea.Model = NewResultsModel("ws://localhost:8000/audio", "Mic", nil)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View before size = %q", got)
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(m.View(), "Waiting for speech") {
		t.Errorf("empty view = %q", m.View())
	}

	m = update(t, m, ResultMsg{Original: "Hello world.", Translation: "Hola mundo.", Timestamp: 1})
	view := m.View()
	for _, want := range []string{"Hello world.", "Hola mundo.", "1 results", "Mic"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m = update(t, m, DoneMsg{Err: errors.New("server closed")})
	if !strings.Contains(m.View(), "Disconnected: server closed") {
		t.Errorf("view after done = %q", m.View())
	}
}

func TestResultsModelScrollbackBounded(t *testing.T) {
	var m tea.Model = NewResultsModel("ws://x", "", nil)
	for i := 0; i < maxResults+10; i++ {
		m = update(t, m, ResultMsg{Original: "x"})
	}
	if n := len(m.(ResultsModel).Results()); n != maxResults {
		t.Errorf("kept %d results, want %d", n, maxResults)
	}
}

func TestResultsModelQuit(t *testing.T) {
	calls := 0
	var m tea.Model = NewResultsModel("ws://x", "", func() { calls++ })
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
	next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if calls != 1 {
		t.Errorf("quit func called %d times, want 1", calls)
	}
}

func TestDeviceListModel(t *testing.T) {
	orig := devicesFunc
	defer func() { devicesFunc = orig }()
	devicesFunc = func() ([]audio.Device, error) {
		return []audio.Device{
			{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
			{ID: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
			{ID: 2, Name: "USB Mic", MaxInputChannels: 2, DefaultSampleRate: 22050},
		}, nil
	}

	var m tea.Model = NewDeviceListModel()
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m = update(t, m, m.Init()())

	view := m.View()
	if strings.Contains(view, "Speakers") {
		t.Error("output-only device listed")
	}
	if !strings.Contains(view, "Built-in Mic") || !strings.Contains(view, "USB Mic") {
		t.Errorf("view missing input devices:\n%s", view)
	}

	// Select the USB mic, open the rate screen and accept its default rate.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "22050 Hz") {
		t.Errorf("rate screen missing device default:\n%s", m.View())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	sel := m.(DeviceListModel).Selection()
	if sel == nil {
		t.Fatal("no selection after enter")
	}
	if sel.DeviceID != 2 || sel.SampleRate != 22050 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDeviceListModelError(t *testing.T) {
	orig := devicesFunc
	defer func() { devicesFunc = orig }()
	devicesFunc = func() ([]audio.Device, error) {
		return nil, errors.New("portaudio not initialized")
	}

	var m tea.Model = NewDeviceListModel()
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m = update(t, m, m.Init()())
	if !strings.Contains(m.View(), "portaudio not initialized") {
		t.Errorf("view = %q", m.View())
	}
	if m.(DeviceListModel).Selection() != nil {
		t.Error("selection set after error")
	}
}

func TestSampleRatesFor(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want int
	}{
		{"standard rate", 48000, len(availableSampleRates)},
		{"unusual rate appended", 22050, len(availableSampleRates) + 1},
		{"unknown rate", 0, len(availableSampleRates)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleRatesFor(audio.Device{DefaultSampleRate: tt.rate})
			if len(got) != tt.want {
				t.Errorf("got %v", got)
			}
		})
	}
}
