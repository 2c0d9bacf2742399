package tui

import (
	"fmt"
	"strings"

	"audiorelay/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the device and capture rate chosen in the picker.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
}

// availableSampleRates are offered on the configuration screen. The
// device's default rate is added when missing.
var availableSampleRates = []float64{16000, 44100, 48000, 96000}

// DeviceListModel is the Bubble Tea model for picking a capture device
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	// Configuration options
	sampleRates     []float64
	sampleRateIndex int

	selection *Selection
}

// devicesFunc lists devices; swapped in tests.
var devicesFunc = audio.HostDevices

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// fetchDevices gets the available input devices
func fetchDevices() tea.Msg {
	devices, err := devicesFunc()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{audio.InputOnly(devices)}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// Update handles input and updates the model
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, upKeys):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, downKeys):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, enterKeys):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.sampleRates = sampleRatesFor(m.devices[m.selectedIndex])
					m.sampleRateIndex = 0
					for i, rate := range m.sampleRates {
						if rate == m.devices[m.selectedIndex].DefaultSampleRate {
							m.sampleRateIndex = i
							break
						}
					}
					m.viewport.SetContent(m.renderDeviceConfig())
				}
			}

		case ConfigScreen:
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, upKeys):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
					m.viewport.SetContent(m.renderDeviceConfig())
				}

			case key.Matches(msg, downKeys):
				if m.sampleRateIndex < len(m.sampleRates)-1 {
					m.sampleRateIndex++
					m.viewport.SetContent(m.renderDeviceConfig())
				}

			case key.Matches(msg, enterKeys):
				device := m.devices[m.selectedIndex]
				m.selection = &Selection{
					DeviceID:   device.ID,
					DeviceName: device.Name,
					SampleRate: m.sampleRates[m.sampleRateIndex],
				}
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Capture Rate")
		help = infoStyle.Render("↑/↓: Change Value • Enter: Stream • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No input devices found."
	}

	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s\n", device.ID, device.Name)
		deviceInfo += fmt.Sprintf("    Input channels: %d\n", device.MaxInputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceConfig formats the capture rate screen
func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("Configure Device: %s\n\n", device.Name))
	sb.WriteString("Capture Rate (resampled to the stream rate):\n")

	for i, rate := range m.sampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	return sb.String()
}

// Selection returns the chosen device, or nil if the picker was cancelled.
func (m DeviceListModel) Selection() *Selection {
	return m.selection
}

func sampleRatesFor(d audio.Device) []float64 {
	rates := append([]float64(nil), availableSampleRates...)
	for _, r := range rates {
		if r == d.DefaultSampleRate {
			return rates
		}
	}
	if d.DefaultSampleRate > 0 {
		rates = append(rates, d.DefaultSampleRate)
	}
	return rates
}

// NewDeviceListModel creates a new device list model
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{
		selectedIndex: 0,
		activeScreen:  ListScreen,
	}
}

// PickDevice runs the picker and returns the selection, or nil when the
// user quits without choosing. PortAudio must be initialized.
func PickDevice() (*Selection, error) {
	p := tea.NewProgram(
		NewDeviceListModel(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(DeviceListModel); ok {
		return m.Selection(), nil
	}
	return nil, nil
}
