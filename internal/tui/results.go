package tui

import (
	"fmt"
	"strings"
	"time"

	"audiorelay/internal/pipeline"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxResults bounds the scrollback kept in the results view.
const maxResults = 500

// ResultMsg delivers one result from the server.
type ResultMsg pipeline.Result

// DoneMsg reports that streaming ended, with the error if any.
type DoneMsg struct {
	Err error
}

// ResultsModel shows results as they arrive
type ResultsModel struct {
	serverURL string
	device    string

	results  []pipeline.Result
	viewport viewport.Model
	ready    bool
	done     bool
	err      error
	quit     func()
}

// NewResultsModel creates the results view. quit is called once when the
// user asks to exit, so the caller can stop streaming.
func NewResultsModel(serverURL, device string, quit func()) ResultsModel {
	return ResultsModel{serverURL: serverURL, device: device, quit: quit}
}

// Init initializes the Bubble Tea model
func (m ResultsModel) Init() tea.Cmd {
	return nil
}

// Update handles results and key input
func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-5)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 5
		}
		m.refresh()

	case ResultMsg:
		m.results = append(m.results, pipeline.Result(msg))
		if len(m.results) > maxResults {
			m.results = m.results[len(m.results)-maxResults:]
		}
		m.refresh()

	case DoneMsg:
		m.done = true
		m.err = msg.Err

	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			if m.quit != nil {
				m.quit()
				m.quit = nil
			}
			return m, tea.Quit
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *ResultsModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderResults())
	m.viewport.GotoBottom()
}

// View renders the UI
func (m ResultsModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Audio Relay")
	help := infoStyle.Render("↑/↓: Scroll • q: Quit")
	return fmt.Sprintf("%s %s\n\n%s\n\n%s\n%s", title, m.header(), m.viewport.View(), m.status(), help)
}

func (m ResultsModel) header() string {
	h := m.serverURL
	if m.device != "" {
		h += " • " + m.device
	}
	return dimStyle.Render(h)
}

func (m ResultsModel) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(fmt.Sprintf("Disconnected: %v", m.err))
	case m.done:
		return dimStyle.Render(fmt.Sprintf("Stopped • %d results", len(m.results)))
	default:
		return highlightStyle.Render(fmt.Sprintf("Streaming • %d results", len(m.results)))
	}
}

// renderResults formats the result list
func (m ResultsModel) renderResults() string {
	if len(m.results) == 0 {
		return dimStyle.Render("Waiting for speech...")
	}

	var sb strings.Builder
	for _, r := range m.results {
		sb.WriteString(dimStyle.Render(formatClock(r.Timestamp)))
		sb.WriteString(" ")
		sb.WriteString(r.Original)
		sb.WriteString("\n    ")
		sb.WriteString(highlightStyle.Render("→ " + r.Translation))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Results returns the results currently shown.
func (m ResultsModel) Results() []pipeline.Result {
	return m.results
}

func formatClock(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("15:04:05")
}

// ResultsView runs a ResultsModel program and feeds it results. It
// satisfies client.ResultSink.
type ResultsView struct {
	program *tea.Program
}

// NewResultsView creates the program without starting it.
func NewResultsView(serverURL, device string, quit func()) *ResultsView {
	return &ResultsView{
		program: tea.NewProgram(NewResultsModel(serverURL, device, quit), tea.WithAltScreen()),
	}
}

// HandleResult forwards r to the running program.
func (v *ResultsView) HandleResult(r pipeline.Result) {
	v.program.Send(ResultMsg(r))
}

// Done tells the program that streaming has ended.
func (v *ResultsView) Done(err error) {
	v.program.Send(DoneMsg{Err: err})
}

// Run blocks until the user quits.
func (v *ResultsView) Run() error {
	_, err := v.program.Run()
	return err
}
