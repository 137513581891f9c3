package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zaricj/XMLuvation-sub001/internal/cli/hooks"
	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

const listHeightMargin = 7 // header, status, progress, footer, padding

// --- Styles ---

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// StopHandle lets the TUI request engine cancellation without a construction
// cycle: the model is built before the engine exists, and the engine's Stop
// is attached afterwards.
type StopHandle struct {
	mu sync.Mutex
	fn func()
}

// NewStopHandle creates an empty StopHandle.
func NewStopHandle() *StopHandle { return &StopHandle{} }

// Set attaches the stop function.
func (s *StopHandle) Set(fn func()) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()
}

// Invoke calls the attached stop function, if any. Safe to call repeatedly.
func (s *StopHandle) Invoke() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fileItem is one processed file in the list.
type fileItem struct {
	path     string
	status   export.Status
	matches  int
	duration time.Duration
}

// Title implements list.DefaultItem.
func (i fileItem) Title() string {
	switch i.status {
	case export.StatusMatched:
		return matchStyle.Render("✓ ") + i.path
	case export.StatusFailed:
		return errStyle.Render("✗ ") + i.path
	default:
		return statusStyle.Render("- ") + i.path
	}
}

// Description implements list.DefaultItem.
func (i fileItem) Description() string {
	switch i.status {
	case export.StatusMatched:
		return fmt.Sprintf("%d match(es) in %s", i.matches, i.duration.Round(time.Millisecond))
	case export.StatusFailed:
		return "parse failed"
	default:
		return "no matches"
	}
}

// FilterValue implements list.Item.
func (i fileItem) FilterValue() string { return i.path }

// Model is the Bubble Tea model monitoring one export run. It receives the
// engine's hook events as messages and renders a scrolling file list with a
// progress and summary footer.
type Model struct {
	list        list.Model
	spinner     spinner.Model
	stop        *StopHandle
	width       int
	height      int
	initialized bool

	statusText string
	percent    int
	lastNotice string

	matched  int
	noMatch  int
	failed   int
	quitting bool
	done     bool
	report   export.Report
}

// NewModel creates the TUI model. The StopHandle is invoked when the user
// aborts with q or Ctrl-C.
func NewModel(stop *StopHandle) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressStyle

	delegate := list.NewDefaultDelegate()
	fileList := list.New(nil, delegate, 0, 0)
	fileList.SetShowTitle(false)
	fileList.SetShowStatusBar(false)
	fileList.SetFilteringEnabled(false)
	fileList.SetShowHelp(false)

	return Model{
		list:       fileList,
		spinner:    sp,
		stop:       stop,
		statusText: "Starting…",
	}
}

// Report returns the final run report once the model has seen RunCompleteMsg.
func (m Model) Report() (export.Report, bool) { return m.report, m.done }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.initialized = true
		m.list.SetSize(msg.Width, max(msg.Height-listHeightMargin, 3))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			if !m.quitting {
				m.quitting = true
				m.statusText = "Aborting…"
				m.stop.Invoke()
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case hooks.StatusMsg:
		m.statusText = msg.Text
		return m, nil

	case hooks.ProgressMsg:
		m.percent = msg.Percent
		return m, nil

	case hooks.MessageMsg:
		switch msg.Kind {
		case export.MessageWarning:
			m.lastNotice = warnStyle.Render(msg.Text)
		case export.MessageError:
			m.lastNotice = errStyle.Render(msg.Text)
		default:
			m.lastNotice = msg.Text
		}
		return m, nil

	case hooks.FileProcessedMsg:
		switch msg.Status {
		case export.StatusMatched:
			m.matched++
		case export.StatusFailed:
			m.failed++
		default:
			m.noMatch++
		}
		item := fileItem{path: msg.Path, status: msg.Status, matches: msg.Matches, duration: msg.Duration}
		cmd := m.list.InsertItem(len(m.list.Items()), item)
		return m, cmd

	case hooks.RunCompleteMsg:
		m.done = true
		m.report = msg.Report
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.initialized {
		return "Initializing…"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("xmluvation export"))
	b.WriteString("  ")
	b.WriteString(m.spinner.View())
	b.WriteString(statusStyle.Render(m.statusText))
	b.WriteString("\n")
	b.WriteString(progressStyle.Render(renderProgress(m.percent, m.width)))
	b.WriteString("\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.lastNotice != "" {
		b.WriteString(m.lastNotice)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("matched: %d  no match: %d  failed: %d", m.matched, m.noMatch, m.failed))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render("q/ctrl+c: abort"))
	b.WriteString("\n")
	return b.String()
}

// renderProgress draws a simple percent bar sized to the terminal width.
func renderProgress(percent, width int) string {
	barWidth := width - 10
	if barWidth < 10 {
		barWidth = 10
	}
	filled := barWidth * percent / 100
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		percent)
}
