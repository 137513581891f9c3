package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

// --- TUI message structs ---

// MessageMsg carries an info/warning/error/append notice to the TUI.
type MessageMsg struct {
	Kind export.MessageKind
	Text string
}

// StatusMsg carries a one-line status text to the TUI.
type StatusMsg struct{ Text string }

// ProgressMsg carries percent complete (0-100) to the TUI.
type ProgressMsg struct{ Percent int }

// FileProcessedMsg signals the terminal status of one file.
type FileProcessedMsg struct {
	Path     string
	Status   export.Status
	Matches  int
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire export run.
type RunCompleteMsg struct{ Report export.Report }

// --- Hook implementation ---

// TUIProgram defines the interface needed to interact with the Bubble Tea
// program, decoupled for testing.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar defines the interface needed to interact with the progress
// bar, decoupled for testing.
type ProgressBar interface {
	Set(percent int) error
	Describe(description string) error
	Close() error
}

// CLIHooks implements export.Hooks, bridging engine events to the CLI's
// presentation layer (TUI, progress bar, or plain logs). All methods are
// goroutine-safe and never block.
type CLIHooks struct {
	logger      *slog.Logger
	tuiEnabled  bool
	verbose     bool
	tuiProgram  TUIProgram
	progressBar ProgressBar
	mu          sync.Mutex // protects progressBar
}

// NewCLIHooks creates a CLIHooks instance. Pass nil for tuiProgram or
// progressBar when that surface is not in use.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verbose bool, tuiProgram TUIProgram, progressBar ProgressBar) *CLIHooks {
	return &CLIHooks{
		logger:      logger,
		tuiEnabled:  tuiEnabled,
		verbose:     verbose,
		tuiProgram:  tuiProgram,
		progressBar: progressBar,
	}
}

// OnMessage implements export.Hooks.
func (h *CLIHooks) OnMessage(kind export.MessageKind, text string) {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(MessageMsg{Kind: kind, Text: text})
		return
	}
	switch kind {
	case export.MessageWarning:
		h.logger.Warn(text)
	case export.MessageError:
		h.logger.Error(text)
	default:
		h.logger.Info(text)
	}
}

// OnStatus implements export.Hooks.
func (h *CLIHooks) OnStatus(text string) {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(StatusMsg{Text: text})
		return
	}
	if h.progressBar != nil {
		h.mu.Lock()
		_ = h.progressBar.Describe(text)
		h.mu.Unlock()
		return
	}
	h.logger.Info(text)
}

// OnProgress implements export.Hooks.
func (h *CLIHooks) OnProgress(percent int) {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(ProgressMsg{Percent: percent})
		return
	}
	if h.progressBar != nil {
		h.mu.Lock()
		_ = h.progressBar.Set(percent)
		h.mu.Unlock()
	}
}

// OnFileProcessed implements export.Hooks.
func (h *CLIHooks) OnFileProcessed(path string, status export.Status, matches int, duration time.Duration) {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(FileProcessedMsg{Path: path, Status: status, Matches: matches, Duration: duration})
		return
	}
	if h.verbose {
		h.logger.Debug("File processed",
			slog.String("path", path),
			slog.String("status", string(status)),
			slog.Int("matches", matches),
			slog.Duration("duration", duration))
	}
	// Per-file parse failures surface through OnMessage warnings; nothing
	// extra to do here in progress-bar or plain mode.
}

// OnRunComplete implements export.Hooks.
func (h *CLIHooks) OnRunComplete(report export.Report) {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return
	}
	if h.progressBar != nil {
		h.mu.Lock()
		_ = h.progressBar.Close()
		h.mu.Unlock()
		// Newline after the bar so the summary does not overlap the prompt.
		_, _ = fmt.Fprintf(os.Stderr, "\n")
	}
}
