package export

import (
	"log/slog"
	"time"
)

// Hooks defines the one-way notification channel from the engine to any
// observer (CLI, TUI or log). Implementations MUST be goroutine-safe and
// must not block: the engine never waits on a consumer.
type Hooks interface {
	// OnMessage delivers a human-readable notice of the given kind.
	OnMessage(kind MessageKind, text string)
	// OnStatus delivers a one-line status text ("Scanning folder…").
	OnStatus(text string)
	// OnProgress delivers percent complete, 0-100, monotonically
	// non-decreasing within a run.
	OnProgress(percent int)
	// OnFileProcessed reports the terminal status of a single file.
	OnFileProcessed(path string, status Status, matches int, duration time.Duration)
	// OnRunComplete delivers the final report once the run reaches a
	// terminal state (completed, aborted or failed).
	OnRunComplete(report Report)
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks
// interface. It is substituted when Options.EventHooks is nil.
type NoOpHooks struct{}

// OnMessage implements Hooks. It performs no action.
func (h *NoOpHooks) OnMessage(kind MessageKind, text string) {}

// OnStatus implements Hooks. It performs no action.
func (h *NoOpHooks) OnStatus(text string) {}

// OnProgress implements Hooks. It performs no action.
func (h *NoOpHooks) OnProgress(percent int) {}

// OnFileProcessed implements Hooks. It performs no action.
func (h *NoOpHooks) OnFileProcessed(path string, status Status, matches int, duration time.Duration) {
}

// OnRunComplete implements Hooks. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) {}

// Options holds the fully resolved configuration for one export run. The
// engine accepts explicit parameters only; it never reads ambient state or
// the CLI's config store.
type Options struct {
	// FolderPath is the directory scanned for .xml files (non-recursive).
	FolderPath string `mapstructure:"folder"`
	// OutputPath is the destination CSV file. Parent directories are
	// created if missing; an existing file is truncated.
	OutputPath string `mapstructure:"output"`
	// Filters is the ordered list of (expression, header) pairs evaluated
	// against every file. Immutable once the run starts.
	Filters []FilterEntry `mapstructure:"-"`
	// GroupMatches selects one row per file (true, values semicolon-joined)
	// versus one row per match index (false).
	GroupMatches bool `mapstructure:"group"`
	// Concurrency is the worker pool size. 0 auto-detects CPU count; the
	// effective value is clamped to [1, MaxConcurrency].
	Concurrency int `mapstructure:"concurrency"`

	// EventHooks receives progress and status notifications. Optional;
	// NoOpHooks is used when nil.
	EventHooks Hooks `mapstructure:"-"`
	// Logger is the logging backend. Required.
	Logger slog.Handler `mapstructure:"-"`
}
