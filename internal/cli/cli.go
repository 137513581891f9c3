package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/zaricj/XMLuvation-sub001/internal/cli/config"
	"github.com/zaricj/XMLuvation-sub001/internal/cli/hooks"
	"github.com/zaricj/XMLuvation-sub001/internal/cli/ui"
	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

// Run wires the presentation surface (TUI, progress bar or plain logs) to
// the export engine and executes the run. The whole export happens off the
// caller's goroutine only in TUI mode, where Bubble Tea owns the terminal;
// engine events are marshaled back through the hooks in both modes.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	stop := ui.NewStopHandle()

	var (
		program *tea.Program
		h       export.Hooks
	)
	switch {
	case cfg.TuiEnabled:
		program = tea.NewProgram(ui.NewModel(stop), tea.WithOutput(os.Stderr))
		h = hooks.NewCLIHooks(logger, true, cfg.Verbose, program, nil)
	case !cfg.Verbose:
		h = hooks.NewCLIHooks(logger, false, cfg.Verbose, nil, newProgressBar())
	default:
		h = hooks.NewCLIHooks(logger, false, cfg.Verbose, nil, nil)
	}

	opts := cfg.Export
	opts.EventHooks = h
	engine, err := export.NewEngine(ctx, opts)
	if err != nil {
		logger.Error("Export configuration invalid", slog.Any("error", err))
		return err
	}
	stop.Set(engine.Stop)

	if program == nil {
		report, runErr := engine.Run()
		logSummary(logger, report)
		return runErr
	}

	var (
		report export.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = engine.Run()
	}()

	if _, tuiErr := program.Run(); tuiErr != nil {
		// Terminal went away; make sure the engine stops too.
		logger.Warn("TUI terminated unexpectedly", slog.Any("error", tuiErr))
		engine.Stop()
	}
	<-done

	fmt.Fprintln(os.Stdout, summaryLine(report))
	return runErr
}

// logSummary logs the terminal outcome of a run in non-TUI modes.
func logSummary(logger *slog.Logger, report export.Report) {
	s := report.Summary
	logger.Info("Export finished",
		slog.String("state", string(s.State)),
		slog.Int("processed", s.ProcessedFiles),
		slog.Int("filesWithMatches", s.FilesWithMatches),
		slog.Int("totalMatches", s.TotalMatches),
		slog.Int("rowsWritten", s.RowsWritten),
		slog.Int("warnings", s.WarningCount))
}

// summaryLine renders the one-line outcome printed after the TUI exits.
func summaryLine(report export.Report) string {
	s := report.Summary
	return fmt.Sprintf("%s: %d/%d files processed, %d with matches, %d rows written to %s (%.2fs, %d warning(s))",
		s.State, s.ProcessedFiles, s.TotalFiles, s.FilesWithMatches, s.RowsWritten, s.OutputPath, s.DurationSeconds, s.WarningCount)
}

// barAdapter adapts schollz/progressbar to the hooks.ProgressBar interface.
type barAdapter struct {
	bar *progressbar.ProgressBar
}

func (b *barAdapter) Set(percent int) error { return b.bar.Set(percent) }

func (b *barAdapter) Describe(description string) error {
	b.bar.Describe(description)
	return nil
}

func (b *barAdapter) Close() error { return b.bar.Close() }

// newProgressBar builds the stderr progress bar used when the TUI is off.
func newProgressBar() hooks.ProgressBar {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("exporting"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &barAdapter{bar: bar}
}
