package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Engine orchestrates one export run: it owns the worker pool, streams
// completed file results into the CSV sink, accumulates the run statistics,
// and exposes cooperative cancellation. Statistics and the sink are mutated
// only from the single consumer loop inside Run, so no locking is needed for
// them; the stop flag is the only state written from outside.
type Engine struct {
	opts        *Options
	logger      *slog.Logger
	hooks       Hooks
	filters     []compiledFilter
	columns     []string
	concurrency int

	ctx           context.Context
	cancelFunc    context.CancelFunc
	state         atomic.Value // RunState
	stopRequested atomic.Bool
}

// NewEngine validates the options and prepares an export run. Validation
// failures (missing folder, empty output path, empty filter list, duplicate
// or uncompilable expressions) are reported as a single warning through the
// hooks and returned wrapping ErrConfigValidation; no work starts and the
// output path is never touched. The engine is in StateValidating while the
// checks run and rests at StateIdle once ready.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))
	hooks := opts.EventHooks

	engineCtx, cancelFunc := context.WithCancel(ctx)
	engine := &Engine{
		opts:       &opts,
		logger:     logger,
		hooks:      hooks,
		ctx:        engineCtx,
		cancelFunc: cancelFunc,
	}
	engine.state.Store(StateValidating)

	fail := func(err error) (*Engine, error) {
		engine.state.Store(StateFailed)
		cancelFunc()
		hooks.OnMessage(MessageWarning, err.Error())
		logger.Warn("Export configuration rejected", slog.String("error", err.Error()))
		return nil, err
	}

	info, err := os.Stat(opts.FolderPath)
	if err != nil {
		return fail(fmt.Errorf("%w: cannot access folder %q: %v", ErrConfigValidation, opts.FolderPath, err))
	}
	if !info.IsDir() {
		return fail(fmt.Errorf("%w: %q is not a directory", ErrConfigValidation, opts.FolderPath))
	}
	if opts.OutputPath == "" {
		return fail(fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation))
	}
	if len(opts.Filters) == 0 {
		return fail(fmt.Errorf("%w: at least one XPath filter is required", ErrConfigValidation))
	}
	filters, err := compileFilters(opts.Filters)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrConfigValidation, err))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		logger.Debug("Concurrency auto-detected", slog.Int("count", concurrency))
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}
	if concurrency < 1 {
		concurrency = 1
	}

	engine.filters = filters
	engine.columns = DeriveColumns(opts.Filters)
	engine.concurrency = concurrency
	// Validated and ready; Run moves the engine to Running.
	engine.state.Store(StateIdle)
	return engine, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() RunState {
	if s, ok := e.state.Load().(RunState); ok {
		return s
	}
	return StateIdle
}

// Stop requests cooperative cancellation of a running export. It is
// idempotent, safe to call from any goroutine at any time, and a no-op when
// the engine is not running. Once observed by the consumer loop, no further
// rows are written to the output CSV.
func (e *Engine) Stop() {
	if e.State() != StateRunning {
		return
	}
	if e.stopRequested.CompareAndSwap(false, true) {
		e.logger.Info("Stop requested, cancelling in-flight work")
		e.hooks.OnMessage(MessageInfo, "Stopping export…")
		e.cancelFunc()
	}
}

// runStats is the mutable aggregate owned exclusively by the consumer loop.
type runStats struct {
	total            int
	processed        int
	filesWithMatches int
	totalMatches     int
	filesWritten     int
	rowsWritten      int
	warnings         []ErrorInfo
}

// Run executes the export and blocks until it reaches a terminal state. It
// returns the final report together with an error only when the run failed
// outright (sink open/write failure); a user abort yields a report with
// state aborted and a nil error. Output row order across files follows task
// completion order, not directory order; within one file, row order is
// deterministic.
func (e *Engine) Run() (Report, error) {
	startTime := time.Now()
	e.state.Store(StateRunning)
	defer e.cancelFunc()

	e.logger.Info("Starting export run",
		slog.String("folder", e.opts.FolderPath),
		slog.String("output", e.opts.OutputPath),
		slog.Int("filters", len(e.filters)),
		slog.Bool("groupMatches", e.opts.GroupMatches),
		slog.Int("concurrency", e.concurrency))

	e.hooks.OnStatus("Scanning folder for XML files…")
	files, err := NewScanner(e.opts.FolderPath, e.opts.Logger).Scan()
	if err != nil {
		return e.finishFailed(startTime, &runStats{}, fmt.Errorf("folder scan failed: %w", err))
	}

	stats := &runStats{total: len(files)}
	if len(files) == 0 {
		// Nothing to do; by decision no CSV is created for an empty folder.
		e.hooks.OnMessage(MessageInfo, fmt.Sprintf("No XML files found in %s, nothing to export.", e.opts.FolderPath))
		e.hooks.OnProgress(100)
		return e.finish(startTime, stats, StateCompleted), nil
	}

	sink, err := NewCSVSink(e.opts.OutputPath, e.columns)
	if err != nil {
		return e.finishFailed(startTime, stats, err)
	}

	processor := newFileProcessor(e.filters, e.opts.GroupMatches, e.opts.Logger)
	workerChan := make(chan string)
	resultsChan := make(chan FileResult, e.concurrency)
	var wg sync.WaitGroup

	e.logger.Debug("Starting worker pool", slog.Int("count", e.concurrency))
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.worker(&wg, i, processor, workerChan, resultsChan)
	}

	// Feed file paths to the pool; stops submitting once cancelled.
	go func() {
		defer close(workerChan)
		for _, path := range files {
			select {
			case workerChan <- path:
			case <-e.ctx.Done():
				return
			}
		}
	}()

	// Close the results channel only after every worker has exited, so the
	// consumer below drains everything that was actually produced.
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	e.hooks.OnStatus(fmt.Sprintf("Exporting matches from %d files…", stats.total))

	var fatal error
	lastPercent := 0
	for result := range resultsChan {
		stats.processed++
		e.consumeResult(stats, sink, result, &fatal)

		if percent := stats.processed * 100 / stats.total; percent > lastPercent {
			lastPercent = percent
			e.hooks.OnProgress(percent)
		}
	}

	if closeErr := sink.Close(); closeErr != nil && fatal == nil {
		fatal = closeErr
	}

	switch {
	case fatal != nil:
		return e.finishFailed(startTime, stats, fatal)
	case e.stopRequested.Load() || e.ctx.Err() != nil:
		e.hooks.OnMessage(MessageWarning, fmt.Sprintf("Export aborted by user after %d of %d files.", stats.processed, stats.total))
		return e.finish(startTime, stats, StateAborted), nil
	default:
		report := e.finish(startTime, stats, StateCompleted)
		e.hooks.OnMessage(MessageInfo, summaryNotice(report.Summary))
		return report, nil
	}
}

// worker pulls file paths until the channel closes or the run is cancelled.
func (e *Engine) worker(wg *sync.WaitGroup, workerID int, processor *FileProcessor, workerChan <-chan string, resultsChan chan<- FileResult) {
	defer wg.Done()
	wLogger := e.logger.With(slog.Int("workerID", workerID))
	wLogger.Debug("Worker started")
	for {
		select {
		case path, ok := <-workerChan:
			if !ok {
				wLogger.Debug("Worker shutting down (channel closed)")
				return
			}
			resultsChan <- processor.ProcessFile(e.ctx, path)
		case <-e.ctx.Done():
			wLogger.Debug("Worker shutting down (run cancelled)")
			return
		}
	}
}

// consumeResult applies one completed file result to the statistics and the
// sink. Runs on the single consumer only. Rows are dropped, not written,
// once cancellation has been observed or a fatal sink error occurred.
func (e *Engine) consumeResult(stats *runStats, sink *CSVSink, result FileResult, fatal *error) {
	switch {
	case result.Warning != "":
		stats.warnings = append(stats.warnings, ErrorInfo{Path: result.Path, Error: result.Warning})
		e.hooks.OnMessage(MessageWarning, result.Warning)
		e.hooks.OnFileProcessed(result.Path, StatusFailed, 0, result.Duration)
	case result.HasMatches:
		stats.filesWithMatches++
		stats.totalMatches += result.MatchCount
		e.hooks.OnFileProcessed(result.Path, StatusMatched, result.MatchCount, result.Duration)
	default:
		e.hooks.OnFileProcessed(result.Path, StatusNoMatch, 0, result.Duration)
	}

	aborted := e.stopRequested.Load() || e.ctx.Err() != nil
	if aborted || *fatal != nil || len(result.Rows) == 0 {
		return
	}
	for _, row := range result.Rows {
		if err := sink.WriteRow(row); err != nil {
			*fatal = err
			e.cancelFunc()
			return
		}
		stats.rowsWritten++
	}
	stats.filesWritten++
}

// finish stamps the terminal state, builds the report and fires the
// completion hook.
func (e *Engine) finish(startTime time.Time, stats *runStats, state RunState) Report {
	e.state.Store(state)
	report := Report{
		Summary: Summary{
			FolderPath:       e.opts.FolderPath,
			OutputPath:       e.opts.OutputPath,
			TotalFiles:       stats.total,
			ProcessedFiles:   stats.processed,
			FilesWithMatches: stats.filesWithMatches,
			TotalMatches:     stats.totalMatches,
			FilesWritten:     stats.filesWritten,
			RowsWritten:      stats.rowsWritten,
			WarningCount:     len(stats.warnings),
			State:            state,
			GroupMatches:     e.opts.GroupMatches,
			Concurrency:      e.concurrency,
			DurationSeconds:  time.Since(startTime).Seconds(),
			Timestamp:        time.Now().UTC(),
		},
		Warnings: append([]ErrorInfo(nil), stats.warnings...),
	}
	e.logger.Info("Export run finished",
		slog.String("state", string(state)),
		slog.Int("processed", report.Summary.ProcessedFiles),
		slog.Int("filesWithMatches", report.Summary.FilesWithMatches),
		slog.Int("rowsWritten", report.Summary.RowsWritten),
		slog.Int("warnings", report.Summary.WarningCount),
		slog.Duration("duration", time.Since(startTime)))
	e.hooks.OnRunComplete(report)
	return report
}

// finishFailed reports a fatal run error. Any partially written CSV is left
// as-is; the statistics are reported as a failure, not a partial success.
func (e *Engine) finishFailed(startTime time.Time, stats *runStats, err error) (Report, error) {
	e.hooks.OnMessage(MessageError, fmt.Sprintf("Export failed: %v", err))
	e.logger.Error("Export run failed", slog.String("error", err.Error()))
	return e.finish(startTime, stats, StateFailed), err
}

// summaryNotice renders the human-readable completion notice.
func summaryNotice(s Summary) string {
	notice := fmt.Sprintf("Export complete: %d/%d files processed, %d with matches, %d total matches, %d files written to %s in %.2fs.",
		s.ProcessedFiles, s.TotalFiles, s.FilesWithMatches, s.TotalMatches, s.FilesWritten, s.OutputPath, s.DurationSeconds)
	if s.WarningCount > 0 {
		notice += fmt.Sprintf(" %d file(s) could not be parsed.", s.WarningCount)
	}
	return notice
}
