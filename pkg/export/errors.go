package export

import "errors"

// Exported error variables. These represent the categories of failure an
// export run can surface; callers can check against them using errors.Is.

var (
	// ErrConfigValidation indicates that the provided Options failed the
	// pre-run validation checks (missing folder, empty output path, empty or
	// mismatched filter list). Returned by NewEngine; the run never starts.
	ErrConfigValidation = errors.New("invalid export configuration")

	// ErrInvalidExpression indicates an XPath expression failed to compile.
	ErrInvalidExpression = errors.New("invalid XPath expression")

	// ErrDuplicateExpression indicates the filter list contains two entries
	// with byte-identical expression strings. This is a caller input error
	// detected before validation or export runs.
	ErrDuplicateExpression = errors.New("duplicate XPath expression")

	// ErrEvalFailed indicates an XPath expression compiled but failed to
	// evaluate against the supplied sample document.
	ErrEvalFailed = errors.New("XPath evaluation failed")

	// ErrParseFailed indicates an XML document could not be read or parsed.
	// Per-file parse failures during a run are recoverable: the file is
	// skipped from output and a warning is recorded.
	ErrParseFailed = errors.New("failed to parse XML document")

	// ErrSinkOpen indicates the output CSV file could not be created.
	// This is fatal to the run.
	ErrSinkOpen = errors.New("failed to open output CSV")

	// ErrSinkWrite indicates a write to the output CSV failed mid-run.
	// This is fatal; any partially written output is left as-is.
	ErrSinkWrite = errors.New("failed to write output CSV")
)
