package export

// Constants defining default values for export options.
const (
	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// MaxConcurrency is the hard upper bound on the worker pool size,
	// regardless of what the caller requests.
	MaxConcurrency = 32
	// DefaultGroupMatches is the default export mode (one row per match index).
	DefaultGroupMatches = false
)

// Constants defining the CSV output dialect.
const (
	// FilenameColumn is the leading column present in every output row.
	FilenameColumn = "Filename"
	// MatchCountSuffix is appended to the header of count-style filter
	// entries to disambiguate them from value-style columns.
	MatchCountSuffix = " Match Count"
	// ValueJoinSeparator joins multiple match values into one cell when
	// grouped mode is active.
	ValueJoinSeparator = "; "
)

// xmlExtension is the scan filter; matching is case-insensitive.
const xmlExtension = ".xml"
