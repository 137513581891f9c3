package export

import "time"

// Report summarizes the result of a single export run.
type Report struct {
	Summary  Summary     `json:"summary"`
	Warnings []ErrorInfo `json:"warnings"`
}

// Summary contains the aggregated statistics for an export run. All fields
// are accumulated by the engine's single consumer loop and snapshotted once
// the run reaches a terminal state.
type Summary struct {
	FolderPath       string    `json:"folderPath"`
	OutputPath       string    `json:"outputPath"`
	TotalFiles       int       `json:"totalFiles"`
	ProcessedFiles   int       `json:"processedFiles"`
	FilesWithMatches int       `json:"filesWithMatches"`
	TotalMatches     int       `json:"totalMatches"`
	FilesWritten     int       `json:"filesWritten"`
	RowsWritten      int       `json:"rowsWritten"`
	WarningCount     int       `json:"warningCount"`
	State            RunState  `json:"state"`
	GroupMatches     bool      `json:"groupMatches"`
	Concurrency      int       `json:"concurrency"`
	DurationSeconds  float64   `json:"durationSeconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// ErrorInfo details a recoverable per-file problem encountered during a run,
// typically a document that could not be parsed.
type ErrorInfo struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ValidationInfo is returned by the validator on success. ResultCount is
// only meaningful when the expression was trial-evaluated against a sample
// document.
type ValidationInfo struct {
	Expression      string `json:"expression"`
	ValueExtracting bool   `json:"valueExtracting"`
	Evaluated       bool   `json:"evaluated"`
	ResultCount     int    `json:"resultCount"`
}
