package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSink writes normalized rows to the destination CSV file incrementally,
// so memory use stays bounded regardless of corpus size. The column set is
// fixed at open time; rows are aligned to it on every write. The sink is not
// goroutine-safe: the engine's single consumer is its only writer.
type CSVSink struct {
	file    *os.File
	buf     *bufio.Writer
	w       *csv.Writer
	columns []string
	// colSet mirrors columns for key filtering on write.
	colSet map[string]struct{}
}

// NewCSVSink creates the destination file (truncating any existing file at
// the path, and creating missing parent directories) and writes the header
// row. encoding/csv handles quoting, so any field value round-trips through
// a compliant CSV reader.
func NewCSVSink(path string, columns []string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating directory %q: %v", ErrSinkOpen, dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkOpen, err)
	}

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: writing header: %v", ErrSinkWrite, err)
	}

	colSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		colSet[c] = struct{}{}
	}
	return &CSVSink{file: f, buf: buf, w: w, columns: columns, colSet: colSet}, nil
}

// Columns returns the fixed header column set, in output order.
func (s *CSVSink) Columns() []string {
	return s.columns
}

// WriteRow appends one data row. Row keys outside the column set are
// ignored; columns absent from the row are written as empty strings.
func (s *CSVSink) WriteRow(row Row) error {
	record := make([]string, len(s.columns))
	for i, col := range s.columns {
		record[i] = row[col]
	}
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}
