package export

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner enumerates the candidate XML files of one folder. The scan is
// non-recursive and filters on the .xml extension, case-insensitively.
type Scanner struct {
	folder string
	logger *slog.Logger
}

// NewScanner creates a Scanner for the given folder.
func NewScanner(folder string, loggerHandler slog.Handler) *Scanner {
	logger := slog.New(loggerHandler).With(slog.String("component", "scanner"))
	return &Scanner{folder: folder, logger: logger}
}

// Scan lists the XML files directly inside the folder, sorted by name so
// identical corpora always dispatch in the same order. Subdirectories and
// symbolic links are skipped. The full list is returned up front so the
// total file count is known before any work starts.
func (s *Scanner) Scan() ([]string, error) {
	entries, err := os.ReadDir(s.folder)
	if err != nil {
		return nil, fmt.Errorf("reading folder %q: %w", s.folder, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			s.logger.Debug("Skipping symbolic link", slog.String("name", entry.Name()))
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), xmlExtension) {
			continue
		}
		files = append(files, filepath.Join(s.folder, entry.Name()))
	}
	sort.Strings(files)
	s.logger.Debug("Folder scan complete", slog.String("folder", s.folder), slog.Int("files", len(files)))
	return files, nil
}
