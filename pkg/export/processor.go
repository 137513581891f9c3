package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// FileResult carries everything the engine needs to know about one processed
// file: its normalized output rows, match statistics, and an optional
// warning when the document could not be parsed. Results are immutable once
// produced; the processor keeps no state across files.
type FileResult struct {
	Path       string
	Rows       []Row
	MatchCount int
	HasMatches bool
	Warning    string
	Duration   time.Duration
}

// FileProcessor evaluates a compiled filter set against single XML documents
// and builds normalized output rows. One instance is shared by all workers;
// it is stateless and safe for concurrent use.
type FileProcessor struct {
	filters      []compiledFilter
	groupMatches bool
	logger       *slog.Logger
}

// newFileProcessor creates a FileProcessor for the given compiled filter set.
func newFileProcessor(filters []compiledFilter, groupMatches bool, loggerHandler slog.Handler) *FileProcessor {
	logger := slog.New(loggerHandler).With(slog.String("component", "processor"))
	return &FileProcessor{
		filters:      filters,
		groupMatches: groupMatches,
		logger:       logger,
	}
}

// filterResult is the per-entry outcome for one file: collected values for
// value-extracting entries, a match count for count-style entries.
type filterResult struct {
	filter *compiledFilter
	values []string
	count  int
}

// ProcessFile parses one XML file and evaluates every filter expression
// against it. Parse failures are not fatal to the run: the result carries a
// warning and zero rows, and the file still counts as processed. The cancel
// context is checked at entry and between expressions; once cancellation is
// observed an empty result is returned promptly.
func (p *FileProcessor) ProcessFile(ctx context.Context, path string) (result FileResult) {
	startTime := time.Now()
	result = FileResult{Path: path}
	defer func() { result.Duration = time.Since(startTime) }()
	if ctx.Err() != nil {
		return result
	}

	doc, err := parseXMLFile(path)
	if err != nil {
		p.logger.Warn("Skipping unparseable file", slog.String("path", path), slog.String("error", err.Error()))
		result.Warning = fmt.Sprintf("%s: %v", filepath.Base(path), err)
		return result
	}

	perFilter := make([]filterResult, 0, len(p.filters))
	for i := range p.filters {
		if ctx.Err() != nil {
			result = FileResult{Path: path}
			return result
		}
		cf := &p.filters[i]
		values, count, evalErr := evaluateExpr(cf.expr, cf.valueExtracting, doc)
		if evalErr != nil {
			// A runtime evaluation error on this particular document counts
			// as zero matches for this expression; remaining expressions and
			// files are unaffected.
			p.logger.Debug("Expression evaluation failed on document",
				slog.String("path", path),
				slog.String("expression", cf.entry.Expression),
				slog.String("error", evalErr.Error()))
			values, count = nil, 0
		}
		perFilter = append(perFilter, filterResult{filter: cf, values: values, count: count})
		result.MatchCount += len(values) + count
	}

	for _, fr := range perFilter {
		if len(fr.values) > 0 || fr.count > 0 {
			result.HasMatches = true
			break
		}
	}
	if !result.HasMatches {
		return result
	}

	name := baseNameWithoutExt(path)
	if p.groupMatches {
		result.Rows = buildGroupedRow(name, perFilter)
	} else {
		result.Rows = buildUngroupedRows(name, perFilter)
	}
	return result
}

// parseXMLFile reads and parses one XML document. The parser must see the
// raw bytes: xmlquery's decoder honors the encoding declaration and BOM
// itself, and transcoding beforehand would decode the content twice.
func parseXMLFile(path string) (*xmlquery.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer f.Close()
	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	return doc, nil
}

// evaluateExpr runs one compiled expression against a parsed document. For
// value-extracting expressions it collects every non-blank, trimmed result
// string; for count-style expressions it counts matched nodes, with boolean
// results counting 1 when true and numeric results contributing their
// integer value. The evaluator can panic on runtime type errors, so the
// call is fenced and converted into an error return.
func evaluateExpr(expr *xpath.Expr, valueExtracting bool, doc *xmlquery.Node) (values []string, count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, count = nil, 0
			err = fmt.Errorf("%v", r)
		}
	}()

	switch v := expr.Evaluate(xmlquery.CreateXPathNavigator(doc)).(type) {
	case *xpath.NodeIterator:
		for v.MoveNext() {
			if valueExtracting {
				s := strings.TrimSpace(v.Current().Value())
				if s != "" {
					values = append(values, s)
				}
			} else {
				count++
			}
		}
	case bool:
		if v {
			count = 1
		}
	case float64:
		count = int(v)
	case string:
		if s := strings.TrimSpace(v); s != "" {
			if valueExtracting {
				values = append(values, s)
			} else {
				count = 1
			}
		}
	default:
		err = fmt.Errorf("unsupported XPath result type %T", v)
	}
	return values, count, err
}

// buildGroupedRow emits exactly one row for a file: all values collected for
// a value column are joined with the separator, count columns carry their
// single count.
func buildGroupedRow(name string, perFilter []filterResult) []Row {
	row := Row{FilenameColumn: name}
	for _, fr := range perFilter {
		if fr.filter.valueExtracting {
			if len(fr.values) > 0 {
				row[fr.filter.column] = strings.Join(fr.values, ValueJoinSeparator)
			}
		} else if fr.count > 0 {
			row[fr.filter.column] = strconv.Itoa(fr.count)
		}
	}
	return []Row{row}
}

// buildUngroupedRows emits one row per match index. The row count is the
// largest number of values collected for any single value column (at least
// one, since the file is known to have matches); exhausted value columns are
// left empty, and count columns are filled on row 0 only because a match
// count is a file-level statistic.
func buildUngroupedRows(name string, perFilter []filterResult) []Row {
	maxMatches := 0
	for _, fr := range perFilter {
		if fr.filter.valueExtracting && len(fr.values) > maxMatches {
			maxMatches = len(fr.values)
		}
	}
	if maxMatches == 0 {
		maxMatches = 1
	}

	rows := make([]Row, 0, maxMatches)
	for i := 0; i < maxMatches; i++ {
		row := Row{FilenameColumn: name}
		for _, fr := range perFilter {
			if fr.filter.valueExtracting {
				if i < len(fr.values) {
					row[fr.filter.column] = fr.values[i]
				}
			} else if i == 0 && fr.count > 0 {
				row[fr.filter.column] = strconv.Itoa(fr.count)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// baseNameWithoutExt strips the directory and extension from a file path,
// yielding the Filename column value.
func baseNameWithoutExt(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
