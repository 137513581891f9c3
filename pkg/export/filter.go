package export

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"
)

// FilterEntry pairs one XPath 1.0 expression with the CSV column header its
// results are written under. Entries are configured by the caller and held
// as an ordered, immutable list for the duration of one export run.
type FilterEntry struct {
	Expression string `json:"expression"`
	Header     string `json:"header"`
}

// compiledFilter carries a FilterEntry together with its compiled expression
// and derived classification. Compilation and classification happen once per
// run, before any file is processed.
type compiledFilter struct {
	entry           FilterEntry
	expr            *xpath.Expr
	valueExtracting bool
	column          string
}

// MakeFilters zips the order-correlated expression and header lists into
// filter entries. The two lists must be non-empty and of equal length; this
// is enforced here, before a run starts, so the engine only ever sees a
// well-formed list.
func MakeFilters(expressions, headers []string) ([]FilterEntry, error) {
	if len(expressions) == 0 || len(headers) == 0 {
		return nil, fmt.Errorf("%w: at least one XPath expression and header are required", ErrConfigValidation)
	}
	if len(expressions) != len(headers) {
		return nil, fmt.Errorf("%w: %d expressions but %d headers; the lists must correspond 1:1",
			ErrConfigValidation, len(expressions), len(headers))
	}
	filters := make([]FilterEntry, len(expressions))
	for i := range expressions {
		filters[i] = FilterEntry{Expression: expressions[i], Header: headers[i]}
	}
	return filters, nil
}

// IsValueExtracting classifies an XPath expression. Value-extracting
// expressions end in a text() step or an attribute selection and yield
// strings; everything else (element sets, predicates, booleans, counts) is
// count-style and contributes a match count instead of values. The
// classification of a given expression string never changes.
func IsValueExtracting(expression string) bool {
	expr := strings.TrimSpace(expression)
	if strings.HasSuffix(expr, "/text()") {
		return true
	}
	last := expr
	if idx := strings.LastIndex(expr, "/"); idx >= 0 {
		last = expr[idx+1:]
	}
	return strings.HasPrefix(last, "@")
}

// columnFor derives the CSV column name for a filter entry. Count-style
// entries get the match-count suffix so a value column and a count column
// sharing a base header stay distinguishable.
func columnFor(entry FilterEntry) string {
	if IsValueExtracting(entry.Expression) {
		return entry.Header
	}
	return entry.Header + MatchCountSuffix
}

// DeriveColumns computes the CSV header row for a filter list: the Filename
// column followed by one column per entry, de-duplicated while preserving
// first-seen order. The result is deterministic for a given input list.
func DeriveColumns(filters []FilterEntry) []string {
	columns := make([]string, 0, len(filters)+1)
	seen := make(map[string]struct{}, len(filters)+1)
	columns = append(columns, FilenameColumn)
	seen[FilenameColumn] = struct{}{}
	for _, f := range filters {
		col := columnFor(f)
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		columns = append(columns, col)
	}
	return columns
}

// compileFilters compiles every expression up front and rejects duplicate
// expressions. A compile failure here is a configuration error: the run
// never starts with a syntactically invalid filter.
func compileFilters(filters []FilterEntry) ([]compiledFilter, error) {
	seen := make(map[string]struct{}, len(filters))
	compiled := make([]compiledFilter, 0, len(filters))
	for _, f := range filters {
		if _, dup := seen[f.Expression]; dup {
			return nil, fmt.Errorf("%w: %q appears more than once", ErrDuplicateExpression, f.Expression)
		}
		seen[f.Expression] = struct{}{}
		expr, err := xpath.Compile(f.Expression)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, f.Expression, err)
		}
		compiled = append(compiled, compiledFilter{
			entry:           f,
			expr:            expr,
			valueExtracting: IsValueExtracting(f.Expression),
			column:          columnFor(f),
		})
	}
	return compiled, nil
}
