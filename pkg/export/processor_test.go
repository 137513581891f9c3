package export

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardHandler(t *testing.T) slog.Handler {
	t.Helper()
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1})
}

func writeXML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestProcessor(t *testing.T, filters []FilterEntry, group bool) *FileProcessor {
	t.Helper()
	compiled, err := compileFilters(filters)
	require.NoError(t, err)
	return newFileProcessor(compiled, group, discardHandler(t))
}

func TestProcessFileUngroupedRows(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "a.xml",
		`<root><item>val1</item><item>val2</item><desc>d1</desc></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
		{Expression: "//desc/text()", Header: "Desc"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.True(t, result.HasMatches)
	assert.Equal(t, 3, result.MatchCount)
	require.Len(t, result.Rows, 2) // max over value columns

	assert.Equal(t, Row{"Filename": "a", "Item": "val1", "Desc": "d1"}, result.Rows[0])
	// Exhausted value columns are padded with empty strings by the sink;
	// the row map simply omits them.
	assert.Equal(t, "val2", result.Rows[1]["Item"])
	assert.NotContains(t, result.Rows[1], "Desc")
	assert.Equal(t, "a", result.Rows[1]["Filename"])
}

func TestProcessFileGroupedRow(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "a.xml",
		`<root><item>val1</item><item>val2</item></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, true)

	result := p.ProcessFile(context.Background(), path)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "val1; val2", result.Rows[0]["Item"])
	assert.Equal(t, 2, result.MatchCount)
}

func TestProcessFileCountColumnOnFirstRowOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "mixed.xml",
		`<root><item>v1</item><item>v2</item><filter id="127"/><filter id="127"/></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
		{Expression: "//filter[@id='127']", Header: "Filter127"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "2", result.Rows[0]["Filter127 Match Count"])
	assert.NotContains(t, result.Rows[1], "Filter127 Match Count")
	assert.Equal(t, 4, result.MatchCount) // 2 values + count 2
}

func TestProcessFileCountOnlyMatchesEmitOneRow(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "c.xml", `<root><filter id="127"/></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//missing/text()", Header: "Missing"},
		{Expression: "//filter[@id='127']", Header: "Filter127"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.True(t, result.HasMatches)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "1", result.Rows[0]["Filter127 Match Count"])
}

func TestProcessFileAttributeValues(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "attrs.xml",
		`<root><item id="one"/><item id="two"/></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/@id", Header: "ID"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "one", result.Rows[0]["ID"])
	assert.Equal(t, "two", result.Rows[1]["ID"])
}

func TestProcessFileDecodesDeclaredEncoding(t *testing.T) {
	dir := t.TempDir()
	// 0xFC is latin-1 ü; the parser must transcode it per the declaration.
	path := writeXML(t, dir, "latin1.xml",
		"<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><root><name>M\xfcller</name></root>")

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//name/text()", Header: "Name"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.Empty(t, result.Warning)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Müller", result.Rows[0]["Name"])
}

func TestProcessFileDecodesUTF8BOM(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "bom.xml",
		"\xef\xbb\xbf<root><name>Müller</name></root>")

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//name/text()", Header: "Name"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.Empty(t, result.Warning)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Müller", result.Rows[0]["Name"])
}

func TestProcessFileDropsWhitespaceOnlyValues(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "blank.xml",
		`<root><item>  </item><item>
		</item><item>real</item></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	require.Len(t, result.Rows, 1) // blanks never become phantom rows
	assert.Equal(t, "real", result.Rows[0]["Item"])
	assert.Equal(t, 1, result.MatchCount)
}

func TestProcessFileNoMatches(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "none.xml", `<root><other/></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	assert.False(t, result.HasMatches)
	assert.Empty(t, result.Rows)
	assert.Zero(t, result.MatchCount)
	assert.Empty(t, result.Warning)
}

func TestProcessFileParseFailureIsRecoverable(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "broken.xml", `<root><unclosed>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, false)

	result := p.ProcessFile(context.Background(), path)
	assert.NotEmpty(t, result.Warning)
	assert.Empty(t, result.Rows)
	assert.False(t, result.HasMatches)
}

func TestProcessFileUnreadableFile(t *testing.T) {
	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, false)

	result := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	assert.NotEmpty(t, result.Warning)
	assert.Empty(t, result.Rows)
}

func TestProcessFileCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "a.xml", `<root><item>v</item></root>`)

	p := newTestProcessor(t, []FilterEntry{
		{Expression: "//item/text()", Header: "Item"},
	}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := p.ProcessFile(ctx, path)
	assert.Empty(t, result.Rows)
	assert.False(t, result.HasMatches)
	assert.Zero(t, result.MatchCount)
}

func TestEvaluateExprScalars(t *testing.T) {
	dir := t.TempDir()
	path := writeXML(t, dir, "s.xml", `<root><a/><a/><a/></root>`)
	doc, err := parseXMLFile(path)
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		wantCount  int
	}{
		{"numeric result", "count(//a)", 3},
		{"boolean true", "count(//a) > 2", 1},
		{"boolean false", "count(//a) > 5", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := compileFilters([]FilterEntry{{Expression: tt.expression, Header: "H"}})
			require.NoError(t, err)
			values, count, err := evaluateExpr(compiled[0].expr, compiled[0].valueExtracting, doc)
			require.NoError(t, err)
			assert.Empty(t, values)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestCompileFiltersRejectsDuplicatesAndSyntaxErrors(t *testing.T) {
	_, err := compileFilters([]FilterEntry{
		{Expression: "//a/text()", Header: "A"},
		{Expression: "//a/text()", Header: "B"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateExpression)

	_, err = compileFilters([]FilterEntry{{Expression: "//a[", Header: "A"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestBaseNameWithoutExt(t *testing.T) {
	assert.Equal(t, "report", baseNameWithoutExt("/data/xml/report.xml"))
	assert.Equal(t, "report", baseNameWithoutExt("report.XML"))
	assert.Equal(t, "noext", baseNameWithoutExt("dir/noext"))
}
