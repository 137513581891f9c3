package export_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.NewCSVSink(path, []string{"Filename", "Desc"})
	require.NoError(t, err)

	require.NoError(t, sink.WriteRow(export.Row{"Filename": "a", "Desc": "hello"}))
	require.NoError(t, sink.WriteRow(export.Row{"Filename": "b"})) // Desc absent
	require.NoError(t, sink.Close())

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Filename", "Desc"}, records[0])
	assert.Equal(t, []string{"a", "hello"}, records[1])
	assert.Equal(t, []string{"b", ""}, records[2])
}

func TestCSVSinkIgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.NewCSVSink(path, []string{"Filename", "A"})
	require.NoError(t, err)
	require.NoError(t, sink.WriteRow(export.Row{"Filename": "x", "A": "1", "Rogue": "dropped"}))
	require.NoError(t, sink.Close())

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"x", "1"}, records[1])
}

func TestCSVSinkRoundTripsEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.NewCSVSink(path, []string{"Filename", "V"})
	require.NoError(t, err)

	values := []string{
		"plain",
		"with, comma",
		`with "quotes"`,
		"with\nnewline",
		"semi; colon",
	}
	for _, v := range values {
		require.NoError(t, sink.WriteRow(export.Row{"Filename": "f", "V": v}))
	}
	require.NoError(t, sink.Close())

	records := readCSV(t, path)
	require.Len(t, records, len(values)+1)
	for i, v := range values {
		assert.Equal(t, v, records[i+1][1])
	}
}

func TestCSVSinkCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.csv")
	sink, err := export.NewCSVSink(path, []string{"Filename"})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCSVSinkOpenFailure(t *testing.T) {
	// Directory in place of the target file.
	dir := t.TempDir()
	_, err := export.NewCSVSink(dir, []string{"Filename"})
	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrSinkOpen)
}
