package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaricj/XMLuvation-sub001/internal/cli/hooks"
	"github.com/zaricj/XMLuvation-sub001/pkg/export"
)

func updateModel(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModelTracksFileStatuses(t *testing.T) {
	m := NewModel(NewStopHandle())
	m, _ = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = updateModel(t, m, hooks.FileProcessedMsg{Path: "a.xml", Status: export.StatusMatched, Matches: 2, Duration: time.Millisecond})
	m, _ = updateModel(t, m, hooks.FileProcessedMsg{Path: "b.xml", Status: export.StatusNoMatch})
	m, _ = updateModel(t, m, hooks.FileProcessedMsg{Path: "c.xml", Status: export.StatusFailed})

	assert.Equal(t, 1, m.matched)
	assert.Equal(t, 1, m.noMatch)
	assert.Equal(t, 1, m.failed)
	assert.Len(t, m.list.Items(), 3)
}

func TestModelStatusAndProgress(t *testing.T) {
	m := NewModel(NewStopHandle())
	m, _ = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = updateModel(t, m, hooks.StatusMsg{Text: "Scanning folder for XML files…"})
	assert.Equal(t, "Scanning folder for XML files…", m.statusText)

	m, _ = updateModel(t, m, hooks.ProgressMsg{Percent: 40})
	assert.Equal(t, 40, m.percent)

	view := m.View()
	assert.Contains(t, view, "Scanning folder for XML files…")
	assert.Contains(t, view, "40%")
}

func TestModelQuitsOnRunComplete(t *testing.T) {
	m := NewModel(NewStopHandle())
	report := export.Report{Summary: export.Summary{State: export.StateCompleted, RowsWritten: 7}}

	m, cmd := updateModel(t, m, hooks.RunCompleteMsg{Report: report})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	got, done := m.Report()
	assert.True(t, done)
	assert.Equal(t, 7, got.Summary.RowsWritten)
}

func TestModelAbortKeyInvokesStop(t *testing.T) {
	stop := NewStopHandle()
	called := 0
	stop.Set(func() { called++ })
	m := NewModel(stop)

	m, cmd := updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "first abort keeps the TUI alive while the engine drains")
	assert.Equal(t, 1, called)
	assert.Equal(t, "Aborting…", m.statusText)

	// Second press while still draining does not re-invoke.
	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, 1, called)

	// After completion the same key quits.
	m, _ = updateModel(t, m, hooks.RunCompleteMsg{})
	_, cmd = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestStopHandleWithoutFunctionIsSafe(t *testing.T) {
	stop := NewStopHandle()
	stop.Invoke() // must not panic
	called := 0
	stop.Set(func() { called++ })
	stop.Invoke()
	stop.Invoke()
	assert.Equal(t, 2, called)
}

func TestRenderProgressClampsBarWidth(t *testing.T) {
	bar := renderProgress(50, 0)
	assert.Contains(t, bar, "50%")
	full := renderProgress(100, 80)
	assert.Contains(t, full, "100%")
	assert.NotContains(t, full, "░")
}
