package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/recompose/pkg/core"
	"github.com/go-drift/recompose/pkg/errors"
	"github.com/go-drift/recompose/pkg/logging"
)

const boardScenario = `
name: board
items: [a, b]
detail: true
steps:
  - items: [b, c]
  - mode: grid
  - detail: false
`

func quiet(t *testing.T) []core.Option {
	t.Helper()
	errors.SetHandler(&errors.LogHandler{Logger: logging.NewNop()})
	t.Cleanup(func() { errors.SetHandler(nil) })
	return []core.Option{core.WithLogger(logging.NewNop()), core.WithDebug(true)}
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(boardScenario))
	require.NoError(t, err)

	assert.Equal(t, "board", sc.Name)
	assert.Equal(t, ModeList, sc.Mode)
	assert.True(t, sc.Detail)
	require.Len(t, sc.Steps, 3)
	require.NotNil(t, sc.Steps[0].Items)
	assert.Equal(t, []string{"b", "c"}, *sc.Steps[0].Items)
	assert.Equal(t, ModeGrid, sc.Steps[1].Mode)
	require.NotNil(t, sc.Steps[2].Detail)
	assert.False(t, *sc.Steps[2].Detail)
	assert.Nil(t, sc.Steps[2].Items)
}

func TestParse_EmptyItemsStep(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - items: []\n"))
	require.NoError(t, err)
	require.NotNil(t, sc.Steps[0].Items)
	assert.Empty(t, *sc.Steps[0].Items)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "empty scenario"},
		{"unknown field", "colour: red\n", "failed to parse"},
		{"bad mode", "mode: table\n", "mode: unknown mode"},
		{"bad step mode", "steps:\n  - mode: table\n", "steps[0].mode"},
		{"blank item", "items: [a, ' ']\n", "items: item 1 is blank"},
		{"blank step item", "steps:\n  - items: ['']\n", "steps[0].items"},
		{"negative ticks", "steps:\n  - ticks: -1\n", "steps[0].ticks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(boardScenario), 0o644))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "board", sc.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario")
}

func TestRun_Board(t *testing.T) {
	sc, err := Parse([]byte(boardScenario))
	require.NoError(t, err)

	result, err := Run(sc, quiet(t)...)
	require.NoError(t, err)
	require.Len(t, result.Frames, 6)

	steps := make([]int, len(result.Frames))
	for i, f := range result.Frames {
		steps[i] = f.Step
		assert.Equal(t, uint64(i+1), f.Tick)
	}
	assert.Equal(t, []int{-1, 0, 1, 2, 3, 3}, steps)

	// Systems queued while composing run at the start of the next tick.
	assert.Equal(t, []string{"spawn a #1", "spawn b #2", "detail shown"}, result.Frames[0].Events)
	assert.Empty(t, result.Frames[1].Events)
	assert.Equal(t, []string{"spawn c #3", "despawn a #1"}, result.Frames[2].Events)
	assert.Equal(t, []string{"despawn b #2", "despawn c #3"}, result.Frames[3].Events)
	assert.Equal(t, []string{"detail hidden"}, result.Frames[4].Events)
	assert.Empty(t, result.Frames[5].Events)

	first := result.Frames[0].Tree
	assert.Contains(t, first, "<ListView")
	assert.Contains(t, first, "<Detail")

	last := result.Frames[5].Tree
	assert.Contains(t, last, "<GridView")
	assert.NotContains(t, last, "<ListView")
	assert.NotContains(t, last, "<Detail")
	assert.NotContains(t, last, "removing")

	assert.Empty(t, result.Teardown)
	assert.Empty(t, result.Leaked)
}

func TestRun_TeardownDespawnsRows(t *testing.T) {
	sc, err := Parse([]byte("items: [x, y]\n"))
	require.NoError(t, err)

	result, err := Run(sc, quiet(t)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"spawn x #1", "spawn y #2"}, result.Frames[0].Events)
	assert.Equal(t, []string{"despawn x #1", "despawn y #2"}, result.Teardown)
	assert.Empty(t, result.Leaked)
}

func TestRun_IdleTicks(t *testing.T) {
	sc, err := Parse([]byte("items: [x]\nsteps:\n  - ticks: 3\n"))
	require.NoError(t, err)

	result, err := Run(sc, quiet(t)...)
	require.NoError(t, err)
	require.Len(t, result.Frames, 4)
	for _, f := range result.Frames[1:] {
		assert.Equal(t, 0, f.Step)
		assert.Zero(t, f.Stats.Counts.Composed)
	}
}

func TestRun_DuplicateItems(t *testing.T) {
	sc, err := Parse([]byte("items: [a, b]\nsteps:\n  - items: [a, a]\n"))
	require.NoError(t, err)

	result, err := Run(sc, quiet(t)...)
	require.Error(t, err)
	var re *errors.ReconcileError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.KindDuplicateKey, re.Kind)
	assert.Len(t, result.Frames, 1)
}

func TestJournal(t *testing.T) {
	j := NewJournal()
	a := j.Spawn("a")
	j.Spawn("b")
	j.Despawn(a)
	j.Despawn(a)
	j.Note("done")

	assert.Equal(t, []string{"b"}, j.Live())
	assert.Equal(t, []string{"spawn a #1", "spawn b #2", "despawn a #1", "despawn unknown #1", "done"}, j.Drain())
	assert.Empty(t, j.Drain())
}

func TestJournalOf_WrongWorldPanics(t *testing.T) {
	assert.PanicsWithValue(t, "scenario: world is string, want *Journal", func() { journalOf("x") })
}
