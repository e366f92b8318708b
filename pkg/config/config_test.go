package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/recompose/pkg/core"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestResolve_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	resolved, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, resolved.Root)
	assert.Equal(t, DefaultVersion, resolved.Version)
	assert.Equal(t, core.DebugMode, resolved.Debug)
	assert.Equal(t, slog.LevelInfo, resolved.LogLevel)
	assert.Equal(t, "text", resolved.LogFormat)
	assert.Equal(t, DefaultTraceSamples, resolved.TraceSamples)
	assert.Equal(t, DefaultTraceThreshold, resolved.TraceThreshold)
	assert.Equal(t, DefaultNamespace, resolved.MetricsNamespace)
}

func TestResolve_FullFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version: v1.2
debug: false
log:
  level: debug
  format: JSON
trace:
  samples: 0
  threshold: 250us
metrics:
  namespace: my-app
`)

	resolved, err := Resolve(dir)
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", resolved.Version)
	assert.False(t, resolved.Debug)
	assert.Equal(t, slog.LevelDebug, resolved.LogLevel)
	assert.Equal(t, "json", resolved.LogFormat)
	assert.Zero(t, resolved.TraceSamples)
	assert.Equal(t, 250*time.Microsecond, resolved.TraceThreshold)
	assert.Equal(t, "my_app", resolved.MetricsNamespace)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unsupported major", "version: v2.0.0\n", "not supported"},
		{"not semver", "version: latest\n", "not a semantic version"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"negative samples", "trace:\n  samples: -1\n", "trace.samples"},
		{"bad threshold", "trace:\n  threshold: soon\n", "trace.threshold"},
		{"unknown field", "colour: blue\n", "failed to parse"},
		{"not yaml", "log: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			_, err := Resolve(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, nested, FindRoot(nested))

	writeConfig(t, root, "debug: true\n")
	assert.Equal(t, root, FindRoot(nested))
}

func TestSchedulerOptions(t *testing.T) {
	resolved, err := (&Config{}).Resolve()
	require.NoError(t, err)

	var observed []uint64
	opts := resolved.SchedulerOptions(core.TickObserverFunc(func(stats core.TickStats) {
		observed = append(observed, stats.Tick)
	}))
	assert.Len(t, opts, 3)

	sched := core.NewScheduler(opts...)
	sched.AddRoot(core.NewRoot(core.Empty{}))
	sched.Tick(nil)
	assert.Equal(t, []uint64{1}, observed)
}
