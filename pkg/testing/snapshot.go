package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-drift/recompose/pkg/core"
)

// UpdateSnapshotsEnv makes MatchesFile rewrite golden files instead of
// comparing against them when set to "1".
const UpdateSnapshotsEnv = "RECOMPOSE_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the structure of a scope tree and the state it holds.
// Node ids are replaced with per-name counters so snapshots do not depend on
// id allocation order.
type Snapshot struct {
	Tree *ScopeNode `json:"tree"`
}

// ScopeNode represents a scope in a serialized tree.
type ScopeNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	States   []StateEntry `json:"states,omitempty"`
	Removing bool         `json:"removing,omitempty"`
	Children []*ScopeNode `json:"children,omitempty"`
}

// StateEntry represents one state slot. Only scalar values are recorded;
// maps, funcs and type tags carry node ids or code addresses and are omitted.
type StateEntry struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// CaptureSnapshot captures the subtree rooted at scope.
func CaptureSnapshot(scope *core.Scope) *Snapshot {
	snap := &Snapshot{}
	if scope != nil {
		snap.Tree = captureScope(scope, &typeCounter{})
	}
	return snap
}

// CaptureSnapshot captures the tester's mounted tree.
func (t *Tester) CaptureSnapshot() *Snapshot {
	return CaptureSnapshot(t.root.Scope())
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// RECOMPOSE_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateSnapshotsEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateSnapshotsEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other. Returns empty
// string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
}

// --- Internal ---

// typeCounter assigns stable IDs like "Row#0", "Row#1".
type typeCounter struct {
	counts map[string]int
}

func (c *typeCounter) next(name string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	n := c.counts[name]
	c.counts[name] = n + 1
	return fmt.Sprintf("%s#%d", name, n)
}

func captureScope(s *core.Scope, counter *typeCounter) *ScopeNode {
	name := s.Name()
	node := &ScopeNode{
		ID:       counter.next(name),
		Name:     name,
		Removing: s.WillDecompose(),
	}
	for _, info := range s.States() {
		node.States = append(node.States, StateEntry{
			Type:    info.Type,
			Value:   scalarValue(info.Value),
			Pending: info.Status == core.Queued,
		})
	}
	for _, child := range s.Children() {
		node.Children = append(node.Children, captureScope(child, counter))
	}
	return node
}

func scalarValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		return nil
	}
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	for i := range max(len(expectedLines), len(actualLines)) {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e == a {
			continue
		}
		if i < len(expectedLines) {
			fmt.Fprintf(&buf, "-%s\n", e)
		}
		if i < len(actualLines) {
			fmt.Fprintf(&buf, "+%s\n", a)
		}
	}

	return buf.String()
}
