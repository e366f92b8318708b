package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/recompose/pkg/errors"
)

// requireReconcilePanic runs fn and returns the *errors.ReconcileError it panics with.
func requireReconcilePanic(t *testing.T, kind errors.ErrorKind, fn func()) *errors.ReconcileError {
	t.Helper()
	var got any
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	require.NotNil(t, got, "expected a panic")
	err, ok := got.(*errors.ReconcileError)
	require.Truef(t, ok, "panic value %T is not *errors.ReconcileError: %v", got, got)
	require.Equal(t, kind, err.Kind, err.Error())
	return err
}

// silenceErrors swaps the global handler for one that records panics.
func silenceErrors(t *testing.T) *recordingHandler {
	t.Helper()
	h := &recordingHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return h
}

type recordingHandler struct {
	errs   []*errors.ReconcileError
	panics []*errors.PanicError
}

func (h *recordingHandler) HandleError(err *errors.ReconcileError) { h.errs = append(h.errs, err) }
func (h *recordingHandler) HandlePanic(err *errors.PanicError)     { h.panics = append(h.panics, err) }

// newTestScheduler returns a scheduler with debug checks on and a mounted root for c.
func newTestScheduler(t *testing.T, c Composable, opts ...Option) (*Scheduler, *Root) {
	t.Helper()
	sched := NewScheduler(append([]Option{WithDebug(true)}, opts...)...)
	root := NewRoot(c)
	sched.AddRoot(root)
	sched.Tick(nil)
	require.True(t, root.Mounted())
	return sched, root
}

// observation is what a probe saw on one composition pass.
type observation struct {
	value   int
	changed bool
}

// leaf composes nothing and records its decomposition.
type leaf struct {
	name string
	log  *[]string
}

func (l leaf) Compose(*Scope) Composable { return nil }

func (l leaf) Decompose(*Scope) {
	if l.log != nil {
		*l.log = append(*l.log, l.name)
	}
}

// counter keeps one int and records what every pass observed.
type counter struct {
	seen *[]observation
}

func (c counter) Compose(s *Scope) Composable {
	count := UseState(s, 0)
	if c.seen != nil {
		*c.seen = append(*c.seen, observation{value: count.Value(), changed: count.Changed()})
	}
	return nil
}

// findScope returns the first scope in pre-order whose name matches.
func findScope(root *Scope, name string) *Scope {
	var found *Scope
	walk(root, func(s *Scope) bool {
		if found != nil {
			return false
		}
		if s.Name() == name {
			found = s
			return false
		}
		return true
	})
	return found
}
