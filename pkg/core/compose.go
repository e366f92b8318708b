package core

import (
	"fmt"
	"reflect"

	"github.com/go-drift/recompose/pkg/errors"
)

// Composable is a unit of composition logic. Compose reads and writes the
// scope's state through hooks and returns the description of the scope's
// single child. Returning nil is the same as returning Empty{}.
//
// Implementations should be small value types. The engine keeps the most
// recent Composable on the scope and calls Compose again whenever one of the
// scope's state slots was written.
type Composable interface {
	Compose(s *Scope) Composable
}

// Decomposer is implemented by composables that need to release external
// resources when their scope is removed.
type Decomposer interface {
	Decompose(s *Scope)
}

// Composite is implemented by composables that manage the scope's children
// themselves (lists, tuples, dynamic slots). When IgnoreChildren returns true
// the value returned from Compose is discarded.
type Composite interface {
	IgnoreChildren() bool
}

// Namer overrides the name used by Dump and Scope.String.
type Namer interface {
	Name() string
}

// ComposeFunc adapts an ordinary function to Composable.
type ComposeFunc func(s *Scope) Composable

// Compose calls f(s).
func (f ComposeFunc) Compose(s *Scope) Composable {
	return f(s)
}

// Named wraps fn with a display name.
func Named(name string, fn ComposeFunc) Composable {
	return namedFunc{name: name, fn: fn}
}

type namedFunc struct {
	name string
	fn   ComposeFunc
}

func (n namedFunc) Compose(s *Scope) Composable { return n.fn(s) }

func (n namedFunc) Name() string { return n.name }

// TypeTag identifies the concrete kind of a composable for remount decisions.
// Two values with the same Go type share a tag, except function composables
// and Stateful, which are further told apart by their code pointer so that two
// different closures never reuse each other's state.
type TypeTag struct {
	typ  reflect.Type
	code uintptr
}

// TagOf returns the TypeTag of c. A nil c has the tag of Empty.
func TagOf(c Composable) TypeTag {
	if c == nil {
		c = Empty{}
	}
	tag := TypeTag{typ: reflect.TypeOf(c)}
	switch fn := c.(type) {
	case ComposeFunc:
		tag.code = funcCode(fn)
	case namedFunc:
		tag.code = funcCode(fn.fn)
	case tagCoder:
		tag.code = fn.tagCode()
	}
	return tag
}

// tagCoder is implemented by generic composables that wrap a closure.
type tagCoder interface {
	tagCode() uintptr
}

func funcCode(fn ComposeFunc) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}

func (t TypeTag) String() string {
	if t.typ == nil {
		return "<nil>"
	}
	if t.code != 0 {
		return fmt.Sprintf("%v@%#x", t.typ, t.code)
	}
	return t.typ.String()
}

func nameOf(c Composable) string {
	if c == nil {
		return "Empty"
	}
	if n, ok := c.(Namer); ok {
		return n.Name()
	}
	t := reflect.TypeOf(c)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func ignoresChildren(c Composable) bool {
	composite, ok := c.(Composite)
	return ok && composite.IgnoreChildren()
}

// recompose runs one composition pass on s and reconciles its sole child
// unless the composer manages its children itself.
func (s *Scope) recompose() {
	s.stateIndex = 0
	for _, slot := range s.states {
		if slot.changed == Queued {
			slot.changed = Changed
		}
	}

	next := s.composer.Compose(s)

	for _, slot := range s.states {
		if slot.changed == Changed {
			slot.changed = Unchanged
		}
	}
	if s.tree.counters != nil {
		s.tree.counters.composed++
	}
	s.checkHookOrder()

	if ignoresChildren(s.composer) {
		return
	}
	s.ReconcileChild(s.liveChild(), next, 0)
}

// checkHookOrder compares the number of hooks called in this pass with the
// previous one. Only active when the tree was created in debug mode.
func (s *Scope) checkHookOrder() {
	if s.tree.debug && s.hookCount >= 0 && s.stateIndex != s.hookCount {
		fail("core.Scope.recompose", errors.KindHookOrder, errors.ErrHookOrder, s, StateID{},
			fmt.Sprintf("%s called %d hooks, previously %d", s.Name(), s.stateIndex, s.hookCount))
	}
	s.hookCount = s.stateIndex
}

// decompose calls the composer's teardown hook. It does not touch children.
func (s *Scope) decompose() {
	if d, ok := s.composer.(Decomposer); ok {
		d.Decompose(s)
	}
}
