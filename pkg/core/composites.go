package core

import (
	"reflect"

	"github.com/go-drift/recompose/pkg/errors"
)

// Empty composes nothing. It is the child of every composable that returns nil.
type Empty struct{}

// Compose returns nil.
func (Empty) Compose(*Scope) Composable { return nil }

// IgnoreChildren reports true so an Empty scope never gets a child.
func (Empty) IgnoreChildren() bool { return true }

// Name implements Namer.
func (Empty) Name() string { return "Empty" }

// Optional composes Value when it is set and nothing otherwise. Switching
// between a value and nothing, or between values of different types, remounts
// the child through a Dyn node.
type Optional struct {
	Value Composable
}

// Some returns an Optional holding c.
func Some(c Composable) Optional { return Optional{Value: c} }

// None returns an empty Optional.
func None() Optional { return Optional{} }

// Maybe returns Some(c) when ok and None otherwise.
func Maybe(ok bool, c Composable) Optional {
	if !ok {
		return None()
	}
	return Some(c)
}

// IsSome reports whether the Optional holds a value.
func (o Optional) IsSome() bool { return o.Value != nil }

// Compose returns a Dyn over the held value, or over Empty.
func (o Optional) Compose(*Scope) Composable {
	if o.Value == nil {
		return NewDyn(Empty{})
	}
	return NewDyn(o.Value)
}

// Tuple composes a fixed sequence of children by position. The child at
// position i is reused as long as position i keeps the same TypeTag; a type
// change at a position remounts that child only.
//
//	core.Group(header{}, body{}, footer{})
type Tuple []Composable

// Group returns its arguments as a Tuple.
func Group(children ...Composable) Tuple { return Tuple(children) }

// Compose reconciles the tuple's children by position.
func (t Tuple) Compose(s *Scope) Composable {
	live := s.LiveChildren()
	for i, c := range t {
		if i < len(live) {
			s.ReconcileChild(live[i], c, i)
			continue
		}
		s.MountChild(c, i)
	}
	for _, extra := range live[min(len(t), len(live)):] {
		extra.MarkDecompose()
	}
	return nil
}

// IgnoreChildren implements Composite.
func (Tuple) IgnoreChildren() bool { return true }

// Name implements Namer.
func (Tuple) Name() string { return "Tuple" }

// Stateful creates an inline composable holding one value of type S. Use it
// for small self-contained pieces that would otherwise need a named type:
//
//	core.Stateful(
//	    func() int { return 0 },
//	    func(count int, s *core.Scope, update func(func(int) int)) core.Composable {
//	        s.UseSystemOnce(func(world core.World, set *core.Setter) {
//	            // register with the host, which later calls update
//	        })
//	        return label(count)
//	    },
//	)
//
// init runs once, on the first composition. update writes the value through
// SetState, so it must be called while the scope is composing or decomposing.
func Stateful[S any](
	init func() S,
	compose func(state S, s *Scope, update func(func(S) S)) Composable,
) Composable {
	return &inlineStateful[S]{initFn: init, composeFn: compose}
}

type inlineStateful[S any] struct {
	initFn    func() S
	composeFn func(state S, s *Scope, update func(func(S) S)) Composable
}

func (w *inlineStateful[S]) Compose(s *Scope) Composable {
	var initial S
	if s.stateIndex >= len(s.states) && w.initFn != nil {
		initial = w.initFn()
	}
	state := UseState(s, initial)
	return w.composeFn(state.Value(), s, func(update func(S) S) {
		SetState(s, state, update(current(s, state)))
	})
}

func (w *inlineStateful[S]) Name() string { return "Stateful" }

func (w *inlineStateful[S]) tagCode() uintptr {
	if w.composeFn == nil {
		return 0
	}
	return reflect.ValueOf(w.composeFn).Pointer()
}

// current reads the latest value of a slot, including writes made after the
// handle was taken.
func current[T any](s *Scope, ref Ref[T]) T {
	slot := s.findState(ref.ID())
	if slot == nil {
		fail("core.Stateful", errors.KindMissingState, errors.ErrStateNotFound, s, ref.ID(), "")
	}
	return handle[T]("core.Stateful", s, slot).Value()
}
