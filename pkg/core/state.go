package core

import (
	"fmt"
	"reflect"

	"github.com/go-drift/recompose/pkg/errors"
)

// StateChanged is the two-step visibility flag of a state slot.
//
// A write flags the slot Queued. The next composition of the owning scope
// promotes it to Changed before calling Compose and demotes it to Unchanged
// afterwards, so a change is observed by exactly one composition pass.
type StateChanged uint8

const (
	Unchanged StateChanged = iota
	Queued
	Changed
)

func (c StateChanged) String() string {
	switch c {
	case Queued:
		return "queued"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// stateSlot is a type-erased state value. value is replaced on every write and
// never mutated in place; typ is the type token the slot was created with.
type stateSlot struct {
	id      StateID
	changed StateChanged
	typ     reflect.Type
	value   any
}

func newSlot[T any](id StateID, value T) *stateSlot {
	return &stateSlot{
		id:      id,
		changed: Changed,
		typ:     reflect.TypeFor[T](),
		value:   value,
	}
}

// handle restores the typed view of a slot, panicking if T is not the slot's type.
func handle[T any](op string, s *Scope, slot *stateSlot) State[T] {
	want := reflect.TypeFor[T]()
	if slot.typ != want {
		fail(op, errors.KindHookMismatch, errors.ErrTypeMismatch, s, slot.id,
			fmt.Sprintf("slot holds %v, requested %v", slot.typ, want))
	}
	var value T
	if slot.value != nil {
		value = slot.value.(T)
	}
	return State[T]{id: slot.id, changed: slot.changed, value: value}
}

// State is a read-only snapshot of a state slot taken when the hook was
// called. It is cheap to copy and safe to capture in closures.
type State[T any] struct {
	id      StateID
	changed StateChanged
	value   T
}

// ID returns the id of the underlying slot.
func (s State[T]) ID() StateID { return s.id }

func (State[T]) typed(T) {}

// Value returns the value captured by the handle.
func (s State[T]) Value() T { return s.value }

// Status returns the changed flag as it was when the hook was called.
func (s State[T]) Status() StateChanged { return s.changed }

// Changed reports whether this pass is the one observing a write to the slot
// (or its creation).
func (s State[T]) Changed() bool { return s.changed == Changed }

// HasChanged implements Dependency.
func (s State[T]) HasChanged() bool { return s.Changed() }

// TypedID returns an id that can address the slot from outside the tree.
func (s State[T]) TypedID() TypedStateID[T] { return TypedStateID[T]{id: s.id} }

// Dependency is something Effect can watch.
type Dependency interface {
	HasChanged() bool
}

// Always is a Dependency that is always changed.
type Always struct{}

// HasChanged implements Dependency.
func (Always) HasChanged() bool { return true }
