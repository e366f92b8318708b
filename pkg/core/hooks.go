package core

import (
	"fmt"
	"reflect"

	"github.com/go-drift/recompose/pkg/errors"
)

// UseState returns the state slot at the current hook position, creating it
// with initial on the first composition. Like every use-prefixed hook it must
// be called the same number of times, in the same order and with the same type
// on every pass; otherwise it panics.
//
//	func counter(s *core.Scope) core.Composable {
//	    count := core.UseState(s, 0)
//	    if count.Changed() {
//	        // first pass, or count was written since the last pass
//	    }
//	    return label{text: strconv.Itoa(count.Value())}
//	}
func UseState[T any](s *Scope, initial T) State[T] {
	if s.stateIndex < len(s.states) {
		slot := s.states[s.stateIndex]
		s.stateIndex++
		return handle[T]("core.UseState", s, slot)
	}

	slot := newSlot(StateID{Kind: Generated, Value: s.tree.ids.Next()}, initial)
	s.states = append(s.states, slot)
	s.stateIndex++
	return handle[T]("core.UseState", s, slot)
}

// UseStateWithID is like UseState but the slot is addressed by a manual id
// instead of call order, so code outside the tree can reach it with the same
// TypedStateID.
func UseStateWithID[T any](s *Scope, id TypedStateID[T], initial T) State[T] {
	if slot := s.findState(id.id); slot != nil {
		s.stateIndex++
		return handle[T]("core.UseStateWithID", s, slot)
	}

	slot := newSlot(id.id, initial)
	s.states = append(s.states, slot)
	s.stateIndex++
	return handle[T]("core.UseStateWithID", s, slot)
}

// StateAt reads the slot at a hook position without advancing the cursor.
// Decompose hooks use it to read state created during composition.
func StateAt[T any](s *Scope, index int) State[T] {
	if index < 0 || index >= len(s.states) {
		fail("core.StateAt", errors.KindMissingState, errors.ErrStateNotFound, s, StateID{},
			fmt.Sprintf("index %d of %d", index, len(s.states)))
	}
	return handle[T]("core.StateAt", s, s.states[index])
}

// SetState replaces the slot's value immediately and flags it Queued. The
// scope observes the new value on its next composition, not during the
// current one.
func SetState[T any](s *Scope, ref Ref[T], value T) {
	s.writeState("core.SetState", ref.ID(), reflect.TypeFor[T](), value, true)
}

// SetStateUnchanged replaces the slot's value without scheduling a recomposition.
func SetStateUnchanged[T any](s *Scope, ref Ref[T], value T) {
	s.writeState("core.SetStateUnchanged", ref.ID(), reflect.TypeFor[T](), value, false)
}

// SetStateWithID is SetState addressed by a typed id.
func SetStateWithID[T any](s *Scope, id TypedStateID[T], value T) {
	s.writeState("core.SetStateWithID", id.id, reflect.TypeFor[T](), value, true)
}

func (s *Scope) writeState(op string, id StateID, typ reflect.Type, value any, flag bool) {
	slot := s.findState(id)
	if slot == nil {
		fail(op, errors.KindMissingState, errors.ErrStateNotFound, s, id, "")
	}
	if slot.typ != typ {
		fail(op, errors.KindHookMismatch, errors.ErrTypeMismatch, s, id,
			fmt.Sprintf("slot holds %v, got %v", slot.typ, typ))
	}
	slot.value = value
	if flag {
		slot.changed = Queued
	}
}

// Effect calls fn when at least one dependency is changed in this pass.
// With no dependencies fn never runs.
func (s *Scope) Effect(fn func(), deps ...Dependency) {
	for _, dep := range deps {
		if dep.HasChanged() {
			fn()
			return
		}
	}
}

// UseEffect is an alias of Effect.
func (s *Scope) UseEffect(fn func(), deps ...Dependency) {
	s.Effect(fn, deps...)
}

// onceToken is the value type of the slot behind UseMount and UseSystemOnce.
type onceToken struct{}

// UseMount calls fn during the scope's first composition only.
func (s *Scope) UseMount(fn func()) {
	once := UseState(s, onceToken{})
	s.Effect(fn, once)
}

// RunSystem queues sys to run against the external world during the next
// side-effect phase. The system is queued again on every composition that
// calls RunSystem.
func (s *Scope) RunSystem(sys System) {
	if sys == nil {
		return
	}
	s.queued = append(s.queued, sys)
}

// UseSystem is an alias of RunSystem.
func (s *Scope) UseSystem(sys System) {
	s.RunSystem(sys)
}

// UseSystemOnce queues sys on the scope's first composition only.
func (s *Scope) UseSystemOnce(sys System) {
	once := UseState(s, onceToken{})
	if once.Changed() {
		s.RunSystem(sys)
	}
}
