package core

import (
	"maps"
	"reflect"
	"slices"
	"sync"
)

// World is the host's mutable state, passed through to every System.
type World = any

// System is a deferred side effect queued by composition code. Systems run in
// the next side-effect phase, in pre-order of the scopes that queued them. A
// System writes back into the tree only through set.
type System func(world World, set *Setter)

// action is one pending write. Exactly one of value and modify is used.
type action struct {
	typ    reflect.Type
	value  any
	modify func(old any) any
	flag   bool
}

// Setter buffers state writes coming from outside composition. Writes are
// keyed by StateID and the last write for an id wins. The scheduler applies
// the buffer once per tick; writes submitted while a tick runs are applied on
// the following tick.
//
// Setter is safe for concurrent use.
type Setter struct {
	mu     sync.Mutex
	queued map[StateID]action
}

// NewSetter creates an empty Setter.
func NewSetter() *Setter {
	return &Setter{queued: make(map[StateID]action)}
}

// Len returns the number of pending writes.
func (s *Setter) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued)
}

func (s *Setter) put(id StateID, a action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queued == nil {
		s.queued = make(map[StateID]action)
	}
	s.queued[id] = a
}

// take swaps out the pending writes.
func (s *Setter) take() map[StateID]action {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.queued
	s.queued = make(map[StateID]action)
	return pending
}

// Pending returns the ids with a pending write.
func (s *Setter) Pending() []StateID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Keys(s.queued))
}

// Set queues a write of value that schedules the owning scope to recompose.
func Set[T any](set *Setter, ref Ref[T], value T) {
	set.put(ref.ID(), action{typ: reflect.TypeFor[T](), value: value, flag: true})
}

// SetUnchanged queues a write of value without scheduling a recomposition.
func SetUnchanged[T any](set *Setter, ref Ref[T], value T) {
	set.put(ref.ID(), action{typ: reflect.TypeFor[T](), value: value})
}

// Modify queues fn to be applied to the slot's value when the write is applied.
func Modify[T any](set *Setter, ref Ref[T], fn func(T) T) {
	set.put(ref.ID(), action{typ: reflect.TypeFor[T](), modify: modifier(fn), flag: true})
}

// ModifyUnchanged is Modify without scheduling a recomposition.
func ModifyUnchanged[T any](set *Setter, ref Ref[T], fn func(T) T) {
	set.put(ref.ID(), action{typ: reflect.TypeFor[T](), modify: modifier(fn)})
}

func modifier[T any](fn func(T) T) func(any) any {
	return func(old any) any {
		var value T
		if old != nil {
			value = old.(T)
		}
		return fn(value)
	}
}

// apply writes a to slot. The caller has checked the type.
func (a action) apply(slot *stateSlot) {
	if a.modify != nil {
		slot.value = a.modify(slot.value)
	} else {
		slot.value = a.value
	}
	if a.flag {
		slot.changed = Queued
	}
}
