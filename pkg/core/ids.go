package core

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// NodeID identifies a Scope. Ids are handed out by an IDGenerator, are
// strictly increasing and are never reused. The zero value means "no node".
type NodeID uint64

func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IDGenerator issues node ids and generated state ids. Every Scheduler owns
// one; trees mounted by the same scheduler share it, so ids are unique across
// all of its roots.
type IDGenerator struct {
	last atomic.Uint64
}

// NewIDGenerator creates a generator whose first id is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next id.
func (g *IDGenerator) Next() uint64 {
	return g.last.Add(1)
}

// StateIDKind distinguishes call-order state ids from caller-supplied ones.
type StateIDKind uint8

const (
	// Generated ids are assigned when UseState creates a slot.
	Generated StateIDKind = iota
	// Manual ids are chosen by the caller through ManualID.
	Manual
)

// StateID addresses a state slot anywhere in a tree.
type StateID struct {
	Kind  StateIDKind
	Value uint64
}

func (id StateID) String() string {
	if id.Kind == Manual {
		return fmt.Sprintf("manual(%d)", id.Value)
	}
	return fmt.Sprintf("generated(%d)", id.Value)
}

// TypedStateID is a StateID carrying the type of the value it addresses.
// Use ManualID to bind a slot to a constant known outside the tree:
//
//	var selected = core.ManualID[string](1)
//
//	func picker(s *core.Scope) core.Composable {
//	    current := core.UseStateWithID(s, selected, "none")
//	    ...
//	}
//
//	// elsewhere, e.g. inside a System:
//	core.Set(set, selected, "second")
type TypedStateID[T any] struct {
	id StateID
}

// ManualID returns a typed manual state id.
func ManualID[T any](n uint64) TypedStateID[T] {
	return TypedStateID[T]{id: StateID{Kind: Manual, Value: n}}
}

// ID returns the untyped id.
func (t TypedStateID[T]) ID() StateID { return t.id }

func (TypedStateID[T]) typed(T) {}

// Ref is anything that addresses a state slot holding a T: a State handle or a
// TypedStateID.
type Ref[T any] interface {
	ID() StateID
	typed(T)
}
