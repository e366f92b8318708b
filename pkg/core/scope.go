package core

import (
	"fmt"
	"slices"

	"github.com/go-drift/recompose/pkg/errors"
)

// tree is the arena behind one root. Scopes refer to their parent by NodeID
// and upward searches go through nodes instead of back-pointers.
type tree struct {
	ids      *IDGenerator
	nodes    map[NodeID]*Scope
	debug    bool
	counters *tickCounters
}

func newTree(ids *IDGenerator, debug bool, counters *tickCounters) *tree {
	return &tree{
		ids:      ids,
		nodes:    make(map[NodeID]*Scope),
		debug:    debug,
		counters: counters,
	}
}

func (t *tree) newScope(composer Composable, parent NodeID, index int) *Scope {
	if composer == nil {
		composer = Empty{}
	}
	scope := &Scope{
		id:        NodeID(t.ids.Next()),
		index:     index,
		parent:    parent,
		composer:  composer,
		hookCount: -1,
		tree:      t,
	}
	t.nodes[scope.id] = scope
	if t.counters != nil {
		t.counters.mounted++
	}
	return scope
}

// forget drops a scope and its descendants from the arena.
func (t *tree) forget(scope *Scope) {
	delete(t.nodes, scope.id)
	for _, child := range scope.children {
		t.forget(child)
	}
}

// Scope is a node of the composition tree. It is the accumulated result of
// calling its composer's Compose: the state slots the composer created, the
// children it produced and the side effects it queued.
//
// A Scope is only valid inside the Compose or Decompose call it was passed to.
// Do not retain it across ticks.
type Scope struct {
	id NodeID

	// index is the position this scope was last reconciled at. It is not
	// necessarily its position in the parent's children slice.
	index int

	resource    any
	hasResource bool

	parent        NodeID
	willDecompose bool
	composer      Composable

	stateIndex int
	hookCount  int
	states     []*stateSlot

	children []*Scope
	queued   []System

	tree *tree
}

// ID returns the node id.
func (s *Scope) ID() NodeID { return s.id }

// Index returns the position hint the scope was last reconciled at.
func (s *Scope) Index() int { return s.index }

// Composer returns the composable that currently drives this scope.
func (s *Scope) Composer() Composable { return s.composer }

// Name returns the display name of the scope's composer.
func (s *Scope) Name() string { return nameOf(s.composer) }

// WillDecompose reports whether the scope is pending removal.
func (s *Scope) WillDecompose() bool { return s.willDecompose }

// MarkDecompose flags the scope for removal. Its Decompose hook runs at the
// end of the current tick and the flag cascades to its children; the scope is
// pruned from its parent during the next tick.
func (s *Scope) MarkDecompose() { s.willDecompose = true }

// StateCount returns the number of state slots the scope owns.
func (s *Scope) StateCount() int { return len(s.states) }

// Children returns the child scopes in reconciliation order, including any
// that are pending removal.
func (s *Scope) Children() []*Scope {
	return slices.Clone(s.children)
}

// LiveChildren returns the child scopes that are not pending removal.
func (s *Scope) LiveChildren() []*Scope {
	live := make([]*Scope, 0, len(s.children))
	for _, child := range s.children {
		if !child.willDecompose {
			live = append(live, child)
		}
	}
	return live
}

func (s *Scope) liveChild() *Scope {
	for _, child := range s.children {
		if !child.willDecompose {
			return child
		}
	}
	return nil
}

func (s *Scope) childByID(id NodeID) *Scope {
	for _, child := range s.children {
		if child.id == id {
			return child
		}
	}
	return nil
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	if s.parent == 0 {
		return nil
	}
	return s.tree.nodes[s.parent]
}

// SetResource binds an external resource handle (an entity, a file, a remote
// object id) to this scope. A scope is bound at most once; setting the same
// handle again is a no-op and binding a different one panics. Handles must be
// comparable.
func (s *Scope) SetResource(handle any) {
	if s.hasResource {
		if s.resource != handle {
			fail("core.Scope.SetResource", errors.KindInvariant, errors.ErrResourceBound, s, StateID{},
				fmt.Sprintf("bound %v, got %v", s.resource, handle))
		}
		return
	}
	s.resource = handle
	s.hasResource = true
}

// Resource returns the handle bound to this scope.
func (s *Scope) Resource() (any, bool) {
	return s.resource, s.hasResource
}

// ParentResource walks up the parent chain and returns the first bound handle.
func (s *Scope) ParentResource() (any, bool) {
	id := s.parent
	for id != 0 {
		parent, ok := s.tree.nodes[id]
		if !ok {
			break
		}
		if parent.hasResource {
			return parent.resource, true
		}
		id = parent.parent
	}
	return nil, false
}

// NearestResource returns this scope's handle if bound, else ParentResource.
func (s *Scope) NearestResource() (any, bool) {
	if s.hasResource {
		return s.resource, true
	}
	return s.ParentResource()
}

// StateInfo describes one state slot for debugging and snapshots.
type StateInfo struct {
	ID     StateID
	Status StateChanged
	Type   string
	Value  any
}

// States describes the scope's slots in hook order.
func (s *Scope) States() []StateInfo {
	infos := make([]StateInfo, len(s.states))
	for i, slot := range s.states {
		infos[i] = StateInfo{ID: slot.id, Status: slot.changed, Type: slot.typ.String(), Value: slot.value}
	}
	return infos
}

func (s *Scope) findState(id StateID) *stateSlot {
	for _, slot := range s.states {
		if slot.id == id {
			return slot
		}
	}
	return nil
}

func (s *Scope) hasQueued() bool {
	for _, slot := range s.states {
		if slot.changed == Queued {
			return true
		}
	}
	return false
}

// MountChild creates a child scope for c, appends it and runs its first
// composition. Composites use it to grow their children list.
func (s *Scope) MountChild(c Composable, index int) *Scope {
	child := s.tree.newScope(c, s.id, index)
	s.children = append(s.children, child)
	child.recompose()
	return child
}

// UpdateChild swaps the composer of an existing child and recomposes it in
// place, keeping its state and descendants.
func (s *Scope) UpdateChild(child *Scope, c Composable, index int) {
	if c == nil {
		c = Empty{}
	}
	child.index = index
	child.composer = c
	child.recompose()
}

// ReconcileChild updates existing with c when both have the same TypeTag and
// remounts otherwise. A nil existing mounts a new child. It returns the scope
// now holding c.
func (s *Scope) ReconcileChild(existing *Scope, c Composable, index int) *Scope {
	if c == nil {
		c = Empty{}
	}
	if existing == nil {
		return s.MountChild(c, index)
	}
	if TagOf(existing.composer) != TagOf(c) {
		return s.remount(existing, c, index)
	}
	s.UpdateChild(existing, c, index)
	return existing
}

// remount marks old for removal and puts a fresh scope for c in its slot. The
// old scope moves to the end of the children list until it is pruned.
func (s *Scope) remount(old *Scope, c Composable, index int) *Scope {
	old.MarkDecompose()
	child := s.tree.newScope(c, s.id, index)
	at := slices.Index(s.children, old)
	if at < 0 {
		s.children = append(s.children, child)
	} else {
		s.children[at] = child
		s.children = append(s.children, old)
	}
	child.recompose()
	return child
}

func (s *Scope) takeQueued() []System {
	queued := s.queued
	s.queued = nil
	return queued
}

// walk visits scope and its descendants in pre-order. Returning false from
// visit skips the scope's children.
func walk(scope *Scope, visit func(*Scope) bool) {
	if !visit(scope) {
		return
	}
	for _, child := range scope.children {
		walk(child, visit)
	}
}

func fail(op string, kind errors.ErrorKind, cause error, s *Scope, state StateID, detail string) {
	err := errors.NewReconcileError(op, kind, cause)
	if s != nil {
		err.Node = uint64(s.id)
	}
	if state != (StateID{}) {
		err.State = state.String()
	}
	err.Detail = detail
	panic(err)
}
