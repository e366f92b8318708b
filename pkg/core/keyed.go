package core

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/go-drift/recompose/pkg/errors"
)

// Keyer is a composable with a stable identity inside a List. Keys must be
// comparable and unique within one List.
type Keyer interface {
	Composable
	Key() any
}

// Keyed pairs an arbitrary composable with a key. The List mounts the wrapped
// composable directly; the wrapper never appears in the tree.
type Keyed struct {
	key   any
	inner Composable
}

// KeyedOf returns c keyed by key.
func KeyedOf(key any, c Composable) Keyed {
	return Keyed{key: key, inner: c}
}

// Key implements Keyer.
func (k Keyed) Key() any { return k.key }

// Compose returns the wrapped composable, so a Keyed used outside a List
// behaves like a pass-through node.
func (k Keyed) Compose(*Scope) Composable { return k.inner }

// Name implements Namer.
func (k Keyed) Name() string { return "Keyed" }

func (k Keyed) unwrap() Composable {
	if k.inner == nil {
		return Empty{}
	}
	return k.inner
}

// List composes a dynamically sized sequence of children, matched across
// passes by key rather than position. A child whose key is still present
// keeps its scope and state even when it moves; a child whose key disappears
// is marked for removal.
type List []Keyer

// ListOf builds a List by keying and composing every item.
//
//	core.ListOf(todos, func(t Todo) any { return t.ID }, func(t Todo) core.Composable {
//	    return todoRow{todo: t}
//	})
func ListOf[T any](items []T, key func(T) any, build func(T) Composable) List {
	list := make(List, 0, len(items))
	for _, item := range items {
		list = append(list, KeyedOf(key(item), build(item)))
	}
	return list
}

// Compose reconciles the scope's children against the list.
func (l List) Compose(s *Scope) Composable {
	keys := l.keys(s)

	known := UseState(s, map[any]NodeID{})
	next := make(map[any]NodeID, len(l))
	position := make(map[NodeID]int, len(l))

	for i, item := range l {
		c := composerOf(item)
		key := keys[i]

		id, ok := known.Value()[key]
		if ok {
			existing := s.childByID(id)
			if existing == nil {
				fail("core.List.Compose", errors.KindInvariant, errors.ErrScopeNotFound, s, known.ID(),
					fmt.Sprintf("key %v maps to node %d", key, id))
			}
			id = s.ReconcileChild(existing, c, i).id
		} else {
			id = s.MountChild(c, i).id
		}
		next[key] = id
		position[id] = i
	}

	slices.SortStableFunc(s.children, func(a, b *Scope) int {
		return cmp.Compare(keyPosition(position, a.id), keyPosition(position, b.id))
	})

	for key, id := range known.Value() {
		if _, ok := next[key]; ok {
			continue
		}
		if child := s.childByID(id); child != nil {
			child.MarkDecompose()
		}
	}

	SetStateUnchanged(s, known, next)
	return nil
}

// keys validates and returns the keys in input order. It runs before any
// hook so a bad list leaves the scope untouched.
func (l List) keys(s *Scope) []any {
	keys := make([]any, len(l))
	seen := make(map[any]int, len(l))
	for i, item := range l {
		if item == nil {
			fail("core.List.Compose", errors.KindInvariant, errors.ErrKeyType, s, StateID{},
				fmt.Sprintf("item %d is nil", i))
		}
		key := item.Key()
		if key != nil && !reflect.ValueOf(key).Comparable() {
			fail("core.List.Compose", errors.KindInvariant, errors.ErrKeyType, s, StateID{},
				fmt.Sprintf("item %d has key of type %T", i, key))
		}
		if first, dup := seen[key]; dup {
			fail("core.List.Compose", errors.KindDuplicateKey, errors.ErrDuplicateKey, s, StateID{},
				fmt.Sprintf("key %v at %d and %d", key, first, i))
		}
		seen[key] = i
		keys[i] = key
	}
	return keys
}

// IgnoreChildren implements Composite.
func (List) IgnoreChildren() bool { return true }

// Name implements Namer.
func (List) Name() string { return "List" }

func composerOf(item Keyer) Composable {
	if k, ok := item.(Keyed); ok {
		return k.unwrap()
	}
	return item
}

func keyPosition(position map[NodeID]int, id NodeID) int {
	if i, ok := position[id]; ok {
		return i
	}
	return math.MaxInt
}
