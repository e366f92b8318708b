// Package core implements a retained-mode reconciliation engine.
//
// A tree of scopes is built from Composable values and rebuilt incrementally
// when the state those composables read changes. The tree drives an external
// resource graph owned by the host rather than a screen: composables bind
// host handles to their scopes and queue Systems that create, update and
// release the host's objects.
//
// # Composables and Scopes
//
// A Composable describes one node. Its Compose method receives the node's
// Scope, reads and writes state through hooks and returns the description of
// its single child:
//
//	type greeting struct{ name string }
//
//	func (g greeting) Compose(s *core.Scope) core.Composable {
//	    seen := core.UseState(s, 0)
//	    s.UseMount(func() { core.SetState(s, seen, seen.Value()+1) })
//	    return label{text: "hello " + g.name}
//	}
//
// Functions become composables with ComposeFunc. Composables that manage
// several children (List, Tuple, Dyn, Optional) implement Composite.
//
// # Hooks
//
// UseState and UseStateWithID return typed handles to slots that survive
// across passes. Slots are matched by call order, so hooks must be called
// unconditionally and in the same order every pass. A write flags the slot
// Queued; the next pass sees it as Changed and then it returns to Unchanged.
//
// Effect, UseMount, RunSystem and UseSystemOnce build on that flag.
//
// # Ticks
//
// A Scheduler owns roots and runs them through Tick. Systems receive the
// host world and a Setter; writes made through the Setter are applied on the
// tick after the one they were made in.
//
// # Keyed lists and dynamic nodes
//
// List matches children by key, preserving each child's state across moves.
// Dyn and Optional hold a single child whose type may change; a type change
// discards the old child's state.
package core
