package core

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/recompose/pkg/errors"
	"github.com/go-drift/recompose/pkg/logging"
)

func TestScheduler_EndToEnd(t *testing.T) {
	poke := ManualID[int](1)
	var seen []observation
	app := ComposeFunc(func(s *Scope) Composable {
		count := UseState(s, 0)
		UseStateWithID(s, poke, 0)
		s.UseSystemOnce(func(_ World, set *Setter) {
			Set(set, count, 1)
		})
		seen = append(seen, observation{value: count.Value(), changed: count.Changed()})
		return nil
	})

	sched := NewScheduler()
	sched.AddRoot(NewRoot(app))

	// tick 1: first composition; the system runs and queues the write
	stats := sched.Tick(nil)
	assert.Equal(t, []observation{{0, true}}, seen)
	assert.Equal(t, 1, stats.Counts.SystemsRun)
	assert.Zero(t, stats.Counts.MutationsApplied)
	assert.Equal(t, 1, sched.Setter().Len())

	// tick 2: the write is applied and observed as changed
	stats = sched.Tick(nil)
	assert.Equal(t, []observation{{0, true}, {1, true}}, seen)
	assert.Equal(t, 1, stats.Counts.MutationsApplied)
	assert.Equal(t, 1, stats.Counts.Recomposed)

	// tick 3: another slot forces a pass; count is no longer changed
	Set(sched.Setter(), poke, 1)
	sched.Tick(nil)
	assert.Equal(t, []observation{{0, true}, {1, true}, {1, false}}, seen)
}

func TestScheduler_NoopTickIsIdempotent(t *testing.T) {
	sched, root := newTestScheduler(t, rows([]int{0, 1, 2}, nil))
	before := Dump(root.Scope())
	nodes := root.Len()

	for range 3 {
		stats := sched.Tick(nil)
		assert.Zero(t, stats.Counts.Composed)
		assert.Zero(t, stats.Counts.Mounted)
		assert.Zero(t, stats.Counts.Pruned)
		assert.Zero(t, stats.Counts.Decomposed)
	}
	assert.Equal(t, before, Dump(root.Scope()))
	assert.Equal(t, nodes, root.Len())
}

func TestScheduler_LastWriteWins(t *testing.T) {
	var seen []observation
	id := ManualID[int](1)
	app := ComposeFunc(func(s *Scope) Composable {
		v := UseStateWithID(s, id, 0)
		seen = append(seen, observation{value: v.Value(), changed: v.Changed()})
		return nil
	})
	sched, _ := newTestScheduler(t, app)

	Set(sched.Setter(), id, 1)
	Set(sched.Setter(), id, 2)
	require.Equal(t, 1, sched.Setter().Len())
	stats := sched.Tick(nil)

	assert.Equal(t, 1, stats.Counts.MutationsApplied)
	assert.Equal(t, 1, stats.Counts.Recomposed)
	assert.Equal(t, []observation{{0, true}, {2, true}}, seen)
}

func TestScheduler_ModifyAndUnchangedWrites(t *testing.T) {
	id := ManualID[int](1)
	passes := 0
	app := ComposeFunc(func(s *Scope) Composable {
		UseStateWithID(s, id, 10)
		passes++
		return nil
	})
	sched, root := newTestScheduler(t, app)

	ModifyUnchanged(sched.Setter(), id, func(v int) int { return v + 5 })
	sched.Tick(nil)
	assert.Equal(t, 1, passes)
	assert.Equal(t, 15, StateAt[int](root.Scope(), 0).Value())

	SetUnchanged(sched.Setter(), id, 1)
	sched.Tick(nil)
	assert.Equal(t, 1, StateAt[int](root.Scope(), 0).Value())

	Modify(sched.Setter(), id, func(v int) int { return v * 3 })
	sched.Tick(nil)
	assert.Equal(t, 2, passes)
	assert.Equal(t, 3, StateAt[int](root.Scope(), 0).Value())
}

func TestScheduler_DropsUnmatchedMutations(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, -4, "text")
	handler := silenceErrors(t)
	sched, _ := newTestScheduler(t, leaf{}, WithLogger(logger))

	Set(sched.Setter(), ManualID[string](42), "nobody")
	stats := sched.Tick(nil)

	require.Len(t, handler.errs, 1)
	assert.Equal(t, errors.KindMissingState, handler.errs[0].Kind)
	assert.Equal(t, "manual(42)", handler.errs[0].State)
	assert.ErrorIs(t, handler.errs[0], errors.ErrStateNotFound)
	assert.Empty(t, handler.panics)

	assert.Equal(t, 1, stats.Counts.MutationsDropped)
	assert.Zero(t, stats.Counts.MutationsApplied)
	assert.Contains(t, logs.String(), "dropped mutation")
	assert.Contains(t, logs.String(), "manual(42)")
	assert.Contains(t, logs.String(), "run="+sched.RunID())
}

func TestScheduler_MutationTypeMismatchPanics(t *testing.T) {
	id := ManualID[int](1)
	sched, _ := newTestScheduler(t, ComposeFunc(func(s *Scope) Composable {
		UseStateWithID(s, id, 0)
		return nil
	}))
	silenceErrors(t)

	Set(sched.Setter(), ManualID[string](1), "wrong")
	err := requireReconcilePanic(t, errors.KindHookMismatch, func() { sched.Tick(nil) })
	assert.Equal(t, "manual(1)", err.State)
}

// tracked is a node that records the order of its decomposition and queues
// a release system from its Decompose hook.
type tracked struct {
	name     string
	children []Composable
	log      *[]string
}

func (n tracked) Compose(*Scope) Composable {
	if len(n.children) == 0 {
		return nil
	}
	return Group(n.children...)
}

func (n tracked) Name() string { return n.name }

func (n tracked) Decompose(s *Scope) {
	*n.log = append(*n.log, n.name)
	s.RunSystem(func(w World, _ *Setter) {
		released := w.(*[]string)
		*released = append(*released, n.name)
	})
}

func TestScheduler_RemoveRootDecomposesPreOrder(t *testing.T) {
	var order []string
	tree := tracked{name: "root", log: &order, children: []Composable{
		tracked{name: "a", log: &order, children: []Composable{
			tracked{name: "a1", log: &order},
		}},
		tracked{name: "b", log: &order},
	}}
	sched, root := newTestScheduler(t, tree)

	var released []string
	require.True(t, sched.RemoveRoot(root, &released))

	assert.Equal(t, []string{"root", "a", "a1", "b"}, order)
	assert.Equal(t, order, released)
	assert.False(t, root.Mounted())
	assert.Empty(t, sched.Roots())
	assert.False(t, sched.RemoveRoot(root, nil))
}

func TestScheduler_ReplaceRoot(t *testing.T) {
	var order []string
	sched, root := newTestScheduler(t, tracked{name: "old", log: &order})

	var released []string
	sched.ReplaceRoot(root, tracked{name: "new", log: &order}, &released)
	assert.Equal(t, []string{"old"}, order)
	assert.False(t, root.Mounted())

	stats := sched.Tick(nil)
	require.True(t, root.Mounted())
	assert.Equal(t, "new", root.Scope().Name())
	assert.Equal(t, 1, stats.Counts.Roots)
	assert.Len(t, sched.Roots(), 1)
}

func TestScheduler_RejectsForeignRoot(t *testing.T) {
	silenceErrors(t)
	owner, root := newTestScheduler(t, leaf{name: "owned"})
	other := NewScheduler()

	err := requireReconcilePanic(t, errors.KindInvariant, func() { other.AddRoot(root) })
	assert.ErrorIs(t, err, errors.ErrForeignRoot)
	err = requireReconcilePanic(t, errors.KindInvariant, func() { other.ReplaceRoot(root, leaf{}, nil) })
	assert.ErrorIs(t, err, errors.ErrForeignRoot)

	assert.Empty(t, other.Roots())
	assert.Equal(t, []*Root{root}, owner.Roots())
	require.True(t, root.Mounted())
	assert.Equal(t, "owned", root.Scope().Composer().(leaf).name)
}

func TestScheduler_HookOrderAssertion(t *testing.T) {
	trigger := ManualID[int](1)
	extra := false
	app := ComposeFunc(func(s *Scope) Composable {
		UseStateWithID(s, trigger, 0)
		if extra {
			UseState(s, "late")
		}
		return nil
	})

	t.Run("debug", func(t *testing.T) {
		extra = false
		sched, _ := newTestScheduler(t, app)
		silenceErrors(t)
		extra = true
		Set(sched.Setter(), trigger, 1)
		err := requireReconcilePanic(t, errors.KindHookOrder, func() { sched.Tick(nil) })
		assert.ErrorIs(t, err, errors.ErrHookOrder)
		assert.Contains(t, err.Detail, "called 2 hooks, previously 1")
	})

	t.Run("release", func(t *testing.T) {
		extra = false
		sched, root := newTestScheduler(t, app, WithDebug(false))
		extra = true
		Set(sched.Setter(), trigger, 1)
		assert.NotPanics(t, func() { sched.Tick(nil) })
		assert.Equal(t, 2, root.Scope().StateCount())
	})
}

type host struct {
	handle string
	probe  func(s *Scope)
	child  Composable
}

func (h host) Compose(s *Scope) Composable {
	if h.handle != "" {
		s.SetResource(h.handle)
	}
	if h.probe != nil {
		h.probe(s)
	}
	return h.child
}

func TestScope_ResourceLookup(t *testing.T) {
	var fromRoot, fromPanel, fromLeaf, nearest any
	var rootFound bool
	tree := host{
		probe: func(s *Scope) { fromRoot, rootFound = s.ParentResource() },
		child: host{
			handle: "panel",
			probe:  func(s *Scope) { fromPanel, _ = s.ParentResource() },
			child: host{
				probe: func(s *Scope) {
					fromLeaf, _ = s.ParentResource()
					nearest, _ = s.NearestResource()
				},
			},
		},
	}

	sched := NewScheduler()
	r := NewRoot(tree).BindResource("window")
	sched.AddRoot(r)
	sched.Tick(nil)

	assert.False(t, rootFound)
	assert.Nil(t, fromRoot)
	assert.Equal(t, "window", fromPanel)
	assert.Equal(t, "panel", fromLeaf)
	assert.Equal(t, "panel", nearest)

	handle, ok := r.Scope().Resource()
	assert.True(t, ok)
	assert.Equal(t, "window", handle)
}

func TestScope_SetResourceOnce(t *testing.T) {
	tr := newTree(NewIDGenerator(), true, nil)
	s := tr.newScope(Empty{}, 0, 0)

	s.SetResource("a")
	assert.NotPanics(t, func() { s.SetResource("a") })
	err := requireReconcilePanic(t, errors.KindInvariant, func() { s.SetResource("b") })
	assert.ErrorIs(t, err, errors.ErrResourceBound)
}

func TestScheduler_ObserversAndIDs(t *testing.T) {
	var ticks []uint64
	ids := NewIDGenerator()
	ids.Next()
	sched := NewScheduler(
		WithIDGenerator(ids),
		WithObserver(TickObserverFunc(func(stats TickStats) { ticks = append(ticks, stats.Tick) })),
	)
	root := NewRoot(leaf{})
	sched.AddRoot(root)
	sched.AddRoot(root)

	stats := sched.Tick(nil)
	sched.Tick(nil)

	assert.Equal(t, []uint64{1, 2}, ticks)
	assert.Equal(t, uint64(2), sched.Ticks())
	assert.Equal(t, NodeID(2), root.Scope().ID())
	assert.Equal(t, 1, stats.Counts.Roots)
	assert.Equal(t, 2, stats.Counts.Nodes)
	assert.Equal(t, 2, stats.Counts.Mounted)
	assert.Len(t, sched.Roots(), 1)
}

func TestSetter_ConcurrentWrites(t *testing.T) {
	set := NewSetter()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				Set(set, ManualID[int](uint64(j)), i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, set.Len())
	assert.Len(t, set.Pending(), 100)
	assert.Len(t, set.take(), 100)
	assert.Zero(t, set.Len())
}
