package testing

import (
	"errors"
	"testing"

	"github.com/go-drift/recompose/pkg/core"
	"github.com/go-drift/recompose/pkg/logging"
)

// DefaultSettleTicks bounds PumpAndSettle.
const DefaultSettleTicks = 100

// ErrSettleTimeout is returned when PumpAndSettle exceeds its tick budget.
var ErrSettleTimeout = errors.New("PumpAndSettle timed out: tree did not settle")

// Tester drives a single root through a private scheduler. Ticks only happen
// when the test pumps, so every phase is deterministic.
type Tester struct {
	sched  *core.Scheduler
	root   *core.Root
	world  core.World
	queued []func(set *core.Setter)
	last   core.TickStats
}

// NewTester creates a tester for c. The scheduler logs nowhere and has the
// hook-order assertion enabled unless opts say otherwise. Call Cleanup when
// done, or use NewTesterWithT instead.
func NewTester(c core.Composable, opts ...core.Option) *Tester {
	base := []core.Option{
		core.WithLogger(logging.NewNop()),
		core.WithDebug(true),
	}
	sched := core.NewScheduler(append(base, opts...)...)
	root := core.NewRoot(c)
	sched.AddRoot(root)
	return &Tester{sched: sched, root: root}
}

// NewTesterWithT creates a tester that tears its root down via t.Cleanup.
// This is the recommended constructor for tests.
func NewTesterWithT(t testing.TB, c core.Composable, opts ...core.Option) *Tester {
	tester := NewTester(c, opts...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup removes the root, running every Decompose hook against the
// current world. Calling it twice is harmless.
func (t *Tester) Cleanup() {
	t.sched.RemoveRoot(t.root, t.world)
}

// Scheduler returns the scheduler driving the tree.
func (t *Tester) Scheduler() *core.Scheduler { return t.sched }

// Root returns the tester's root.
func (t *Tester) Root() *core.Root { return t.root }

// Scope returns the root scope, or nil before the first Pump.
func (t *Tester) Scope() *core.Scope { return t.root.Scope() }

// World returns the value passed to systems.
func (t *Tester) World() core.World { return t.world }

// SetWorld replaces the value passed to systems on later ticks.
func (t *Tester) SetWorld(w core.World) { t.world = w }

// Setter returns the scheduler's mutation queue.
func (t *Tester) Setter() *core.Setter { return t.sched.Setter() }

// Queue registers fn to run against the setter right before the next Pump,
// so its writes are part of that tick.
func (t *Tester) Queue(fn func(set *core.Setter)) {
	t.queued = append(t.queued, fn)
}

// Last returns the stats of the most recent tick.
func (t *Tester) Last() core.TickStats { return t.last }

// Pump flushes queued writers and runs one tick.
func (t *Tester) Pump() core.TickStats {
	queued := t.queued
	t.queued = nil
	for _, fn := range queued {
		fn(t.sched.Setter())
	}
	t.last = t.sched.Tick(t.world)
	return t.last
}

// PumpN runs n ticks and returns the stats of the last one.
func (t *Tester) PumpN(n int) core.TickStats {
	for range n {
		t.Pump()
	}
	return t.last
}

// PumpAndSettle pumps until a tick does no work and nothing is queued, or
// maxTicks ticks have run (DefaultSettleTicks when maxTicks <= 0). It
// returns the number of ticks pumped.
func (t *Tester) PumpAndSettle(maxTicks int) (int, error) {
	if maxTicks <= 0 {
		maxTicks = DefaultSettleTicks
	}
	for i := 1; i <= maxTicks; i++ {
		stats := t.Pump()
		if idle(stats.Counts) && t.sched.Setter().Len() == 0 && len(t.queued) == 0 {
			return i, nil
		}
	}
	return maxTicks, ErrSettleTimeout
}

// Replace tears the tree down and mounts c on the next Pump.
func (t *Tester) Replace(c core.Composable) {
	t.sched.ReplaceRoot(t.root, c, t.world)
}

// Find evaluates finder against the mounted tree.
func (t *Tester) Find(finder Finder) FinderResult {
	scope := t.root.Scope()
	if scope == nil {
		return FinderResult{finder: finder}
	}
	return FinderResult{scopes: finder.Evaluate(scope), finder: finder}
}

// Dump returns the textual rendering of the mounted tree.
func (t *Tester) Dump() string {
	return core.Dump(t.root.Scope())
}

func idle(c core.TickCounts) bool {
	return c.Mounted == 0 && c.Composed == 0 && c.SystemsRun == 0 &&
		c.Pruned == 0 && c.MutationsApplied == 0 && c.Decomposed == 0
}
