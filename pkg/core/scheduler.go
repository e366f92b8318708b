package core

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/go-drift/recompose/pkg/errors"
	"github.com/go-drift/recompose/pkg/logging"
)

// Scheduler drives the roots added to it through the tick pipeline. It owns
// the id generator shared by all its trees and the Setter systems write to.
//
// A Scheduler is not safe for concurrent use. Only its Setter may be written
// from other goroutines between ticks.
type Scheduler struct {
	ids       *IDGenerator
	setter    *Setter
	roots     []*Root
	logger    *slog.Logger
	observers []TickObserver
	debug     bool
	run       string

	tick     uint64
	counters tickCounters
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver adds an observer notified after every tick.
func WithObserver(o TickObserver) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithDebug enables or disables hook-order assertions for trees mounted after
// the option is applied. The default is DebugMode.
func WithDebug(debug bool) Option {
	return func(s *Scheduler) { s.debug = debug }
}

// WithIDGenerator replaces the scheduler's id generator, for example to share
// ids between schedulers.
func WithIDGenerator(ids *IDGenerator) Option {
	return func(s *Scheduler) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		ids:    NewIDGenerator(),
		setter: NewSetter(),
		logger: logging.NewNop(),
		debug:  DebugMode,
		run:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("run", s.run))
	return s
}

// Setter returns the queue that systems and outside callers write state through.
func (s *Scheduler) Setter() *Setter { return s.setter }

// RunID returns the correlation id attached to every log record.
func (s *Scheduler) RunID() string { return s.run }

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() uint64 { return s.tick }

// Roots returns the roots in the order they were added.
func (s *Scheduler) Roots() []*Root { return slices.Clone(s.roots) }

// AddRoot registers r. Its tree is composed during the first phase of the
// next tick. Adding a root that is already registered is a no-op; adding one
// owned by another scheduler panics.
func (s *Scheduler) AddRoot(r *Root) {
	if r == nil || r.owner == s {
		return
	}
	s.checkOwner("core.Scheduler.AddRoot", r)
	r.owner = s
	s.roots = append(s.roots, r)
}

// RemoveRoot tears down r's tree: every scope is decomposed in pre-order, the
// systems queued by those Decompose hooks run against world, and the tree is
// released. It reports whether r was registered.
func (s *Scheduler) RemoveRoot(r *Root, world World) bool {
	defer errors.Rethrow("core.Scheduler.RemoveRoot")

	i := slices.Index(s.roots, r)
	if i < 0 {
		return false
	}
	s.teardown(r, world)
	s.roots = slices.Delete(s.roots, i, i+1)
	r.owner = nil
	return true
}

// ReplaceRoot tears down r's tree like RemoveRoot and mounts c in its place
// on the next tick. A root that is not registered is added.
func (s *Scheduler) ReplaceRoot(r *Root, c Composable, world World) {
	defer errors.Rethrow("core.Scheduler.ReplaceRoot")

	s.checkOwner("core.Scheduler.ReplaceRoot", r)
	if c == nil {
		c = Empty{}
	}
	if r.owner == s {
		s.teardown(r, world)
	}
	r.composer = c
	s.AddRoot(r)
}

func (s *Scheduler) checkOwner(op string, r *Root) {
	if r.owner != nil && r.owner != s {
		var root *Scope
		if r.Mounted() {
			root = r.scope
		}
		fail(op, errors.KindInvariant, errors.ErrForeignRoot, root, StateID{}, "")
	}
}

func (s *Scheduler) teardown(r *Root, world World) {
	if !r.Mounted() {
		return
	}
	id := r.scope.id
	nodes := r.Len()
	systems := r.decomposeAll()
	for _, sys := range systems {
		sys(world, s.setter)
	}
	r.unmount()
	s.logger.Info("root removed",
		slog.Uint64("root", uint64(id)),
		slog.Int("nodes", nodes),
		slog.Int("systems", len(systems)))
}

// Tick runs one reconciliation cycle:
//
//  1. compose roots added since the last tick
//  2. run queued systems against world
//  3. prune scopes marked for removal on the previous tick
//  4. apply the writes queued on the Setter before this tick started
//  5. recompose every scope with a queued state write
//  6. call Decompose on marked scopes and cascade the mark to their children
//
// Writes that systems queue during phase 2 are applied on the next tick.
// Misuse of the hooks panics with a *errors.ReconcileError; the panic is
// reported to the errors handler and propagates to the caller.
func (s *Scheduler) Tick(world World) TickStats {
	defer errors.Rethrow("core.Scheduler.Tick")

	s.tick++
	s.counters = tickCounters{}
	stats := TickStats{Tick: s.tick}
	pending := s.setter.take()

	start := time.Now()
	s.initialCompose()
	stats.Phases.Initial = time.Since(start)

	start = time.Now()
	stats.Counts.SystemsRun = s.runSystems(world)
	stats.Phases.Systems = time.Since(start)

	start = time.Now()
	stats.Counts.Pruned = s.prune()
	stats.Phases.Prune = time.Since(start)

	start = time.Now()
	stats.Counts.MutationsApplied, stats.Counts.MutationsDropped = s.applyMutations(pending)
	stats.Phases.Mutations = time.Since(start)

	start = time.Now()
	before := s.counters.composed
	s.recomposeQueued()
	stats.Counts.Recomposed = s.counters.composed - before
	stats.Phases.Recompose = time.Since(start)

	start = time.Now()
	stats.Counts.Decomposed = s.decomposeMarked()
	stats.Phases.Decompose = time.Since(start)

	stats.Counts.Composed = s.counters.composed
	stats.Counts.Mounted = s.counters.mounted
	for _, r := range s.roots {
		if r.Mounted() {
			stats.Counts.Roots++
			stats.Counts.Nodes += r.Len()
		}
	}

	s.logger.Debug("tick",
		slog.Uint64("tick", stats.Tick),
		slog.Duration("elapsed", stats.Phases.Total()),
		slog.Int("nodes", stats.Counts.Nodes),
		slog.Int("composed", stats.Counts.Composed),
		slog.Int("systems", stats.Counts.SystemsRun),
		slog.Int("mutations", stats.Counts.MutationsApplied),
		slog.Int("decomposed", stats.Counts.Decomposed))

	for _, o := range s.observers {
		o.ObserveTick(stats)
	}
	return stats
}

func (s *Scheduler) initialCompose() {
	for _, r := range s.roots {
		if r.Mounted() {
			continue
		}
		r.mount(s.ids, s.debug, &s.counters)
		s.logger.Info("root mounted",
			slog.Uint64("root", uint64(r.scope.id)),
			slog.String("composer", r.scope.Name()),
			slog.Int("nodes", r.Len()))
	}
}

func (s *Scheduler) mounted(visit func(r *Root)) {
	for _, r := range s.roots {
		if r.Mounted() {
			visit(r)
		}
	}
}

// runSystems drains every scope's queue in pre-order, then runs the systems.
func (s *Scheduler) runSystems(world World) int {
	var systems []System
	s.mounted(func(r *Root) {
		walk(r.scope, func(scope *Scope) bool {
			systems = append(systems, scope.takeQueued()...)
			return true
		})
	})
	for _, sys := range systems {
		sys(world, s.setter)
	}
	return len(systems)
}

func (s *Scheduler) prune() int {
	pruned := 0
	s.mounted(func(r *Root) {
		walk(r.scope, func(scope *Scope) bool {
			scope.children = slices.DeleteFunc(scope.children, func(child *Scope) bool {
				if !child.willDecompose {
					return false
				}
				r.tree.forget(child)
				pruned++
				return true
			})
			return true
		})
	})
	return pruned
}

// applyMutations routes each pending write to the first slot with a matching
// id in pre-order. Writes with no matching slot are dropped and reported to
// the errors handler.
func (s *Scheduler) applyMutations(pending map[StateID]action) (applied, dropped int) {
	if len(pending) == 0 {
		return 0, 0
	}
	s.mounted(func(r *Root) {
		walk(r.scope, func(scope *Scope) bool {
			for _, slot := range scope.states {
				a, ok := pending[slot.id]
				if !ok {
					continue
				}
				if a.typ != slot.typ {
					fail("core.Scheduler.applyMutations", errors.KindHookMismatch, errors.ErrTypeMismatch,
						scope, slot.id, "slot holds "+slot.typ.String()+", write has "+a.typ.String())
				}
				a.apply(slot)
				delete(pending, slot.id)
				applied++
			}
			return len(pending) > 0
		})
	})
	for id := range pending {
		s.logger.Debug("dropped mutation", slog.String("state", id.String()))
		errors.Report(&errors.ReconcileError{
			Op:    "core.Scheduler.applyMutations",
			Kind:  errors.KindMissingState,
			Err:   errors.ErrStateNotFound,
			State: id.String(),
		})
		dropped++
	}
	return applied, dropped
}

func (s *Scheduler) recomposeQueued() {
	s.mounted(func(r *Root) {
		walk(r.scope, func(scope *Scope) bool {
			if scope.willDecompose || !scope.hasQueued() {
				return true
			}
			scope.recompose()
			return false
		})
	})
}

func (s *Scheduler) decomposeMarked() int {
	decomposed := 0
	s.mounted(func(r *Root) {
		walk(r.scope, func(scope *Scope) bool {
			if !scope.willDecompose {
				return true
			}
			scope.decompose()
			decomposed++
			for _, child := range scope.children {
				child.willDecompose = true
			}
			return true
		})
	})
	return decomposed
}
