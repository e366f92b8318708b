package core

import "time"

// PhaseTimings holds the duration of each tick phase.
type PhaseTimings struct {
	Initial   time.Duration `json:"initial"`
	Systems   time.Duration `json:"systems"`
	Prune     time.Duration `json:"prune"`
	Mutations time.Duration `json:"mutations"`
	Recompose time.Duration `json:"recompose"`
	Decompose time.Duration `json:"decompose"`
}

// Total returns the sum of all phase durations.
func (p PhaseTimings) Total() time.Duration {
	return p.Initial + p.Systems + p.Prune + p.Mutations + p.Recompose + p.Decompose
}

// TickCounts holds per-tick counters.
type TickCounts struct {
	Roots            int `json:"roots"`
	Nodes            int `json:"nodes"`
	Mounted          int `json:"mounted"`
	SystemsRun       int `json:"systemsRun"`
	Pruned           int `json:"pruned"`
	MutationsApplied int `json:"mutationsApplied"`
	MutationsDropped int `json:"mutationsDropped"`
	Composed         int `json:"composed"`
	Recomposed       int `json:"recomposed"`
	Decomposed       int `json:"decomposed"`
}

// TickStats describes one completed tick.
type TickStats struct {
	Tick   uint64       `json:"tick"`
	Phases PhaseTimings `json:"phases"`
	Counts TickCounts   `json:"counts"`
}

// TickObserver receives the stats of every completed tick. Observers are
// called synchronously at the end of Scheduler.Tick.
type TickObserver interface {
	ObserveTick(stats TickStats)
}

// TickObserverFunc adapts a function to TickObserver.
type TickObserverFunc func(stats TickStats)

// ObserveTick calls f(stats).
func (f TickObserverFunc) ObserveTick(stats TickStats) { f(stats) }

// tickCounters is shared by all trees of a scheduler and reset every tick.
type tickCounters struct {
	mounted  int
	composed int
}
