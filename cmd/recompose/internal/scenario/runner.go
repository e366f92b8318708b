package scenario

import (
	"fmt"

	"github.com/go-drift/recompose/pkg/core"
	"github.com/go-drift/recompose/pkg/errors"
)

// settleTicks bounds the idle ticks run after the last step.
const settleTicks = 16

// Frame is the state of the board after one tick.
type Frame struct {
	// Step is the index of the step that produced the frame; -1 for the
	// initial mount, len(Steps) for settling and teardown.
	Step   int            `json:"step"`
	Tick   uint64         `json:"tick"`
	Tree   string         `json:"tree"`
	Stats  core.TickStats `json:"stats"`
	Events []string       `json:"events,omitempty"`
}

// Result is a complete replay.
type Result struct {
	// RunID is the scheduler's correlation id, also attached to its logs.
	RunID  string  `json:"runId"`
	Frames []Frame `json:"frames"`
	// Teardown holds the events of removing the root at the end.
	Teardown []string `json:"teardown,omitempty"`
	// Leaked lists entities still live after teardown.
	Leaked []string `json:"leaked,omitempty"`
}

// Run replays sc on a fresh scheduler built from opts. A reconciliation
// failure stops the replay and is returned with the frames produced so far.
func Run(sc *Scenario, opts ...core.Option) (*Result, error) {
	r := &runner{
		sched:   core.NewScheduler(opts...),
		journal: NewJournal(),
	}
	r.result = &Result{RunID: r.sched.RunID()}
	r.root = core.NewRoot(board{sc: sc})
	r.sched.AddRoot(r.root)

	if err := r.tick(-1); err != nil {
		return r.result, err
	}
	for i, step := range sc.Steps {
		r.queue(step)
		for range max(step.Ticks, 1) {
			if err := r.tick(i); err != nil {
				return r.result, err
			}
		}
	}
	for range settleTicks {
		if r.idle() {
			break
		}
		if err := r.tick(len(sc.Steps)); err != nil {
			return r.result, err
		}
	}

	if err := r.teardown(); err != nil {
		return r.result, err
	}
	r.result.Leaked = r.journal.Live()
	return r.result, nil
}

type runner struct {
	sched   *core.Scheduler
	root    *core.Root
	journal *Journal
	result  *Result
	last    core.TickStats
}

func (r *runner) queue(step Step) {
	set := r.sched.Setter()
	if step.Items != nil {
		core.Set(set, itemsID, *step.Items)
	}
	if step.Mode != "" {
		core.Set(set, modeID, step.Mode)
	}
	if step.Detail != nil {
		core.Set(set, detailID, *step.Detail)
	}
}

func (r *runner) tick(step int) (err error) {
	defer recoverReconcile(&err)

	stats := r.sched.Tick(r.journal)
	r.last = stats
	r.result.Frames = append(r.result.Frames, Frame{
		Step:   step,
		Tick:   stats.Tick,
		Tree:   core.Dump(r.root.Scope()),
		Stats:  stats,
		Events: r.journal.Drain(),
	})
	return nil
}

// idle reports whether the last tick did no work and nothing is queued.
func (r *runner) idle() bool {
	c := r.last.Counts
	return r.sched.Setter().Len() == 0 && c.Composed == 0 && c.SystemsRun == 0 &&
		c.Pruned == 0 && c.MutationsApplied == 0 && c.Decomposed == 0
}

func (r *runner) teardown() (err error) {
	defer recoverReconcile(&err)

	r.sched.RemoveRoot(r.root, r.journal)
	r.result.Teardown = r.journal.Drain()
	return nil
}

// recoverReconcile turns a reconciliation panic into an error. The scheduler
// has already reported it to the error handler.
func recoverReconcile(err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	if re, ok := rec.(*errors.ReconcileError); ok {
		*err = re
		return
	}
	*err = fmt.Errorf("scenario: %v", rec)
}
