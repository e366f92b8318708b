package scenario

import (
	"fmt"
	"slices"

	"github.com/go-drift/recompose/pkg/core"
)

var (
	itemsID  = core.ManualID[[]string](1)
	modeID   = core.ManualID[string](2)
	detailID = core.ManualID[bool](3)
)

// Journal is the world the board's systems write to. It hands out entity
// ids for mounted rows and records what happened.
type Journal struct {
	next   int
	live   map[int]string
	events []string
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{live: make(map[int]string)}
}

// Spawn allocates an entity for name.
func (j *Journal) Spawn(name string) int {
	j.next++
	j.live[j.next] = name
	j.events = append(j.events, fmt.Sprintf("spawn %s #%d", name, j.next))
	return j.next
}

// Despawn releases an entity.
func (j *Journal) Despawn(entity int) {
	name, ok := j.live[entity]
	if !ok {
		j.events = append(j.events, fmt.Sprintf("despawn unknown #%d", entity))
		return
	}
	delete(j.live, entity)
	j.events = append(j.events, fmt.Sprintf("despawn %s #%d", name, entity))
}

// Note records a free-form event.
func (j *Journal) Note(event string) {
	j.events = append(j.events, event)
}

// Live returns the names of live entities ordered by entity id.
func (j *Journal) Live() []string {
	ids := make([]int, 0, len(j.live))
	for id := range j.live {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = j.live[id]
	}
	return names
}

// Drain returns and clears the events recorded since the last call.
func (j *Journal) Drain() []string {
	events := j.events
	j.events = nil
	return events
}

func journalOf(w core.World) *Journal {
	j, ok := w.(*Journal)
	if !ok {
		panic(fmt.Sprintf("scenario: world is %T, want *Journal", w))
	}
	return j
}

// board is the root: a view of the items that switches between a keyed list
// and a positional grid, plus an optional detail panel.
type board struct {
	sc *Scenario
}

func (b board) Compose(s *core.Scope) core.Composable {
	items := core.UseStateWithID(s, itemsID, slices.Clone(b.sc.Items))
	mode := core.UseStateWithID(s, modeID, b.sc.Mode)
	detail := core.UseStateWithID(s, detailID, b.sc.Detail)

	var view core.Composable = listView{items: items.Value()}
	if mode.Value() == ModeGrid {
		view = gridView{items: items.Value()}
	}
	return core.Group(
		core.NewDyn(view),
		core.Maybe(detail.Value(), detailPanel{count: len(items.Value())}),
	)
}

func (board) Name() string { return "Board" }

type listView struct {
	items []string
}

func (v listView) Compose(*core.Scope) core.Composable {
	return core.ListOf(v.items,
		func(item string) any { return item },
		func(item string) core.Composable { return row{name: item} })
}

func (listView) Name() string { return "ListView" }

// gridView lays the items out by position: a cell keeps its scope when its
// item changes.
type gridView struct {
	items []string
}

func (v gridView) Compose(*core.Scope) core.Composable {
	cells := make(core.Tuple, len(v.items))
	for i, item := range v.items {
		cells[i] = cell{name: item}
	}
	return cells
}

func (gridView) Name() string { return "GridView" }

// row owns one entity in the journal for as long as it is mounted.
type row struct {
	name string
}

func (r row) Compose(s *core.Scope) core.Composable {
	s.UseSystemOnce(func(w core.World, _ *core.Setter) {
		s.SetResource(journalOf(w).Spawn(r.name))
	})
	return nil
}

func (r row) Decompose(s *core.Scope) {
	s.RunSystem(func(w core.World, _ *core.Setter) {
		if entity, ok := s.Resource(); ok {
			journalOf(w).Despawn(entity.(int))
		}
	})
}

func (row) Name() string { return "Row" }

type cell struct {
	name string
}

func (c cell) Compose(s *core.Scope) core.Composable {
	label := core.UseState(s, c.name)
	if label.Value() != c.name {
		core.SetStateUnchanged(s, label, c.name)
	}
	return nil
}

func (cell) Name() string { return "Cell" }

type detailPanel struct {
	count int
}

func (d detailPanel) Compose(s *core.Scope) core.Composable {
	count := core.UseState(s, d.count)
	if count.Value() != d.count {
		core.SetStateUnchanged(s, count, d.count)
	}
	s.UseMount(func() {
		s.RunSystem(func(w core.World, _ *core.Setter) {
			journalOf(w).Note("detail shown")
		})
	})
	return nil
}

func (detailPanel) Decompose(s *core.Scope) {
	s.RunSystem(func(w core.World, _ *core.Setter) {
		journalOf(w).Note("detail hidden")
	})
}

func (detailPanel) Name() string { return "Detail" }
