package core_test

import (
	"fmt"

	"github.com/go-drift/recompose/pkg/core"
)

type todo struct {
	id    int
	title string
}

// todoRow mirrors one todo into the host world while it is mounted.
type todoRow struct {
	item todo
}

func (r todoRow) Key() any { return r.item.id }

func (r todoRow) Compose(s *core.Scope) core.Composable {
	s.UseSystemOnce(func(w core.World, _ *core.Setter) {
		fmt.Println("spawn", r.item.title)
	})
	return nil
}

func (r todoRow) Decompose(s *core.Scope) {
	s.RunSystem(func(w core.World, _ *core.Setter) {
		fmt.Println("despawn", r.item.title)
	})
}

var todos = core.ManualID[[]todo](1)

// This example keeps a host-side object per list entry. Removing an entry
// decomposes its row, which queues the matching despawn.
func ExampleList() {
	app := core.Named("Todos", func(s *core.Scope) core.Composable {
		items := core.UseStateWithID(s, todos, []todo{{1, "write"}, {2, "test"}})
		return core.ListOf(items.Value(),
			func(t todo) any { return t.id },
			func(t todo) core.Composable { return todoRow{item: t} })
	})

	sched := core.NewScheduler()
	sched.AddRoot(core.NewRoot(app))
	sched.Tick(nil)

	core.Set(sched.Setter(), todos, []todo{{2, "test"}})
	sched.Tick(nil) // applies the write and decomposes the first row
	sched.Tick(nil) // runs the despawn system

	// Output:
	// spawn write
	// spawn test
	// despawn write
}

// This example shows the one-tick delay between a system's write and the
// composition that observes it.
func ExampleSetter() {
	app := core.ComposeFunc(func(s *core.Scope) core.Composable {
		count := core.UseState(s, 0)
		fmt.Printf("count=%d changed=%v\n", count.Value(), count.Changed())
		s.UseSystemOnce(func(_ core.World, set *core.Setter) {
			core.Modify(set, count, func(n int) int { return n + 1 })
		})
		return nil
	})

	sched := core.NewScheduler()
	sched.AddRoot(core.NewRoot(app))
	for range 3 {
		sched.Tick(nil)
	}

	// Output:
	// count=0 changed=true
	// count=1 changed=true
}

func ExampleDump() {
	sched := core.NewScheduler()
	root := core.NewRoot(core.Named("App", func(*core.Scope) core.Composable {
		return core.Some(core.Empty{})
	}))
	sched.AddRoot(root)
	sched.Tick(nil)

	fmt.Print(core.Dump(root.Scope()))

	// Output:
	// <App id={1}>
	//   <Optional id={2}>
	//     <Dyn id={3}>
	//       <Empty id={5} />
	//     </Dyn>
	//   </Optional>
	// </App>
}
