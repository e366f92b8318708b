package core

// Root is the entry point of one composition tree. Create it with NewRoot and
// hand it to Scheduler.AddRoot; the tree is mounted during the next tick.
type Root struct {
	composer Composable
	resource any
	bound    bool

	owner *Scheduler
	tree  *tree
	scope *Scope
}

// NewRoot creates a root for c. A nil c composes as Empty.
func NewRoot(c Composable) *Root {
	if c == nil {
		c = Empty{}
	}
	return &Root{composer: c}
}

// BindResource sets the handle the root scope is bound to when it mounts,
// typically the host object that owns the tree. Descendants find it through
// Scope.ParentResource.
func (r *Root) BindResource(handle any) *Root {
	r.resource = handle
	r.bound = true
	return r
}

// Composer returns the top-level composable.
func (r *Root) Composer() Composable { return r.composer }

// Mounted reports whether the tree has been composed.
func (r *Root) Mounted() bool { return r.scope != nil }

// Scope returns the root scope, or nil before the first tick.
func (r *Root) Scope() *Scope { return r.scope }

// Lookup returns the scope with the given id if it belongs to this tree.
func (r *Root) Lookup(id NodeID) (*Scope, bool) {
	if r.tree == nil {
		return nil, false
	}
	scope, ok := r.tree.nodes[id]
	return scope, ok
}

// Len returns the number of scopes in the tree, including scopes that are
// pending removal.
func (r *Root) Len() int {
	if r.tree == nil {
		return 0
	}
	return len(r.tree.nodes)
}

func (r *Root) mount(ids *IDGenerator, debug bool, counters *tickCounters) {
	r.tree = newTree(ids, debug, counters)
	r.scope = r.tree.newScope(r.composer, 0, 0)
	if r.bound {
		r.scope.SetResource(r.resource)
	}
	r.scope.recompose()
}

// decomposeAll calls every Decompose hook in pre-order and returns the
// systems those hooks queued, along with anything still queued from
// composition. Subtrees already marked were decomposed by an earlier tick.
func (r *Root) decomposeAll() []System {
	var systems []System
	walk(r.scope, func(s *Scope) bool {
		if s.willDecompose {
			return false
		}
		s.MarkDecompose()
		s.decompose()
		return true
	})
	walk(r.scope, func(s *Scope) bool {
		systems = append(systems, s.takeQueued()...)
		return true
	})
	return systems
}

func (r *Root) unmount() {
	r.tree = nil
	r.scope = nil
}
