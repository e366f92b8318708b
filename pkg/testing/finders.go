package testing

import (
	"fmt"
	"reflect"

	"github.com/go-drift/recompose/pkg/core"
)

// Finder locates scopes in a tree.
type Finder interface {
	// Evaluate returns all matching scopes under root (depth-first pre-order).
	Evaluate(root *core.Scope) []*core.Scope
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	scopes []*core.Scope
	finder Finder
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *core.Scope {
	if len(r.scopes) == 0 {
		panic(fmt.Sprintf("Finder found no scopes: %s", r.description()))
	}
	return r.scopes[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *core.Scope {
	if len(r.scopes) == 0 {
		return nil
	}
	return r.scopes[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *core.Scope {
	if index < 0 || index >= len(r.scopes) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.scopes), r.description()))
	}
	return r.scopes[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*core.Scope {
	return r.scopes
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.scopes)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.scopes) > 0
}

// Live drops matches that are marked for removal.
func (r FinderResult) Live() FinderResult {
	live := make([]*core.Scope, 0, len(r.scopes))
	for _, s := range r.scopes {
		if !s.WillDecompose() {
			live = append(live, s)
		}
	}
	return FinderResult{scopes: live, finder: r.finder}
}

// IDs returns the node ids of the matches.
func (r FinderResult) IDs() []core.NodeID {
	ids := make([]core.NodeID, len(r.scopes))
	for i, s := range r.scopes {
		ids[i] = s.ID()
	}
	return ids
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// --- Concrete finders ---

type nameFinder struct {
	name string
}

func (f *nameFinder) Evaluate(root *core.Scope) []*core.Scope {
	return collectMatches(root, func(s *core.Scope) bool {
		return s.Name() == f.name
	})
}

func (f *nameFinder) Description() string {
	return fmt.Sprintf("ByName(%q)", f.name)
}

// ByName returns a finder that matches scopes by display name, the same
// name Dump prints.
func ByName(name string) Finder {
	return &nameFinder{name: name}
}

type typeFinder struct {
	typ reflect.Type
}

func (f *typeFinder) Evaluate(root *core.Scope) []*core.Scope {
	return collectMatches(root, func(s *core.Scope) bool {
		return reflect.TypeOf(s.Composer()) == f.typ
	})
}

func (f *typeFinder) Description() string {
	return fmt.Sprintf("ByType(%s)", f.typ)
}

// ByType returns a finder that matches scopes whose composer is of type T.
func ByType[T core.Composable]() Finder {
	return &typeFinder{typ: reflect.TypeFor[T]()}
}

type keyFinder struct {
	key any
}

func (f *keyFinder) Evaluate(root *core.Scope) []*core.Scope {
	return collectMatches(root, func(s *core.Scope) bool {
		k, ok := keyOf(s)
		if !ok {
			return false
		}
		// Guard against non-comparable keys (slices, maps, funcs).
		if f.key != nil && !reflect.TypeOf(f.key).Comparable() {
			return reflect.DeepEqual(k, f.key)
		}
		return k == f.key
	})
}

func (f *keyFinder) Description() string {
	return fmt.Sprintf("ByKey(%v)", f.key)
}

// ByKey returns a finder that matches the children of a List by key.
func ByKey(key any) Finder {
	return &keyFinder{key: key}
}

// keyOf resolves the key a scope was mounted under. Keyer composers report
// their own key; composables wrapped with core.KeyedOf are found through the
// parent List's key map.
func keyOf(s *core.Scope) (any, bool) {
	if k, ok := s.Composer().(core.Keyer); ok {
		return k.Key(), true
	}
	parent := s.Parent()
	if parent == nil {
		return nil, false
	}
	if _, ok := parent.Composer().(core.List); !ok {
		return nil, false
	}
	for _, info := range parent.States() {
		known, ok := info.Value.(map[any]core.NodeID)
		if !ok {
			continue
		}
		for key, id := range known {
			if id == s.ID() {
				return key, true
			}
		}
	}
	return nil, false
}

type predicateFinder struct {
	fn   func(*core.Scope) bool
	desc string
}

func (f *predicateFinder) Evaluate(root *core.Scope) []*core.Scope {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByPredicate returns a finder that matches scopes satisfying fn.
func ByPredicate(fn func(*core.Scope) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *core.Scope) []*core.Scope {
	var results []*core.Scope
	seen := make(map[*core.Scope]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		// Search each ancestor's subtree, skipping the ancestor itself.
		for _, child := range ancestor.Children() {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		}
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches scopes satisfying matching that
// are descendants of scopes matching of.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *core.Scope) []*core.Scope {
	candidates := make(map[*core.Scope]bool)
	for _, s := range f.matching.Evaluate(root) {
		candidates[s] = true
	}
	if len(candidates) == 0 {
		return nil
	}
	marked := make(map[*core.Scope]bool)
	for _, desc := range f.of.Evaluate(root) {
		for p := desc.Parent(); p != nil; p = p.Parent() {
			if candidates[p] {
				marked[p] = true
			}
		}
	}
	// Report in pre-order rather than discovery order.
	return collectMatches(root, func(s *core.Scope) bool { return marked[s] })
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor returns a finder that matches scopes satisfying matching that are
// ancestors of scopes matching of.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

// collectMatches performs depth-first pre-order traversal, collecting
// scopes that satisfy the predicate.
func collectMatches(root *core.Scope, predicate func(*core.Scope) bool) []*core.Scope {
	var results []*core.Scope
	walkTree(root, func(s *core.Scope) bool {
		if predicate(s) {
			results = append(results, s)
		}
		return true
	})
	return results
}

// walkTree performs a depth-first pre-order traversal of the scope tree,
// pending children included. The visitor returns false to stop traversal.
func walkTree(root *core.Scope, visitor func(*core.Scope) bool) bool {
	if !visitor(root) {
		return false
	}
	for _, child := range root.Children() {
		if !walkTree(child, visitor) {
			return false
		}
	}
	return true
}
