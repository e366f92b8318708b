package core

// Dyn is a single child slot whose composable may change type between
// passes. While the TypeTag stays the same the child scope is reused in
// place; when it changes the old child is marked for removal and a fresh one
// is mounted, so none of the previous child's state survives.
//
// Build one with NewDyn so the tag is captured from the wrapped value:
//
//	func page(s *core.Scope) core.Composable {
//	    mode := core.UseState(s, "list")
//	    if mode.Value() == "list" {
//	        return core.NewDyn(listView{})
//	    }
//	    return core.NewDyn(detailView{})
//	}
type Dyn struct {
	tag   TypeTag
	inner Composable
}

// NewDyn wraps c. A nil c composes as Empty.
func NewDyn(c Composable) Dyn {
	if c == nil {
		c = Empty{}
	}
	return Dyn{tag: TagOf(c), inner: c}
}

// Inner returns the wrapped composable.
func (d Dyn) Inner() Composable {
	if d.inner == nil {
		return Empty{}
	}
	return d.inner
}

// Tag returns the TypeTag captured by NewDyn.
func (d Dyn) Tag() TypeTag {
	if d.inner == nil {
		return TagOf(Empty{})
	}
	return d.tag
}

// IsEmpty reports whether the wrapped composable is Empty.
func (d Dyn) IsEmpty() bool {
	_, ok := d.Inner().(Empty)
	return ok
}

// Compose reconciles the single child against the remembered tag.
func (d Dyn) Compose(s *Scope) Composable {
	tag := d.Tag()
	last := UseState(s, tag)

	child := s.liveChild()
	switch {
	case child == nil:
		s.MountChild(d.Inner(), 0)
	case last.Value() != tag:
		s.remount(child, d.Inner(), 0)
	default:
		s.UpdateChild(child, d.Inner(), 0)
	}

	if last.Value() != tag {
		SetStateUnchanged(s, last, tag)
	}
	return nil
}

// IgnoreChildren implements Composite.
func (Dyn) IgnoreChildren() bool { return true }

// Name implements Namer.
func (Dyn) Name() string { return "Dyn" }
