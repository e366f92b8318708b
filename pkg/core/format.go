package core

import (
	"fmt"
	"strings"
)

// String returns a one-line description of the scope.
func (s *Scope) String() string {
	return fmt.Sprintf("Scope(name: %s, id: %d)", s.Name(), s.id)
}

// Dump renders the subtree rooted at s as nested tags, one per line:
//
//	<App id={1}>
//	  <List id={2}>
//	    <Row id={3} />
//	  </List>
//	</App>
//
// Scopes pending removal are rendered with a trailing "removing" attribute.
func Dump(s *Scope) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	dump(&b, s, 0)
	return b.String()
}

func dump(b *strings.Builder, s *Scope, depth int) {
	indent := strings.Repeat("  ", depth)
	attrs := fmt.Sprintf("id={%d}", s.id)
	if s.willDecompose {
		attrs += " removing"
	}
	if len(s.children) == 0 {
		fmt.Fprintf(b, "%s<%s %s />\n", indent, s.Name(), attrs)
		return
	}
	fmt.Fprintf(b, "%s<%s %s>\n", indent, s.Name(), attrs)
	for _, child := range s.children {
		dump(b, child, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, s.Name())
}
