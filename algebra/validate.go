package algebra

import (
	"errors"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"strings"
)

var ErrInvalidTree = errors.New("invalid algebra tree")

// scope describes what a subtree produces, table -> columns. A nil column
// set means every column of the table, ie nothing projected it away yet.
type scope map[string]mapset.Set[string]

func splitColumn(qualified string) (string, string) {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

func (self scope) covers(qualified string) bool {
	table, column := splitColumn(qualified)
	cols, ok := self[table]
	if !ok {
		return false
	}
	return cols == nil || cols.Contains(column)
}

// Produces reports whether the subtree of id can produce the column
func (self *Tree) Produces(id NodeID, qualified string) bool {
	return self.scopeOf(id).covers(qualified)
}

func (self *Tree) scopeOf(id NodeID) scope {
	switch n := self.nodes[id].(type) {
	case *Relation:
		return scope{n.Name: nil}
	case *Selection:
		return self.scopeOf(n.Child)
	case *Join:
		out := self.scopeOf(n.Left)
		for k, v := range self.scopeOf(n.Right) {
			out[k] = v
		}
		return out
	case *Projection:
		out := scope{}
		for _, attr := range n.Attrs {
			table, column := splitColumn(attr)
			if _, ok := out[table]; !ok {
				out[table] = mapset.NewSet[string]()
			}
			out[table].Add(column)
		}
		return out
	default:
		panic("unreachable")
	}
}

func invalid(id NodeID, format string, args ...interface{}) error {
	return fmt.Errorf("%w: node %d: %s", ErrInvalidTree, id, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of the tree: it is rooted, every
// node has a single parent, there is no cycle, and every column a node uses is
// produced by the subtree beneath it.
func (self *Tree) Validate() error {
	if self.Empty() {
		return fmt.Errorf("%w: no root", ErrInvalidTree)
	}
	if !self.valid(self.root) {
		return fmt.Errorf("%w: root %d out of range", ErrInvalidTree, self.root)
	}

	// shape first, every later check recurses and would not terminate on a
	// cycle
	seen := mapset.NewThreadUnsafeSet[NodeID]()
	stack := []NodeID{self.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !seen.Add(id) {
			return invalid(id, "node has more than one parent")
		}
		for _, c := range self.Children(id) {
			if !self.valid(c) {
				return invalid(id, "child %d out of range", c)
			}
			stack = append(stack, c)
		}
	}

	return self.validateNode(self.root)
}

func (self *Tree) validateNode(id NodeID) error {
	for _, c := range self.Children(id) {
		if err := self.validateNode(c); err != nil {
			return err
		}
	}

	switch n := self.nodes[id].(type) {
	case *Relation:
		if n.Name == "" {
			return invalid(id, "relation without name")
		}

	case *Selection:
		if n.Cond == nil {
			return invalid(id, "selection without condition")
		}
		s := self.scopeOf(n.Child)
		for _, col := range n.Cond.Columns() {
			if !s.covers(col) {
				return invalid(id, "selection column %s is not produced below", col)
			}
		}

	case *Join:
		if n.Cond == nil {
			return invalid(id, "join without condition")
		}
		left := mapset.NewSet[string](self.Tables(n.Left)...)
		right := mapset.NewSet[string](self.Tables(n.Right)...)
		if both := left.Intersect(right); both.Cardinality() > 0 {
			return invalid(id, "table %v is on both sides of the join", both.ToSlice())
		}
		s := self.scopeOf(id)
		for _, col := range n.Cond.Columns() {
			if !s.covers(col) {
				return invalid(id, "join column %s is not produced below", col)
			}
		}

	case *Projection:
		if len(n.Attrs) == 0 {
			return invalid(id, "projection without attribute")
		}
		s := self.scopeOf(n.Child)
		for _, attr := range n.Attrs {
			if !s.covers(attr) {
				return invalid(id, "projected column %s is not produced below", attr)
			}
		}

	default:
		panic("unreachable")
	}
	return nil
}
