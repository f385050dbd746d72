package plan

import (
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2ra/algebra"
	"github.com/dianpeng/sql2ra/sql"
)

// ----------------------------------------------------------------------------
//
// Predicate placement. The builder wraps single table conditions right over
// their relation, but leaves every multi table condition on top of the whole
// join chain. This rule sinks each selection to the lowest position whose
// subtree still reaches every table the condition mentions:
//
//  1) at a join, if one side alone covers the condition, go into that side
//
//  2) at a selection or a projection, go through it when something below
//     can still take the condition
//
//  3) otherwise stop, and wrap the current node
//
// The tree is rebuilt bottom up into a new arena, so a selection is pushed
// into a subtree whose own selections already sit at their final place. The
// relative order of conditions placed at the same spot is kept.
//
// ----------------------------------------------------------------------------

func condTables(cond *sql.Condition) mapset.Set[string] {
	return mapset.NewSet[string](cond.Tables()...)
}

func tableSet(t *algebra.Tree, id algebra.NodeID) mapset.Set[string] {
	return mapset.NewSet[string](t.Tables(id)...)
}

// canSink reports whether a condition over tables can go strictly below id
func canSink(t *algebra.Tree, id algebra.NodeID, tables mapset.Set[string]) bool {
	switch n := t.Node(id).(type) {
	case *algebra.Relation:
		return false
	case *algebra.Selection:
		return canSink(t, n.Child, tables)
	case *algebra.Projection:
		return canSink(t, n.Child, tables)
	case *algebra.Join:
		return tables.IsSubset(tableSet(t, n.Left)) || tables.IsSubset(tableSet(t, n.Right))
	default:
		panic("unreachable")
	}
}

// sink places cond inside of the subtree of id, which belongs to t and may be
// modified in place since t is still under construction. Returns the new root
// of that subtree.
func sink(t *algebra.Tree, id algebra.NodeID, cond *sql.Condition) algebra.NodeID {
	tables := condTables(cond)

	switch n := t.Node(id).(type) {
	case *algebra.Relation:
		return t.AddSelection(cond, id)

	case *algebra.Selection:
		if canSink(t, n.Child, tables) {
			n.Child = sink(t, n.Child, cond)
			return id
		}
		return t.AddSelection(cond, id)

	case *algebra.Projection:
		if canSink(t, n.Child, tables) {
			n.Child = sink(t, n.Child, cond)
			return id
		}
		return t.AddSelection(cond, id)

	case *algebra.Join:
		if tables.IsSubset(tableSet(t, n.Left)) {
			n.Left = sink(t, n.Left, cond)
			return id
		}
		if tables.IsSubset(tableSet(t, n.Right)) {
			n.Right = sink(t, n.Right, cond)
			return id
		}
		return t.AddSelection(cond, id)

	default:
		panic("unreachable")
	}
}

type predicatePlacement struct{}

func (self *predicatePlacement) Name() string { return "predicate-placement" }

func (self *predicatePlacement) Apply(src *algebra.Tree) (*algebra.Tree, string, bool) {
	w := &placement{
		src: src,
		dst: algebra.NewTree(),
	}
	w.dst.SetRoot(w.place(src.Root()))

	if w.moved == 0 {
		return src, "", false
	}
	return w.dst, fmt.Sprintf("Predicate placement: %d multi-table selection(s) moved below a join", w.moved), true
}

// state of a single placement pass
type placement struct {
	src   *algebra.Tree
	dst   *algebra.Tree
	moved int
}

func (self *placement) place(id algebra.NodeID) algebra.NodeID {
	switch n := self.src.Node(id).(type) {
	case *algebra.Relation:
		return self.dst.AddRelation(n.Name)

	case *algebra.Selection:
		child := self.place(n.Child)
		if canSink(self.dst, child, condTables(n.Cond)) {
			self.moved++
		}
		return sink(self.dst, child, n.Cond)

	case *algebra.Projection:
		return self.dst.AddProjection(n.Attrs, self.place(n.Child))

	case *algebra.Join:
		l := self.place(n.Left)
		r := self.place(n.Right)
		return self.dst.AddJoin(l, r, n.Cond)

	default:
		panic("unreachable")
	}
}

// earlySelectionCheck asserts that every single table selection sits below
// the joins, which the builder guarantees and predicatePlacement keeps. It
// never rewrites anything, the count only shows up in the trace.
type earlySelectionCheck struct{}

func (self *earlySelectionCheck) Name() string { return "early-selection" }

func (self *earlySelectionCheck) Apply(t *algebra.Tree) (*algebra.Tree, string, bool) {
	placed, misplaced := 0, 0

	t.Walk(t.Root(), func(id algebra.NodeID, n algebra.Node) {
		sel, ok := n.(*algebra.Selection)
		if !ok {
			return
		}
		tables := condTables(sel.Cond)
		if tables.Cardinality() != 1 {
			return
		}
		if canSink(t, sel.Child, tables) {
			misplaced++
		} else {
			placed++
		}
	})

	if placed == 0 && misplaced == 0 {
		return t, "", false
	}
	if misplaced > 0 {
		return t, fmt.Sprintf("Early single-table selection push-down: %d selection(s) on their base table, %d misplaced", placed, misplaced), false
	}
	return t, fmt.Sprintf("Early single-table selection push-down: %d selection(s) on their base table", placed), false
}
