package plan

import (
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2ra/algebra"
	pair "github.com/notEpsilon/go-pair"
	"sort"
	"strings"
)

// ----------------------------------------------------------------------------
//
// Projection push-down. The attributes of the root projection flow down the
// tree as a required set:
//
//  1) at a selection the condition's columns join the required set, the
//     selection has to see them after the projection below it is applied
//
//  2) at a join the required set is split by the tables of each side, and
//     every column of the join condition is added to the side owning it
//
//  3) an inner projection is dropped, the one rebuilt above the relations
//     replaces it
//
//  4) at a relation a projection holding exactly the required columns of that
//     table, sorted, is inserted right above it
//
// The root projection itself is kept as is. A tree without a root projection
// is left alone since nothing tells which columns are needed.
//
// ----------------------------------------------------------------------------

type projectionPushDown struct{}

// state of a single push-down pass
type pushDown struct {
	src      *algebra.Tree
	dst      *algebra.Tree
	inserted int
}

func (self *projectionPushDown) Name() string { return "projection-push-down" }

func (self *projectionPushDown) Apply(src *algebra.Tree) (*algebra.Tree, string, bool) {
	root, ok := src.Node(src.Root()).(*algebra.Projection)
	if !ok {
		return src, "", false
	}

	w := &pushDown{
		src: src,
		dst: algebra.NewTree(),
	}
	child := w.push(root.Child, mapset.NewSet[string](root.Attrs...))
	w.dst.SetRoot(w.dst.AddProjection(root.Attrs, child))

	line := fmt.Sprintf(
		"Projection push-down: %d projection(s) over base tables, root keeps %s",
		w.inserted,
		strings.Join(root.Attrs, ", "),
	)
	return w.dst, line, true
}

func sortedColumns(set mapset.Set[string]) []string {
	out := set.ToSlice()
	sort.Strings(out)
	return out
}

func columnTable(qualified string) string {
	idx := strings.LastIndex(qualified, ".")
	if idx < 0 {
		return ""
	}
	return qualified[:idx]
}

// split divides required between the two sides of a join
func split(
	required mapset.Set[string],
	left mapset.Set[string],
	right mapset.Set[string],
) pair.Pair[mapset.Set[string], mapset.Set[string]] {
	out := pair.Pair[mapset.Set[string], mapset.Set[string]]{
		First:  mapset.NewSet[string](),
		Second: mapset.NewSet[string](),
	}
	required.Each(func(col string) bool {
		table := columnTable(col)
		switch {
		case left.Contains(table):
			out.First.Add(col)
		case right.Contains(table):
			out.Second.Add(col)
		}
		return false
	})
	return out
}

func (self *pushDown) push(
	id algebra.NodeID,
	required mapset.Set[string],
) algebra.NodeID {
	switch n := self.src.Node(id).(type) {
	case *algebra.Relation:
		leaf := self.dst.AddRelation(n.Name)
		cols := mapset.NewSet[string]()
		required.Each(func(col string) bool {
			if columnTable(col) == n.Name {
				cols.Add(col)
			}
			return false
		})
		if cols.Cardinality() == 0 {
			return leaf
		}
		self.inserted++
		return self.dst.AddProjection(sortedColumns(cols), leaf)

	case *algebra.Selection:
		need := required.Union(mapset.NewSet[string](n.Cond.Columns()...))
		return self.dst.AddSelection(n.Cond, self.push(n.Child, need))

	case *algebra.Projection:
		return self.push(n.Child, required)

	case *algebra.Join:
		sides := split(
			required.Union(mapset.NewSet[string](n.Cond.Columns()...)),
			tableSet(self.src, n.Left),
			tableSet(self.src, n.Right),
		)
		l := self.push(n.Left, sides.First)
		r := self.push(n.Right, sides.Second)
		return self.dst.AddJoin(l, r, n.Cond)

	default:
		panic("unreachable")
	}
}
