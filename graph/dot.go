package graph

import (
	"fmt"
	"github.com/dianpeng/sql2ra/algebra"
	"strings"
)

// Graphviz export of an algebra tree. Every node is named after its arena
// index, so the same tree always produces the same text.

const (
	maxCondRunes   = 15
	shortCondRunes = 12
	maxAttrs       = 2
)

type nodeStyle struct {
	shape string
	fill  string
}

func styleOf(n algebra.Node) nodeStyle {
	switch n.(type) {
	case *algebra.Relation:
		return nodeStyle{"ellipse", "lightcoral"}
	case *algebra.Join:
		return nodeStyle{"diamond", "lightgoldenrodyellow"}
	case *algebra.Selection:
		return nodeStyle{"box", "lightgreen"}
	case *algebra.Projection:
		return nodeStyle{"box", "lightskyblue"}
	default:
		panic("unreachable")
	}
}

// legend entries, one per node variant, in drawing order
var legend = []struct {
	name string
	node algebra.Node
}{
	{"Table", &algebra.Relation{}},
	{"Join", &algebra.Join{}},
	{"Selection", &algebra.Selection{}},
	{"Projection", &algebra.Projection{}},
}

func writeLegend(buf *strings.Builder) {
	buf.WriteString("  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Operators\";\n")
	buf.WriteString("    style=rounded;\n")
	for i, l := range legend {
		st := styleOf(l.node)
		buf.WriteString(fmt.Sprintf(
			"    legend%d [label=%s, shape=%s, fillcolor=%s, fontsize=9];\n",
			i,
			quote(l.name),
			st.shape,
			st.fill,
		))
	}
	buf.WriteString("  }\n")
}

func shorten(cond string) string {
	r := []rune(cond)
	if len(r) > maxCondRunes {
		return string(r[:shortCondRunes]) + "..."
	}
	return cond
}

// Label is the short text drawn inside of a node
func Label(n algebra.Node) string {
	switch n := n.(type) {
	case *algebra.Relation:
		return n.Name
	case *algebra.Selection:
		return fmt.Sprintf("σ{%s}", shorten(n.Cond.String()))
	case *algebra.Join:
		return fmt.Sprintf("⋈{%s}", shorten(n.Cond.String()))
	case *algebra.Projection:
		attrs := n.Attrs
		suffix := ""
		if len(attrs) > maxAttrs {
			attrs = attrs[:maxAttrs]
			suffix = ", ..."
		}
		return fmt.Sprintf("π{%s%s}", strings.Join(attrs, ", "), suffix)
	default:
		panic("unreachable")
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// DOT renders the tree as a Graphviz digraph, edges go from parent to child
// and the root has a bold border. A legend cluster maps fill colors onto the
// operator kinds.
func DOT(tree *algebra.Tree) string {
	buf := &strings.Builder{}
	buf.WriteString("digraph algebra {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [style=filled, fontname=\"Helvetica\"];\n")

	if !tree.Empty() {
		edges := []string{}

		tree.Walk(tree.Root(), func(id algebra.NodeID, n algebra.Node) {
			st := styleOf(n)
			penwidth := 1
			if id == tree.Root() {
				penwidth = 4
			}
			buf.WriteString(fmt.Sprintf(
				"  n%d [label=%s, shape=%s, fillcolor=%s, penwidth=%d, tooltip=%s];\n",
				id,
				quote(Label(n)),
				st.shape,
				st.fill,
				penwidth,
				quote(algebra.Label(n)),
			))
			for _, c := range tree.Children(id) {
				edges = append(edges, fmt.Sprintf("  n%d -> n%d;\n", id, c))
			}
		})

		for _, e := range edges {
			buf.WriteString(e)
		}
		writeLegend(buf)
	}

	buf.WriteString("}\n")
	return buf.String()
}
