package plan

import (
	"fmt"
	"github.com/dianpeng/sql2ra/algebra"
	"github.com/golang-collections/collections/stack"
	"strings"
)

const (
	StepAccess = iota
	StepFilter
	StepJoin
	StepProjection
)

// Step describes how a single node is evaluated
func Step(n algebra.Node) string {
	switch n := n.(type) {
	case *algebra.Relation:
		return fmt.Sprintf("Access base table: %s", n.Name)
	case *algebra.Selection:
		return fmt.Sprintf("Filter: %s", n.Cond)
	case *algebra.Join:
		return fmt.Sprintf("Join: %s", n.Cond)
	case *algebra.Projection:
		return fmt.Sprintf("Projection: %s", strings.Join(n.Attrs, ", "))
	default:
		panic("unreachable")
	}
}

// StepKind recovers the kind of a step line, -1 for anything else, ie a trace
// line
func StepKind(line string) int {
	switch {
	case strings.HasPrefix(line, "Access base table: "):
		return StepAccess
	case strings.HasPrefix(line, "Filter: "):
		return StepFilter
	case strings.HasPrefix(line, "Join: "):
		return StepJoin
	case strings.HasPrefix(line, "Projection: "):
		return StepProjection
	default:
		return -1
	}
}

type frame struct {
	id   algebra.NodeID
	done bool // children are already emitted
}

// Generate linearizes the tree in post order, every operator comes after the
// steps producing its inputs. The trace lines, if any, are copied verbatim in
// front of the steps.
func Generate(tree *algebra.Tree, trace ...string) []string {
	out := append([]string{}, trace...)
	if tree.Empty() {
		return out
	}

	s := stack.New()
	s.Push(frame{id: tree.Root()})

	for s.Len() > 0 {
		f := s.Pop().(frame)
		if f.done {
			out = append(out, Step(tree.Node(f.id)))
			continue
		}

		s.Push(frame{id: f.id, done: true})
		children := tree.Children(f.id)
		for i := len(children) - 1; i >= 0; i-- {
			s.Push(frame{id: children[i]})
		}
	}
	return out
}
