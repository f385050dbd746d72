package algebra

import (
	"fmt"
	"github.com/dianpeng/sql2ra/sql"
	"strings"
)

// NodeID addresses a node inside of its Tree's arena. A node is only
// meaningful together with the tree that allocated it.
type NodeID int

const NoNode NodeID = -1

// Node is one of *Relation, *Selection, *Join or *Projection. The set is
// closed, every traversal switches on all four and panics on anything else.
type Node interface {
	node()
}

type Relation struct {
	Name string // canonical table name
}

type Selection struct {
	Cond  *sql.Condition
	Child NodeID
}

type Join struct {
	Left  NodeID
	Right NodeID
	Cond  *sql.Condition
}

type Projection struct {
	Attrs []string // table.column
	Child NodeID
}

func (*Relation) node()   {}
func (*Selection) node()  {}
func (*Join) node()       {}
func (*Projection) node() {}

// Tree is an arena of nodes. Every node has at most one parent, rewrites
// never touch an existing tree but allocate a new one.
type Tree struct {
	nodes []Node
	root  NodeID
}

func NewTree() *Tree {
	return &Tree{
		root: NoNode,
	}
}

func (self *Tree) add(n Node) NodeID {
	self.nodes = append(self.nodes, n)
	return NodeID(len(self.nodes) - 1)
}

func (self *Tree) AddRelation(name string) NodeID {
	return self.add(&Relation{Name: name})
}

func (self *Tree) AddSelection(cond *sql.Condition, child NodeID) NodeID {
	return self.add(&Selection{Cond: cond, Child: child})
}

func (self *Tree) AddJoin(left, right NodeID, cond *sql.Condition) NodeID {
	return self.add(&Join{Left: left, Right: right, Cond: cond})
}

func (self *Tree) AddProjection(attrs []string, child NodeID) NodeID {
	return self.add(&Projection{
		Attrs: append([]string(nil), attrs...),
		Child: child,
	})
}

func (self *Tree) Root() NodeID { return self.root }
func (self *Tree) SetRoot(id NodeID) { self.root = id }
func (self *Tree) Len() int { return len(self.nodes) }
func (self *Tree) Node(id NodeID) Node { return self.nodes[id] }
func (self *Tree) valid(id NodeID) bool { return id >= 0 && int(id) < len(self.nodes) }
func (self *Tree) Empty() bool { return self.root == NoNode }

// Children lists the direct inputs of a node, left to right
func (self *Tree) Children(id NodeID) []NodeID {
	switch n := self.nodes[id].(type) {
	case *Relation:
		return nil
	case *Selection:
		return []NodeID{n.Child}
	case *Join:
		return []NodeID{n.Left, n.Right}
	case *Projection:
		return []NodeID{n.Child}
	default:
		panic("unreachable")
	}
}

// Tables returns the base tables reachable from id, left to right
func (self *Tree) Tables(id NodeID) []string {
	out := []string{}
	self.Walk(id, func(nid NodeID, n Node) {
		if r, ok := n.(*Relation); ok {
			out = append(out, r.Name)
		}
	})
	return out
}

// Walk visits the subtree of id in pre-order
func (self *Tree) Walk(id NodeID, fn func(NodeID, Node)) {
	fn(id, self.nodes[id])
	for _, c := range self.Children(id) {
		self.Walk(c, fn)
	}
}

// Copy clones the subtree rooted at id of src into self, returns the new id
func (self *Tree) Copy(src *Tree, id NodeID) NodeID {
	switch n := src.nodes[id].(type) {
	case *Relation:
		return self.AddRelation(n.Name)
	case *Selection:
		return self.AddSelection(n.Cond, self.Copy(src, n.Child))
	case *Join:
		l := self.Copy(src, n.Left)
		r := self.Copy(src, n.Right)
		return self.AddJoin(l, r, n.Cond)
	case *Projection:
		return self.AddProjection(n.Attrs, self.Copy(src, n.Child))
	default:
		panic("unreachable")
	}
}

// String renders the tree in relational algebra notation, ie
//
//	π[Cliente.Nome](σ[Cliente.Nome = 'Ana'](Cliente))
//
// the rendering is canonical, two trees render the same text if and only if
// they have the same shape, conditions and attributes.
func (self *Tree) String() string {
	if self.Empty() {
		return ""
	}
	buf := &strings.Builder{}
	self.render(self.root, buf)
	return buf.String()
}

func (self *Tree) NodeString(id NodeID) string {
	buf := &strings.Builder{}
	self.render(id, buf)
	return buf.String()
}

func (self *Tree) render(id NodeID, buf *strings.Builder) {
	switch n := self.nodes[id].(type) {
	case *Relation:
		buf.WriteString(n.Name)
	case *Selection:
		buf.WriteString(fmt.Sprintf("σ[%s](", n.Cond))
		self.render(n.Child, buf)
		buf.WriteString(")")
	case *Join:
		buf.WriteString("(")
		self.render(n.Left, buf)
		buf.WriteString(fmt.Sprintf(" ⋈[%s] ", n.Cond))
		self.render(n.Right, buf)
		buf.WriteString(")")
	case *Projection:
		buf.WriteString(fmt.Sprintf("π[%s](", strings.Join(n.Attrs, ", ")))
		self.render(n.Child, buf)
		buf.WriteString(")")
	default:
		panic("unreachable")
	}
}

// Label is a short one line description of a single node
func Label(n Node) string {
	switch n := n.(type) {
	case *Relation:
		return n.Name
	case *Selection:
		return fmt.Sprintf("σ %s", n.Cond)
	case *Join:
		return fmt.Sprintf("⋈ %s", n.Cond)
	case *Projection:
		return fmt.Sprintf("π %s", strings.Join(n.Attrs, ", "))
	default:
		panic("unreachable")
	}
}
