package sql

import (
	"fmt"
	"strings"
)

const (
	OperandColumn = iota
	OperandLiteral
)

const (
	LiteralString = iota
	LiteralNumber
)

// Operand is one side of a comparison, either a resolved column reference or
// a literal. Column references always hold canonical catalog names.
type Operand struct {
	Kind        int
	Table       string
	Column      string
	Literal     string
	LiteralKind int
}

func (self Operand) IsColumn() bool { return self.Kind == OperandColumn }

// Qualified returns table.column, only meaningful for column operands
func (self Operand) Qualified() string {
	return self.Table + "." + self.Column
}

func (self Operand) String() string {
	switch self.Kind {
	case OperandColumn:
		return self.Qualified()
	case OperandLiteral:
		if self.LiteralKind == LiteralString {
			return "'" + strings.ReplaceAll(self.Literal, "'", "''") + "'"
		}
		return self.Literal
	default:
		panic("unreachable")
	}
}

// Condition is a single comparison predicate: Left Op Right. At least one
// side is a column reference, the parser never builds anything else.
type Condition struct {
	Left  Operand
	Op    int // TkEq, TkNe, TkLt, TkLe, TkGt, TkGe
	Right Operand
}

func OpString(op int) string {
	switch op {
	case TkEq:
		return "="
	case TkNe:
		return "<>"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	default:
		panic("unreachable")
	}
}

func isCompareOp(tk int) bool {
	switch tk {
	case TkEq, TkNe, TkLt, TkLe, TkGt, TkGe:
		return true
	default:
		return false
	}
}

func (self *Condition) String() string {
	return fmt.Sprintf("%s %s %s", self.Left, OpString(self.Op), self.Right)
}

// Columns lists the qualified columns the condition references, left to
// right, without duplicates.
func (self *Condition) Columns() []string {
	out := []string{}
	for _, o := range []Operand{self.Left, self.Right} {
		if o.IsColumn() && !contains(out, o.Qualified()) {
			out = append(out, o.Qualified())
		}
	}
	return out
}

// Tables lists the tables the condition references, left to right, without
// duplicates.
func (self *Condition) Tables() []string {
	out := []string{}
	for _, o := range []Operand{self.Left, self.Right} {
		if o.IsColumn() && !contains(out, o.Table) {
			out = append(out, o.Table)
		}
	}
	return out
}

func contains(l []string, v string) bool {
	for _, x := range l {
		if x == v {
			return true
		}
	}
	return false
}

type Join struct {
	Table     string
	Condition *Condition
	Alias     string // empty when the table is not aliased
}

// ParsedQuery is the validated, structured form of a query. Every table and
// column name in it is canonical and From[0] is the anchor table.
type ParsedQuery struct {
	Text    string       // normalized query text
	Select  []string     // table.column, in SELECT order
	From    []string     // anchor followed by every joined table
	Joins   []Join       // in query order, Joins[i].Table == From[i+1]
	Where   []*Condition // AND connected conjuncts
	Aliases map[string]string
}

func (self *ParsedQuery) Anchor() string { return self.From[0] }

// JoinFor finds the join entry that introduced table, nil when the table is
// the anchor or is not part of the query.
func (self *ParsedQuery) JoinFor(table string) *Join {
	for i := range self.Joins {
		if strings.EqualFold(self.Joins[i].Table, table) {
			return &self.Joins[i]
		}
	}
	return nil
}

// Print renders the query back into SQL text, with canonical names and
// without aliases.
func (self *ParsedQuery) Print() string {
	buf := &strings.Builder{}
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(self.Select, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(self.From[0])
	for _, j := range self.Joins {
		buf.WriteString(fmt.Sprintf(" JOIN %s ON %s", j.Table, j.Condition))
	}
	for idx, w := range self.Where {
		if idx == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		buf.WriteString(w.String())
	}
	return buf.String()
}
