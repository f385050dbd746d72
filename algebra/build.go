package algebra

import (
	"errors"
	"fmt"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2ra/sql"
	"strings"
)

const (
	ErrKindNoFromTables = iota
	ErrKindUnmatchedJoinTable
)

var (
	ErrNoFromTables       = errors.New("query has no FROM table")
	ErrUnmatchedJoinTable = errors.New("table has no join condition, cross join is not supported")
)

// BuildError means the ParsedQuery breaks the contract of the parser, the
// query text itself was fine.
type BuildError struct {
	Kind  int
	Table string
}

func (self *BuildError) Error() string {
	if self.Table == "" {
		return self.Unwrap().Error()
	}
	return fmt.Sprintf("%s: %s", self.Unwrap(), self.Table)
}

func (self *BuildError) Unwrap() error {
	switch self.Kind {
	case ErrKindNoFromTables:
		return ErrNoFromTables
	case ErrKindUnmatchedJoinTable:
		return ErrUnmatchedJoinTable
	default:
		panic("unreachable")
	}
}

func (self *BuildError) KindName() string {
	switch self.Kind {
	case ErrKindNoFromTables:
		return "NoFromTables"
	case ErrKindUnmatchedJoinTable:
		return "UnmatchedJoinTable"
	default:
		panic("unreachable")
	}
}

// Build converts a ParsedQuery into its algebra tree.
//
//  1) one Relation per FROM table
//  2) WHERE conditions on a single table wrap that table's Relation directly,
//     this is the early selection, in WHERE order
//  3) FROM is folded left to right into a left deep Join chain, using the
//     join entry of each table
//  4) WHERE conditions on more than one table wrap the chain, in WHERE order
//  5) the SELECT list is projected at the root
//
// Multi table conditions are never placed in the middle of the chain here,
// the optimizer sinks them later on.
func Build(q *sql.ParsedQuery) (*Tree, error) {
	if len(q.From) == 0 {
		return nil, &BuildError{Kind: ErrKindNoFromTables}
	}

	t := NewTree()
	leaves := make(map[string]NodeID)
	for _, table := range q.From {
		leaves[strings.ToLower(table)] = t.AddRelation(table)
	}

	multi := []*sql.Condition{}
	for _, cond := range q.Where {
		tables := mapset.NewSet[string]()
		for _, table := range cond.Tables() {
			tables.Add(strings.ToLower(table))
		}

		if tables.Cardinality() == 1 {
			key := tables.ToSlice()[0]
			if leaf, ok := leaves[key]; ok {
				leaves[key] = t.AddSelection(cond, leaf)
				continue
			}
		}
		multi = append(multi, cond)
	}

	acc := leaves[strings.ToLower(q.From[0])]
	for _, table := range q.From[1:] {
		j := q.JoinFor(table)
		if j == nil || j.Condition == nil {
			return nil, &BuildError{
				Kind:  ErrKindUnmatchedJoinTable,
				Table: table,
			}
		}
		acc = t.AddJoin(acc, leaves[strings.ToLower(table)], j.Condition)
	}

	for _, cond := range multi {
		acc = t.AddSelection(cond, acc)
	}

	t.SetRoot(t.AddProjection(q.Select, acc))
	return t, nil
}
