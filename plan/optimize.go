package plan

import (
	"github.com/dianpeng/sql2ra/algebra"
	"github.com/spaolacci/murmur3"
)

// NoRewrite is the only trace entry of an optimization that left the tree as
// it was, ie when optimizing an already optimized tree.
const NoRewrite = "No rewrite applied: tree is already optimal"

// Rule is one rewrite of the optimizer. Apply never touches its input, it
// returns either the input itself or a brand new tree, plus a trace line
// which is empty when there is nothing worth reporting. The flag is false
// only when the input itself is returned.
type Rule interface {
	Name() string
	Apply(*algebra.Tree) (*algebra.Tree, string, bool)
}

// DefaultRules is the rule list used by Optimize, order matters: selections
// have to sit at their final position before projections are pushed through
// them.
func DefaultRules() []Rule {
	return []Rule{
		&predicatePlacement{},
		&earlySelectionCheck{},
		&projectionPushDown{},
	}
}

// Fingerprint hashes the canonical rendering of a tree. Two trees with the
// same fingerprint have the same shape, conditions and attributes.
func Fingerprint(tree *algebra.Tree) uint64 {
	return murmur3.Sum64([]byte(tree.String()))
}

type Optimizer struct {
	Rules []Rule
}

func NewOptimizer() *Optimizer {
	return &Optimizer{
		Rules: DefaultRules(),
	}
}

// Optimize rewrites the tree with DefaultRules
func Optimize(tree *algebra.Tree) (*algebra.Tree, []string) {
	return NewOptimizer().Optimize(tree)
}

func (self *Optimizer) Optimize(tree *algebra.Tree) (*algebra.Tree, []string) {
	if tree.Empty() {
		return tree, []string{NoRewrite}
	}

	trace := []string{}
	cur := tree
	changed := false
	for _, rule := range self.Rules {
		next, line, ok := rule.Apply(cur)
		if line != "" {
			trace = append(trace, line)
		}
		changed = changed || ok
		cur = next
	}

	// a rewrite may still end up with the tree it started from
	if !changed || Fingerprint(cur) == Fingerprint(tree) {
		return cur, []string{NoRewrite}
	}
	return cur, trace
}
