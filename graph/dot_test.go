package graph

import (
	"github.com/dianpeng/sql2ra/algebra"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/plan"
	"github.com/dianpeng/sql2ra/sql"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

const roundTrip = "SELECT Cliente.Nome, Pedido.ValorTotalPedido FROM Cliente JOIN Pedido ON Cliente.idCliente = Pedido.Cliente_idCliente WHERE Cliente.Nome = 'Ana'"

func optimized(t *testing.T, text string) *algebra.Tree {
	q, err := sql.Parse(catalog.Default(), text)
	require.NoError(t, err)
	tree, err := algebra.Build(q)
	require.NoError(t, err)
	opt, _ := plan.Optimize(tree)
	return opt
}

func TestLabel(t *testing.T) {
	assert := assert.New(t)
	tree := algebra.NewTree()
	r := tree.AddRelation("Tb1")
	p := tree.AddProjection([]string{"Tb1.a", "Tb1.b", "Tb1.c"}, r)
	assert.Equal("Tb1", Label(tree.Node(r)))
	assert.Equal("π{Tb1.a, Tb1.b, ...}", Label(tree.Node(p)))

	opt := optimized(t, roundTrip)
	labels := []string{}
	opt.Walk(opt.Root(), func(_ algebra.NodeID, n algebra.Node) {
		labels = append(labels, Label(n))
	})
	assert.Equal([]string{
		"π{Cliente.Nome, Pedido.ValorTotalPedido}",
		"⋈{Cliente.idCl...}",
		"σ{Cliente.Nome...}",
		"π{Cliente.Nome, Cliente.idCliente}",
		"Cliente",
		"π{Pedido.Cliente_idCliente, Pedido.ValorTotalPedido}",
		"Pedido",
	}, labels)
}

func TestShorten(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("Tb1.a = 1", shorten("Tb1.a = 1"))
	assert.Equal("123456789012345", shorten("123456789012345"))
	assert.Equal("ááááááááááá√...", shorten("ááááááááááá√xxxx"))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a \"b\" \\c"`, quote(`a "b" \c`))
}

func TestDOTEmpty(t *testing.T) {
	out := DOT(algebra.NewTree())
	assert.True(t, strings.HasPrefix(out, "digraph algebra {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.NotContains(t, out, "->")
	assert.NotContains(t, out, "cluster_legend")
}

func TestDOTLegend(t *testing.T) {
	assert := assert.New(t)
	out := DOT(optimized(t, roundTrip))
	assert.Contains(out, "subgraph cluster_legend {")
	for _, l := range legend {
		st := styleOf(l.node)
		assert.Contains(out, "label="+quote(l.name)+", shape="+st.shape+", fillcolor="+st.fill)
	}
	// legend nodes stay out of the tree edges
	assert.NotContains(out, "-> legend")
}

func TestDOTGolden(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "roundtrip", []byte(DOT(optimized(t, roundTrip))))
}
