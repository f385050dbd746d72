package algebra

import (
	"errors"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func cond(t *testing.T, text string) *sql.Condition {
	q, err := sql.Parse(catalog.Default(), "SELECT Tb1.nome FROM Tb1 JOIN Tb2 ON Tb1.id = Tb2.fk JOIN Tb3 ON Tb2.id = Tb3.fk WHERE "+text)
	require.NoError(t, err)
	return q.Where[0]
}

func TestTreeCopy(t *testing.T) {
	assert := assert.New(t)
	src := mustBuild(t, roundTrip)
	dst := NewTree()
	dst.SetRoot(dst.Copy(src, src.Root()))
	assert.Equal(src.String(), dst.String())
	assert.Equal(src.Len(), dst.Len())
	assert.NoError(dst.Validate())
}

func TestTreeLabel(t *testing.T) {
	assert := assert.New(t)
	tree := mustBuild(t, roundTrip)
	labels := []string{}
	tree.Walk(tree.Root(), func(_ NodeID, n Node) {
		labels = append(labels, Label(n))
	})
	assert.Equal([]string{
		"π Cliente.Nome, Pedido.ValorTotalPedido",
		"⋈ Cliente.idCliente = Pedido.Cliente_idCliente",
		"σ Cliente.Nome = 'Ana'",
		"Cliente",
		"Pedido",
	}, labels)
}

func TestTreeProduces(t *testing.T) {
	assert := assert.New(t)
	tree := NewTree()
	r := tree.AddRelation("Tb1")
	p := tree.AddProjection([]string{"Tb1.id"}, r)
	tree.SetRoot(p)

	assert.True(tree.Produces(r, "Tb1.sal"))
	assert.True(tree.Produces(p, "Tb1.id"))
	assert.False(tree.Produces(p, "Tb1.sal"))
	assert.False(tree.Produces(p, "Tb2.id"))
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	{
		assert.True(errors.Is(NewTree().Validate(), ErrInvalidTree))
	}

	{
		// shared child
		tree := NewTree()
		r := tree.AddRelation("Tb1")
		j := tree.AddJoin(r, r, cond(t, "Tb1.id = Tb2.id"))
		tree.SetRoot(j)
		err := tree.Validate()
		assert.True(errors.Is(err, ErrInvalidTree))
		assert.Contains(err.Error(), "more than one parent")
	}

	{
		// cycle
		tree := NewTree()
		r := tree.AddRelation("Tb1")
		s := tree.AddSelection(cond(t, "Tb1.id = 1"), r)
		tree.Node(s).(*Selection).Child = s
		tree.SetRoot(s)
		assert.True(errors.Is(tree.Validate(), ErrInvalidTree))
	}

	{
		// selection over a column its child does not produce
		tree := NewTree()
		r := tree.AddRelation("Tb1")
		s := tree.AddSelection(cond(t, "Tb2.id = 1"), r)
		tree.SetRoot(s)
		err := tree.Validate()
		assert.Contains(err.Error(), "Tb2.id")
	}

	{
		// projected away below
		tree := NewTree()
		r := tree.AddRelation("Tb1")
		p := tree.AddProjection([]string{"Tb1.id"}, r)
		s := tree.AddSelection(cond(t, "Tb1.sal > 1"), p)
		tree.SetRoot(s)
		assert.True(errors.Is(tree.Validate(), ErrInvalidTree))
	}

	{
		// join condition out of scope
		tree := NewTree()
		l := tree.AddRelation("Tb1")
		r := tree.AddRelation("Tb2")
		j := tree.AddJoin(l, r, cond(t, "Tb1.id = Tb3.id"))
		tree.SetRoot(j)
		assert.True(errors.Is(tree.Validate(), ErrInvalidTree))
	}

	{
		// child index out of range
		tree := NewTree()
		p := tree.AddProjection([]string{"Tb1.id"}, NodeID(42))
		tree.SetRoot(p)
		assert.True(errors.Is(tree.Validate(), ErrInvalidTree))
	}
}
