package algebra

import (
	"errors"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const roundTrip = "SELECT Cliente.Nome, Pedido.ValorTotalPedido FROM Cliente JOIN Pedido ON Cliente.idCliente = Pedido.Cliente_idCliente WHERE Cliente.Nome = 'Ana'"

func mustBuild(t *testing.T, text string) *Tree {
	q, err := sql.Parse(catalog.Default(), text)
	require.NoError(t, err, text)
	tree, err := Build(q)
	require.NoError(t, err, text)
	require.NoError(t, tree.Validate(), text)
	return tree
}

// hasJoinAbove reports whether a Join sits on the path from the root to id
func hasJoinAbove(tree *Tree, id NodeID) bool {
	found := false
	var walk func(NodeID, bool)
	walk = func(cur NodeID, underJoin bool) {
		if cur == id {
			found = underJoin
			return
		}
		_, isJoin := tree.Node(cur).(*Join)
		for _, c := range tree.Children(cur) {
			walk(c, underJoin || isJoin)
		}
	}
	walk(tree.Root(), false)
	return found
}

func TestBuildRoundTrip(t *testing.T) {
	assert := assert.New(t)
	tree := mustBuild(t, roundTrip)

	assert.Equal(
		"π[Cliente.Nome, Pedido.ValorTotalPedido]((σ[Cliente.Nome = 'Ana'](Cliente) ⋈[Cliente.idCliente = Pedido.Cliente_idCliente] Pedido))",
		tree.String(),
	)

	root, ok := tree.Node(tree.Root()).(*Projection)
	require.True(t, ok)
	assert.Equal([]string{"Cliente.Nome", "Pedido.ValorTotalPedido"}, root.Attrs)

	join, ok := tree.Node(root.Child).(*Join)
	require.True(t, ok)
	sel, ok := tree.Node(join.Left).(*Selection)
	require.True(t, ok)
	assert.Equal("Cliente.Nome = 'Ana'", sel.Cond.String())
	assert.Equal(&Relation{Name: "Cliente"}, tree.Node(sel.Child))
	assert.Equal(&Relation{Name: "Pedido"}, tree.Node(join.Right))
	assert.Equal([]string{"Cliente", "Pedido"}, tree.Tables(tree.Root()))
}

func TestBuildSingleTable(t *testing.T) {
	assert := assert.New(t)
	tree := mustBuild(t, "SELECT Nome FROM Cliente")
	assert.Equal("π[Cliente.Nome](Cliente)", tree.String())
	assert.Equal(2, tree.Len())
}

func TestBuildEarlySelection(t *testing.T) {
	assert := assert.New(t)
	tree := mustBuild(t, `
SELECT c.Nome, pp.Quantidade
FROM Cliente c
JOIN Pedido p ON c.idCliente = p.Cliente_idCliente
JOIN Pedido_has_Produto pp ON p.idPedido = pp.Pedido_idPedido
WHERE pp.Quantidade > 1 AND c.Nome = 'Ana' AND p.ValorTotalPedido > pp.PrecoUnitario AND p.idPedido <> 3`)

	single := 0
	tree.Walk(tree.Root(), func(id NodeID, n Node) {
		sel, ok := n.(*Selection)
		if !ok {
			return
		}
		if len(sel.Cond.Tables()) == 1 {
			single++
			// directly over its relation, no join in between
			_, isRelation := tree.Node(sel.Child).(*Relation)
			_, isSelection := tree.Node(sel.Child).(*Selection)
			assert.True(isRelation || isSelection, sel.Cond.String())
			assert.True(hasJoinAbove(tree, id), sel.Cond.String())
		} else {
			// multi table conditions wrap the whole chain
			_, isJoin := tree.Node(sel.Child).(*Join)
			assert.True(isJoin, sel.Cond.String())
		}
	})
	assert.Equal(3, single)

	assert.Equal(
		"π[Cliente.Nome, Pedido_has_Produto.Quantidade](σ[Pedido.ValorTotalPedido > Pedido_has_Produto.PrecoUnitario](((σ[Cliente.Nome = 'Ana'](Cliente) ⋈[Cliente.idCliente = Pedido.Cliente_idCliente] σ[Pedido.idPedido <> 3](Pedido)) ⋈[Pedido.idPedido = Pedido_has_Produto.Pedido_idPedido] σ[Pedido_has_Produto.Quantidade > 1](Pedido_has_Produto))))",
		tree.String(),
	)
}

func TestBuildSelectionOrder(t *testing.T) {
	tree := mustBuild(t, "SELECT Nome FROM Cliente WHERE Nome = 'a' AND Email = 'b'")
	assert.Equal(t,
		"π[Cliente.Nome](σ[Cliente.Email = 'b'](σ[Cliente.Nome = 'a'](Cliente)))",
		tree.String(),
	)
}

func TestBuildError(t *testing.T) {
	assert := assert.New(t)
	{
		_, err := Build(&sql.ParsedQuery{})
		assert.True(errors.Is(err, ErrNoFromTables))
		be := &BuildError{}
		assert.True(errors.As(err, &be))
		assert.Equal("NoFromTables", be.KindName())
	}
	{
		q, err := sql.Parse(catalog.Default(), "SELECT Nome FROM Cliente JOIN Pedido ON Cliente.idCliente = Pedido.Cliente_idCliente")
		require.NoError(t, err)
		q.Joins = nil
		_, err = Build(q)
		assert.True(errors.Is(err, ErrUnmatchedJoinTable))
		assert.Contains(err.Error(), "Pedido")
	}
}
