package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/dianpeng/sql2ra/catalog"
	"github.com/dianpeng/sql2ra/plan"
	"github.com/dianpeng/sql2ra/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"log/slog"
	"sync"
	"testing"
)

const roundTrip = "SELECT Cliente.Nome, Pedido.ValorTotalPedido FROM Cliente JOIN Pedido ON Cliente.idCliente = Pedido.Cliente_idCliente WHERE Cliente.Nome = 'Ana'"

func TestCompileRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c := NewCompiler(catalog.Default(), nil)

	r, err := c.Compile(roundTrip)
	require.NoError(t, err)

	assert.Equal([]string{"Cliente", "Pedido"}, r.Query.From)
	assert.Equal([]string{
		"Access base table: Cliente",
		"Filter: Cliente.Nome = 'Ana'",
		"Access base table: Pedido",
		"Join: Cliente.idCliente = Pedido.Cliente_idCliente",
		"Projection: Cliente.Nome, Pedido.ValorTotalPedido",
	}, plan.Generate(r.Built))

	assert.Len(r.Trace, 2)
	assert.Equal(append(append([]string{}, r.Trace...), r.Steps...), r.Plan)
	assert.Equal(plan.Generate(r.Optimized), r.Steps)
	assert.NotEqual(r.Built.String(), r.Optimized.String())
}

func TestCompileError(t *testing.T) {
	assert := assert.New(t)
	c := NewCompiler(catalog.Default(), nil)

	r, err := c.Compile("SELECT Nome FROM Cliente WHERE Nome = 'a' OR Nome = 'b'")
	assert.Nil(r)
	assert.True(errors.Is(err, sql.ErrUnsupportedPredicate))

	se := &StageError{}
	require.True(t, errors.As(err, &se))
	assert.Equal(StageParse, se.Stage)
	assert.Contains(se.Error(), "parse: unsupported predicate")

	_, err = c.Compile("DELETE FROM Cliente")
	assert.True(errors.Is(err, sql.ErrNotASelect))
}

func TestCompileLogs(t *testing.T) {
	assert := assert.New(t)
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewCompiler(catalog.Default(), logger)

	_, err := c.Compile(roundTrip)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(out, "query parsed")
	assert.Contains(out, "tree built")
	assert.Contains(out, "tree optimized")
	assert.Contains(out, "plan generated")

	buf.Reset()
	_, err = c.Compile("SELECT Nada FROM Cliente")
	assert.Error(err)
	assert.Contains(buf.String(), "stage=parse")
}

func TestCompileConcurrent(t *testing.T) {
	c := NewCompiler(catalog.Default(), nil)
	want, err := c.Compile(roundTrip)
	require.NoError(t, err)

	wg := sync.WaitGroup{}
	results := make([][]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Compile(roundTrip)
			if err == nil {
				results[i] = r.Plan
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, want.Plan, got, fmt.Sprintf("worker %d", i))
	}
}
