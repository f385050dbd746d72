package sql

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func kinds(src string) []int {
	out := []int{}
	for _, t := range tokenize(src) {
		out = append(out, t.Kind)
	}
	return out
}

func TestLexComment(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`
-- last line
#  last line
`)
		assert.True(l.Next() == TkEof)
	}
	{
		l := newLexer(`
# abc
    id #def
-- xyz
`)
		assert.True(l.Next() == TkId)
		assert.Equal("id", l.Lexeme.Text)
		assert.True(l.Next() == TkEof)
	}
}

func TestLexKeyword(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(
		[]int{TkSelect, TkFrom, TkInner, TkJoin, TkOn, TkAs, TkWhere, TkAnd, TkOr, TkEof},
		kinds("select FROM Inner jOIN on as where AND or"),
	)
	assert.Equal(
		[]int{TkUnsupported, TkUnsupported, TkUnsupported, TkUnsupported, TkEof},
		kinds("LEFT group like between"),
	)
	assert.Equal([]int{TkId, TkEof}, kinds("Cliente_idCliente"))
}

func TestLexOperator(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(
		[]int{TkEq, TkEq, TkNe, TkNe, TkLt, TkLe, TkGt, TkGe, TkEof},
		kinds("= == <> != < <= > >="),
	)
	assert.Equal(
		[]int{TkComma, TkDot, TkLPar, TkRPar, TkMul, TkSub, TkSemicolon, TkEof},
		kinds(", . ( ) * - ;"),
	)
}

func TestLexLiteral(t *testing.T) {
	assert := assert.New(t)
	{
		toks := tokenize(`'it''s' "a" 10 3.25`)
		assert.Equal(TkStr, toks[0].Kind)
		assert.Equal("it's", toks[0].Lexeme.Text)
		assert.Equal(0, toks[0].Lexeme.Start)
		assert.Equal(7, toks[0].Lexeme.End)
		assert.Equal(TkStr, toks[1].Kind)
		assert.Equal("a", toks[1].Lexeme.Text)
		assert.Equal(TkNumber, toks[2].Kind)
		assert.Equal("10", toks[2].Lexeme.Text)
		assert.Equal(TkNumber, toks[3].Kind)
		assert.Equal("3.25", toks[3].Lexeme.Text)
		assert.Equal(TkEof, toks[4].Kind)
	}
	{
		// keyword inside of a literal stays a literal
		toks := tokenize(`'x FROM y'`)
		assert.Equal([]int{TkStr, TkEof}, []int{toks[0].Kind, toks[1].Kind})
	}
}

func TestLexError(t *testing.T) {
	assert := assert.New(t)
	{
		toks := tokenize(`a 'open`)
		assert.Len(toks, 2)
		assert.Equal(TkError, toks[1].Kind)
		assert.Contains(toks[1].Lexeme.Text, "not closed")
		assert.Equal(2, toks[1].Lexeme.Start)
	}
	{
		toks := tokenize(`a ! b`)
		assert.Equal(TkError, toks[len(toks)-1].Kind)
	}
	{
		toks := tokenize(`a @ b`)
		assert.Equal(TkError, toks[len(toks)-1].Kind)
		assert.Contains(toks[len(toks)-1].Lexeme.Text, "unexpected character")
	}
}

func TestLexReplacementChar(t *testing.T) {
	assert := assert.New(t)
	{
		toks := tokenize("'\uFFFD'")
		assert.Equal(TkStr, toks[0].Kind)
		assert.Equal("\uFFFD", toks[0].Lexeme.Text)
	}
	{
		toks := tokenize("'\xff'")
		assert.Equal(TkError, toks[len(toks)-1].Kind)
		assert.Contains(toks[len(toks)-1].Lexeme.Text, "invalid utf8")
	}
}
