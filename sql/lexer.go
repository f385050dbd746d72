package sql

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	// Literal
	TkNumber = iota
	TkStr
	TkId

	// Keywords
	TkSelect
	TkFrom
	TkJoin
	TkInner
	TkOn
	TkAs
	TkWhere
	TkAnd
	TkOr

	// Keywords of full SQL we recognize only to reject them with a precise
	// error instead of mistaking them for an alias
	TkUnsupported

	// Punctuation
	TkComma
	TkSemicolon
	TkDot
	TkLPar
	TkRPar
	TkMul
	TkSub

	TkLt
	TkLe
	TkGt
	TkGe
	TkEq
	TkNe

	TkError
	TkEof
)

var tokenName = map[int]string{
	TkNumber:      "number",
	TkStr:         "string",
	TkId:          "identifier",
	TkSelect:      "SELECT",
	TkFrom:        "FROM",
	TkJoin:        "JOIN",
	TkInner:       "INNER",
	TkOn:          "ON",
	TkAs:          "AS",
	TkWhere:       "WHERE",
	TkAnd:         "AND",
	TkOr:          "OR",
	TkUnsupported: "unsupported keyword",
	TkComma:       "','",
	TkSemicolon:   "';'",
	TkDot:         "'.'",
	TkLPar:        "'('",
	TkRPar:        "')'",
	TkMul:         "'*'",
	TkSub:         "'-'",
	TkLt:          "'<'",
	TkLe:          "'<='",
	TkGt:          "'>'",
	TkGe:          "'>='",
	TkEq:          "'='",
	TkNe:          "'<>'",
	TkError:       "error",
	TkEof:         "end of query",
}

func TokenName(tk int) string {
	if n, ok := tokenName[tk]; ok {
		return n
	}
	return "unknown"
}

var keywords = map[string]int{
	"select": TkSelect,
	"from":   TkFrom,
	"join":   TkJoin,
	"inner":  TkInner,
	"on":     TkOn,
	"as":     TkAs,
	"where":  TkWhere,
	"and":    TkAnd,
	"or":     TkOr,

	"left":      TkUnsupported,
	"right":     TkUnsupported,
	"full":      TkUnsupported,
	"outer":     TkUnsupported,
	"cross":     TkUnsupported,
	"natural":   TkUnsupported,
	"using":     TkUnsupported,
	"group":     TkUnsupported,
	"order":     TkUnsupported,
	"having":    TkUnsupported,
	"limit":     TkUnsupported,
	"union":     TkUnsupported,
	"intersect": TkUnsupported,
	"except":    TkUnsupported,
	"distinct":  TkUnsupported,
	"not":       TkUnsupported,
	"in":        TkUnsupported,
	"between":   TkUnsupported,
	"like":      TkUnsupported,
	"is":        TkUnsupported,
}

type Lexeme struct {
	Text  string // identifier/keyword as written, string literal content, number text
	Start int    // byte offset of the token inside of the source
	End   int
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
	}
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor >= len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	if self.Cursor+1 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Lexeme = Lexeme{
		Text:  self.Source[self.Cursor : self.Cursor+sz],
		Start: self.Cursor,
		End:   self.Cursor + sz,
	}
	self.Token = tk
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Lexeme = Lexeme{Start: len(self.Source), End: len(self.Source)}
	self.Token = TkEof
	return TkEof
}

func (self *Lexer) dinfo(where int) string {
	return fmt.Sprintf("around position %d", where+1)
}

func (self *Lexer) err(start int, msg string) int {
	self.Lexeme = Lexeme{
		Text:  fmt.Sprintf("%s: %s", self.dinfo(start), msg),
		Start: start,
		End:   len(self.Source),
	}
	self.Cursor = len(self.Source)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errUtf8() int {
	return self.err(self.Cursor, "invalid utf8 character")
}

func (self *Lexer) lexLineComment() bool {
	for {
		r, sz := self.nextRune()
		if sz == 0 {
			return true // reaching end of the query
		}
		if r == utf8.RuneError && sz == 1 {
			self.errUtf8()
			return false
		}
		self.Cursor += sz
		if r == '\n' {
			return true
		}
	}
}

// numbers are kept as written, we never evaluate them
func (self *Lexer) lexNum() int {
	start := self.Cursor
	hasDot := false

	for {
		r, sz := self.nextRune()
		if r >= '0' && r <= '9' {
			self.Cursor += sz
			continue
		}
		if r == '.' && !hasDot {
			hasDot = true
			self.Cursor += sz
			continue
		}
		break
	}

	self.Lexeme = Lexeme{
		Text:  self.Source[start:self.Cursor],
		Start: start,
		End:   self.Cursor,
	}
	self.Token = TkNumber
	return TkNumber
}

// SQL string literal, a doubled quote is an escaped quote
func (self *Lexer) lexStr(quote rune) int {
	start := self.Cursor
	buf := &bytes.Buffer{}
	self.Cursor++

	for {
		c, sz := self.nextRune()
		if sz == 0 {
			return self.err(start, "string literal is not closed by quote properly")
		}
		if c == utf8.RuneError && sz == 1 {
			return self.errUtf8()
		}
		self.Cursor += sz

		if c == quote {
			if r, _ := self.nextRune(); r == quote {
				buf.WriteRune(quote)
				self.Cursor += sz
				continue
			}
			break
		}
		buf.WriteRune(c)
	}

	self.Lexeme = Lexeme{
		Text:  buf.String(),
		Start: start,
		End:   self.Cursor,
	}
	self.Token = TkStr
	return TkStr
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func (self *Lexer) lexKeywordOrId() int {
	start := self.Cursor
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError || !self.isIdChar(r) {
			break
		}
		self.Cursor += sz
	}

	self.Lexeme = Lexeme{
		Text:  self.Source[start:self.Cursor],
		Start: start,
		End:   self.Cursor,
	}
	if tk, ok := keywords[lowerASCII(self.Lexeme.Text)]; ok {
		self.Token = tk
	} else {
		self.Token = TkId
	}
	return self.Token
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof || self.Token == TkError && self.Cursor > 0 {
		return self.Token
	}
	return self.next()
}

func (self *Lexer) next() int {
	for {
		c, sz := self.nextRune()
		if sz == 0 {
			return self.eof()
		}
		if c == utf8.RuneError && sz == 1 {
			return self.errUtf8()
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)
		case ';':
			return self.yield(TkSemicolon, 1)
		case '.':
			return self.yield(TkDot, 1)
		case '(':
			return self.yield(TkLPar, 1)
		case ')':
			return self.yield(TkRPar, 1)
		case '*':
			return self.yield(TkMul, 1)

		case '-':
			if self.nextRune2() == '-' {
				if !self.lexLineComment() {
					return self.Token
				}
				break
			}
			return self.yield(TkSub, 1)

		case '#':
			if !self.lexLineComment() {
				return self.Token
			}
			break

		case '=':
			if self.nextRune2() == '=' {
				return self.yield(TkEq, 2)
			}
			return self.yield(TkEq, 1)

		case '>':
			if self.nextRune2() == '=' {
				return self.yield(TkGe, 2)
			}
			return self.yield(TkGt, 1)

		case '<':
			switch self.nextRune2() {
			case '=':
				return self.yield(TkLe, 2)
			case '>':
				return self.yield(TkNe, 2)
			default:
				return self.yield(TkLt, 1)
			}

		case '!':
			if self.nextRune2() == '=' {
				return self.yield(TkNe, 2)
			}
			return self.err(self.Cursor, "are you missing '=' for != operator?")

		case '\'', '"':
			return self.lexStr(c)

		default:
			if unicode.IsSpace(c) {
				self.Cursor += sz
				break
			}
			if c >= '0' && c <= '9' {
				return self.lexNum()
			}
			if self.isIdLeadingChar(c) {
				return self.lexKeywordOrId()
			}
			return self.err(self.Cursor, fmt.Sprintf("unexpected character %q", c))
		}
	}
}

// tokenize lexes the whole query. Lexing stops at the first error, which is
// kept as the last token so the clause owning it reports the failure.
func tokenize(source string) []token {
	l := newLexer(source)
	out := []token{}
	for {
		tk := l.Next()
		out = append(out, token{Kind: tk, Lexeme: l.Lexeme})
		if tk == TkEof || tk == TkError {
			return out
		}
	}
}

type token struct {
	Kind   int
	Lexeme Lexeme
}
