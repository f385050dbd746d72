package sql

// Parser of the restricted SQL dialect we plan. The accepted grammar, in EBNF
//
// query      := SELECT col-list FROM table-ref join* where? ';'?
// col-list   := col (',' col)*
// col        := ID | ID '.' ID
// table-ref  := ID (AS? ID)?
// join       := INNER? JOIN table-ref ON cond
// where      := WHERE cond (AND cond)*
// cond       := operand op operand
// operand    := col | STR | '-'? NUMBER
// op         := '=' | '<>' | '!=' | '<' | '<=' | '>' | '>='
//
// Parsing is done in stages over the normalized text, one clause at a time,
// and never goes back to an earlier clause:
//
//  1) normalize, drop comments, collapse white space, drop the terminator
//  2) check the query starts with SELECT
//  3) cut the SELECT list, up to the first FROM
//  4) cut and resolve the FROM table, up to the first JOIN/WHERE
//  5) cut and resolve every JOIN segment
//  6) resolve the SELECT list against the tables in scope
//  7) split WHERE into AND connected conditions
//
// Keywords are matched on tokens, so a keyword inside of a string literal is
// never mistaken for a clause boundary.

import (
	"github.com/dianpeng/sql2ra/catalog"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Parser struct {
	Catalog *catalog.Catalog
	Raw     string

	source  string            // normalized text, fragments are cut from it
	tokens  []token           // always ends with TkEof or TkError
	aliases map[string]string // lower case alias -> canonical table
}

func NewParser(cat *catalog.Catalog, text string) *Parser {
	return &Parser{
		Catalog: cat,
		Raw:     text,
		aliases: make(map[string]string),
	}
}

// Parse is a shortcut of NewParser(cat, text).Parse()
func Parse(cat *catalog.Catalog, text string) (*ParsedQuery, error) {
	return NewParser(cat, text).Parse()
}

// normalize removes -- and # line comments, collapses every white space run
// into a single space and strips one trailing ';'. String literals and bytes
// that are not valid utf8 are copied untouched, the lexer reports the latter.
func normalize(text string) string {
	buf := &strings.Builder{}
	var quote rune
	pendingSpace := false

	for i := 0; i < len(text); {
		c, sz := utf8.DecodeRuneInString(text[i:])
		raw := text[i : i+sz]
		i += sz

		if quote != 0 {
			buf.WriteString(raw)
			if c == quote {
				if i < len(text) && rune(text[i]) == quote {
					buf.WriteByte(text[i])
					i++
				} else {
					quote = 0
				}
			}
			continue
		}

		if c == '#' || (c == '-' && i < len(text) && text[i] == '-') {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			pendingSpace = true
			continue
		}

		if unicode.IsSpace(c) {
			pendingSpace = true
			continue
		}

		if pendingSpace && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		pendingSpace = false

		if c == '\'' || c == '"' {
			quote = c
		}
		buf.WriteString(raw)
	}

	out := strings.TrimSpace(buf.String())
	out = strings.TrimSuffix(out, ";")
	return strings.TrimSpace(out)
}

// text of a token run as it appears in the normalized query
func (self *Parser) text(toks []token) string {
	if len(toks) == 0 {
		return ""
	}
	return self.source[toks[0].Lexeme.Start:toks[len(toks)-1].Lexeme.End]
}

// index of the first token of one of kinds at or after start, the index of
// the trailing EOF/error token when none shows up
func (self *Parser) find(start int, kinds ...int) int {
	for idx := start; idx < len(self.tokens); idx++ {
		tk := self.tokens[idx].Kind
		if tk == TkEof {
			return idx
		}
		for _, k := range kinds {
			if tk == k {
				return idx
			}
		}
	}
	return len(self.tokens) - 1
}

// upto turns a boundary index into a slice end, a lexing error at the
// boundary stays with the clause in front of it
func (self *Parser) upto(idx int) int {
	if self.tokens[idx].Kind == TkError {
		return idx + 1
	}
	return idx
}

func splitTokens(toks []token, sep int) [][]token {
	out := [][]token{}
	cur := []token{}
	for _, t := range toks {
		if t.Kind == sep {
			out = append(out, cur)
			cur = []token{}
		} else {
			cur = append(cur, t)
		}
	}
	return append(out, cur)
}

func hasToken(toks []token, kinds ...int) (token, bool) {
	for _, t := range toks {
		for _, k := range kinds {
			if t.Kind == k {
				return t, true
			}
		}
	}
	return token{}, false
}

func (self *Parser) Parse() (*ParsedQuery, error) {
	// 1) normalize
	self.source = normalize(self.Raw)
	self.tokens = tokenize(self.source)

	// 2) SELECT, a single statement only
	if self.tokens[0].Kind != TkSelect {
		return nil, newParseError(ErrKindNotASelect, self.text(self.tokens[:1]), "")
	}
	if t, ok := hasToken(self.tokens, TkSemicolon); ok {
		return nil, newParseError(
			ErrKindNotASelect,
			self.source[t.Lexeme.Start:],
			"only a single statement is supported",
		)
	}

	// 3) SELECT list
	fromIdx := self.find(1, TkFrom)
	if self.tokens[fromIdx].Kind != TkFrom {
		detail := ""
		if self.tokens[fromIdx].Kind == TkError {
			detail = self.tokens[fromIdx].Lexeme.Text
		}
		return nil, newParseError(ErrKindMissingFrom, self.source, "%s", detail)
	}
	selectList := splitTokens(self.tokens[1:fromIdx], TkComma)

	q := &ParsedQuery{
		Text:    self.source,
		Aliases: make(map[string]string),
	}

	// 4) FROM table
	joinIdx := self.find(fromIdx+1, TkJoin, TkInner, TkWhere)
	if err := self.parseFrom(q, self.tokens[fromIdx+1:self.upto(joinIdx)]); err != nil {
		return nil, err
	}

	// 5) JOIN segments
	whereIdx := self.find(joinIdx, TkWhere)
	if err := self.parseJoinList(q, self.tokens[joinIdx:self.upto(whereIdx)]); err != nil {
		return nil, err
	}

	// 6) SELECT list resolution
	if err := self.resolveSelect(q, selectList); err != nil {
		return nil, err
	}

	// 7) WHERE
	if self.tokens[whereIdx].Kind == TkWhere {
		last := len(self.tokens) - 1
		if err := self.parseWhere(q, self.tokens[whereIdx+1:self.upto(last)]); err != nil {
			return nil, err
		}
	}

	for k, v := range self.aliases {
		q.Aliases[k] = v
	}
	return q, nil
}

func (self *Parser) parseTableRef(
	toks []token,
	emptyKind int,
) (string, string, error) {
	if len(toks) == 0 {
		return "", "", newParseError(emptyKind, "", "expect a table name")
	}

	first := toks[0]
	if first.Kind != TkId {
		detail := "expect a table name"
		if first.Kind == TkError {
			detail = first.Lexeme.Text
		}
		return "", "", newParseError(ErrKindUnknownTable, self.text(toks), "%s", detail)
	}

	if last := toks[len(toks)-1]; last.Kind == TkError {
		return "", "", newParseError(ErrKindMalformedJoin, self.text(toks), "%s", last.Lexeme.Text)
	}

	table, ok := self.Catalog.CanonicalTable(first.Lexeme.Text)
	if !ok {
		return "", "", newParseError(ErrKindUnknownTable, first.Lexeme.Text, "")
	}

	rest := toks[1:]
	if len(rest) > 0 && rest[0].Kind == TkAs {
		rest = rest[1:]
		if len(rest) == 0 {
			return "", "", newParseError(ErrKindMalformedJoin, self.text(toks), "expect an alias after AS")
		}
	}

	switch {
	case len(rest) == 0:
		return table, "", nil
	case len(rest) == 1 && rest[0].Kind == TkId:
		return table, rest[0].Lexeme.Text, nil
	}

	if _, comma := hasToken(rest, TkComma); comma {
		return "", "", newParseError(
			ErrKindMalformedJoin,
			self.text(toks),
			"comma separated tables form a cross join, use JOIN ... ON",
		)
	}
	return "", "", newParseError(
		ErrKindMalformedJoin,
		self.text(toks),
		"unexpected %s after table %s",
		TokenName(rest[0].Kind),
		table,
	)
}

// addTable records a table and its alias. A table showing up twice, or an
// alias clashing with another alias or another table, is rejected since
// relations are identified by table name.
func (self *Parser) addTable(q *ParsedQuery, table, alias, fragment string) error {
	for _, t := range q.From {
		if t == table {
			return newParseError(ErrKindMalformedJoin, fragment, "table %s is used twice", table)
		}
	}
	if alias != "" {
		key := strings.ToLower(alias)
		if _, ok := self.aliases[key]; ok {
			return newParseError(ErrKindMalformedJoin, fragment, "alias %s is declared twice", alias)
		}
		if other, ok := self.Catalog.CanonicalTable(alias); ok && other != table {
			return newParseError(ErrKindMalformedJoin, fragment, "alias %s hides table %s", alias, other)
		}
		self.aliases[key] = table
	}
	q.From = append(q.From, table)
	return nil
}

func (self *Parser) parseFrom(q *ParsedQuery, toks []token) error {
	table, alias, err := self.parseTableRef(toks, ErrKindMissingFrom)
	if err != nil {
		return err
	}
	return self.addTable(q, table, alias, self.text(toks))
}

type joinSegment struct {
	toks  []token
	table []token
	cond  []token
}

func (self *Parser) parseJoinList(q *ParsedQuery, toks []token) error {
	segments := []joinSegment{}

	// cut, each segment starts with INNER? JOIN
	for idx := 0; idx < len(toks); {
		start := idx
		if toks[idx].Kind == TkInner {
			idx++
		}
		if idx >= len(toks) || toks[idx].Kind != TkJoin {
			return newParseError(ErrKindMalformedJoin, self.text(toks[start:]), "expect JOIN")
		}
		idx++

		end := idx
		for end < len(toks) && toks[end].Kind != TkJoin && toks[end].Kind != TkInner {
			end++
		}
		body := toks[idx:end]
		seg := joinSegment{toks: toks[start:end]}

		on := -1
		for i, t := range body {
			if t.Kind == TkOn {
				on = i
				break
			}
		}
		if on < 0 {
			return newParseError(ErrKindMalformedJoin, self.text(seg.toks), "missing ON condition")
		}
		seg.table = body[:on]
		seg.cond = body[on+1:]
		if len(seg.cond) == 0 {
			return newParseError(ErrKindMalformedJoin, self.text(seg.toks), "empty ON condition")
		}
		segments = append(segments, seg)
		idx = end
	}

	// resolve tables and aliases first, conditions may use any alias that is
	// declared up to their own join
	for _, seg := range segments {
		table, alias, err := self.parseTableRef(seg.table, ErrKindMalformedJoin)
		if err != nil {
			return err
		}
		if err := self.addTable(q, table, alias, self.text(seg.toks)); err != nil {
			return err
		}
		q.Joins = append(q.Joins, Join{
			Table: table,
			Alias: alias,
		})
	}

	for idx, seg := range segments {
		scope := q.From[:idx+2]
		if t, ok := hasToken(seg.cond, TkAnd); ok {
			return newParseError(
				ErrKindMalformedJoin,
				self.text(seg.cond),
				"join condition must be a single comparison, move %s ... to WHERE",
				t.Lexeme.Text,
			)
		}
		cond, err := self.parseCondition(seg.cond, scope, ErrKindMalformedJoin)
		if err != nil {
			return err
		}

		// the condition must link the joined table with an earlier one,
		// anything else is a cross join with a filter on top
		tables := cond.Tables()
		joined := q.Joins[idx].Table
		if !contains(tables, joined) {
			return newParseError(
				ErrKindMalformedJoin,
				self.text(seg.toks),
				"join condition does not reference joined table %s",
				joined,
			)
		}
		if len(tables) < 2 {
			return newParseError(
				ErrKindMalformedJoin,
				self.text(seg.toks),
				"join condition does not reference any table before %s",
				joined,
			)
		}
		q.Joins[idx].Condition = cond
	}
	return nil
}

// resolveQualifier maps an alias or a table name onto a canonical table that
// is part of scope.
func (self *Parser) resolveQualifier(
	name string,
	scope []string,
	fragment string,
) (string, error) {
	table, ok := self.aliases[strings.ToLower(name)]
	if !ok {
		if table, ok = self.Catalog.CanonicalTable(name); !ok {
			return "", newParseError(ErrKindUnknownColumn, fragment, "unknown table %s", name)
		}
	}
	for _, s := range scope {
		if s == table {
			return table, nil
		}
	}
	return "", newParseError(ErrKindUnknownColumn, fragment, "table %s is not in scope", table)
}

// resolveColumn turns ID or ID.ID into a column operand
func (self *Parser) resolveColumn(
	toks []token,
	scope []string,
	anchor string,
) (Operand, error) {
	fragment := self.text(toks)
	table := anchor
	colTok := toks[0]

	if len(toks) == 3 {
		t, err := self.resolveQualifier(toks[0].Lexeme.Text, scope, fragment)
		if err != nil {
			return Operand{}, err
		}
		table = t
		colTok = toks[2]
	}

	col, ok := self.Catalog.CanonicalColumn(table, colTok.Lexeme.Text)
	if !ok {
		return Operand{}, newParseError(ErrKindUnknownColumn, fragment, "no column %s in table %s", colTok.Lexeme.Text, table)
	}
	return Operand{
		Kind:   OperandColumn,
		Table:  table,
		Column: col,
	}, nil
}

func isColumnShape(toks []token) bool {
	switch len(toks) {
	case 1:
		return toks[0].Kind == TkId
	case 3:
		return toks[0].Kind == TkId && toks[1].Kind == TkDot && toks[2].Kind == TkId
	default:
		return false
	}
}

func (self *Parser) resolveSelect(q *ParsedQuery, list [][]token) error {
	for _, entry := range list {
		fragment := self.text(entry)

		if len(entry) == 0 {
			return newParseError(ErrKindUnknownColumn, fragment, "empty entry in SELECT list")
		}
		if _, ok := hasToken(entry, TkMul); ok {
			return newParseError(ErrKindUnknownColumn, fragment, "wildcard is not supported")
		}
		if !isColumnShape(entry) {
			detail := "expect column or table.column"
			if entry[len(entry)-1].Kind == TkError {
				detail = entry[len(entry)-1].Lexeme.Text
			}
			return newParseError(ErrKindUnknownColumn, fragment, "%s", detail)
		}

		o, err := self.resolveColumn(entry, q.From, q.Anchor())
		if err != nil {
			return err
		}
		q.Select = append(q.Select, o.Qualified())
	}
	return nil
}

func (self *Parser) parseWhere(q *ParsedQuery, toks []token) error {
	if len(toks) == 0 {
		return newParseError(ErrKindUnsupportedPredicate, "", "empty WHERE clause")
	}

	for _, conj := range splitTokens(toks, TkAnd) {
		if t, ok := hasToken(conj, TkOr, TkLPar, TkRPar); ok {
			return newParseError(
				ErrKindUnsupportedPredicate,
				self.text(conj),
				"%s is not supported, conditions are connected by AND only",
				t.Lexeme.Text,
			)
		}
		cond, err := self.parseCondition(conj, q.From, ErrKindUnsupportedPredicate)
		if err != nil {
			return err
		}
		q.Where = append(q.Where, cond)
	}
	return nil
}

// parseOperand consumes one operand from the head of toks and returns the
// number of tokens used.
func (self *Parser) parseOperand(
	toks []token,
	scope []string,
	anchor string,
) (Operand, int, error) {
	if len(toks) == 0 {
		return Operand{}, 0, nil
	}

	switch toks[0].Kind {
	case TkId:
		n := 1
		if len(toks) >= 3 && toks[1].Kind == TkDot && toks[2].Kind == TkId {
			n = 3
		}
		o, err := self.resolveColumn(toks[:n], scope, anchor)
		return o, n, err

	case TkStr:
		return Operand{
			Kind:        OperandLiteral,
			Literal:     toks[0].Lexeme.Text,
			LiteralKind: LiteralString,
		}, 1, nil

	case TkNumber:
		return Operand{
			Kind:        OperandLiteral,
			Literal:     toks[0].Lexeme.Text,
			LiteralKind: LiteralNumber,
		}, 1, nil

	case TkSub:
		if len(toks) >= 2 && toks[1].Kind == TkNumber {
			return Operand{
				Kind:        OperandLiteral,
				Literal:     "-" + toks[1].Lexeme.Text,
				LiteralKind: LiteralNumber,
			}, 2, nil
		}
	}
	return Operand{}, 0, nil
}

// parseCondition parses operand op operand. Shape errors are reported with
// kind, unresolvable columns always with UnknownColumn.
func (self *Parser) parseCondition(
	toks []token,
	scope []string,
	kind int,
) (*Condition, error) {
	fragment := self.text(toks)
	if len(toks) == 0 {
		return nil, newParseError(kind, fragment, "empty condition")
	}
	if last := toks[len(toks)-1]; last.Kind == TkError {
		return nil, newParseError(kind, fragment, "%s", last.Lexeme.Text)
	}
	if t, ok := hasToken(toks, TkOr, TkLPar, TkRPar); ok {
		return nil, newParseError(ErrKindUnsupportedPredicate, fragment, "%s is not supported", t.Lexeme.Text)
	}

	anchor := scope[0]

	left, n, err := self.parseOperand(toks, scope, anchor)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newParseError(kind, fragment, "expect a column or a literal")
	}
	rest := toks[n:]

	if len(rest) == 0 || !isCompareOp(rest[0].Kind) {
		return nil, newParseError(kind, fragment, "expect a comparison operator")
	}
	op := rest[0].Kind
	rest = rest[1:]

	right, n, err := self.parseOperand(rest, scope, anchor)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, newParseError(kind, fragment, "expect a column or a literal after %s", OpString(op))
	}
	if n != len(rest) {
		return nil, newParseError(kind, fragment, "unexpected %s", self.text(rest[n:]))
	}

	if !left.IsColumn() && !right.IsColumn() {
		return nil, newParseError(ErrKindUnsupportedPredicate, fragment, "condition does not reference any column")
	}

	return &Condition{
		Left:  left,
		Op:    op,
		Right: right,
	}, nil
}
