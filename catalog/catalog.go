package catalog

// Catalog is the static schema every query is validated against. It is built
// once and never mutated afterwards, so a single instance can be shared by any
// number of concurrent compilations.
//
// All lookups are case-insensitive. Names are compared after NFC normalization
// and Unicode case folding, and every lookup hands back the name exactly as it
// was declared, ie the canonical name.

import (
	"errors"
	"fmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"strings"
)

var (
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidSchema    = errors.New("invalid schema")
)

type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

type tableEntry struct {
	name    string
	columns []string
	index   map[string]string // folded column name -> declared name
}

type Catalog struct {
	tables []*tableEntry
	index  map[string]*tableEntry // folded table name -> entry
}

// InvalidReferenceError is returned by ValidateQualified, Ref holds the text
// as the caller wrote it.
type InvalidReferenceError struct {
	Ref    string
	Reason string
}

func (self *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %q: %s", self.Ref, self.Reason)
}

func (self *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// fold produces the lookup key of an identifier. A Caser keeps state, so a
// fresh one is used per call instead of sharing one between goroutines.
func fold(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

func New(tables []Table) (*Catalog, error) {
	c := &Catalog{
		index: make(map[string]*tableEntry),
	}

	for _, t := range tables {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: table without name", ErrInvalidSchema)
		}
		key := fold(name)
		if _, ok := c.index[key]; ok {
			return nil, fmt.Errorf("%w: table %s declared twice", ErrInvalidSchema, name)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("%w: table %s has no column", ErrInvalidSchema, name)
		}

		entry := &tableEntry{
			name:  name,
			index: make(map[string]string),
		}
		for _, col := range t.Columns {
			col = strings.TrimSpace(col)
			if col == "" || strings.Contains(col, ".") {
				return nil, fmt.Errorf("%w: table %s has an invalid column name %q", ErrInvalidSchema, name, col)
			}
			ckey := fold(col)
			if _, ok := entry.index[ckey]; ok {
				return nil, fmt.Errorf("%w: column %s.%s declared twice", ErrInvalidSchema, name, col)
			}
			entry.index[ckey] = col
			entry.columns = append(entry.columns, col)
		}

		c.index[key] = entry
		c.tables = append(c.tables, entry)
	}

	return c, nil
}

func (self *Catalog) lookup(table string) *tableEntry {
	return self.index[fold(table)]
}

func (self *Catalog) TableExists(name string) bool {
	return self.lookup(name) != nil
}

func (self *Catalog) ColumnExists(table, column string) bool {
	_, ok := self.CanonicalColumn(table, column)
	return ok
}

func (self *Catalog) CanonicalTable(name string) (string, bool) {
	if entry := self.lookup(name); entry != nil {
		return entry.name, true
	}
	return "", false
}

func (self *Catalog) CanonicalColumn(table, column string) (string, bool) {
	entry := self.lookup(table)
	if entry == nil {
		return "", false
	}
	col, ok := entry.index[fold(column)]
	return col, ok
}

// ValidateQualified checks a reference written as table.column and returns
// both parts in canonical form.
func (self *Catalog) ValidateQualified(ref string) (string, string, error) {
	parts := strings.Split(ref, ".")
	if len(parts) != 2 {
		return "", "", &InvalidReferenceError{Ref: ref, Reason: "expect table.column"}
	}

	table, ok := self.CanonicalTable(parts[0])
	if !ok {
		return "", "", &InvalidReferenceError{Ref: ref, Reason: "unknown table"}
	}
	column, ok := self.CanonicalColumn(table, parts[1])
	if !ok {
		return "", "", &InvalidReferenceError{Ref: ref, Reason: "unknown column"}
	}
	return table, column, nil
}

// Tables lists the canonical table names in declaration order.
func (self *Catalog) Tables() []string {
	out := make([]string, 0, len(self.tables))
	for _, t := range self.tables {
		out = append(out, t.name)
	}
	return out
}

// Columns returns a copy of the declared columns of a table, nil when the
// table is unknown.
func (self *Catalog) Columns(table string) []string {
	entry := self.lookup(table)
	if entry == nil {
		return nil
	}
	out := make([]string, len(entry.columns))
	copy(out, entry.columns)
	return out
}
