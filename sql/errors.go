package sql

import (
	"errors"
	"fmt"
)

const (
	ErrKindNotASelect = iota
	ErrKindMissingFrom
	ErrKindUnknownTable
	ErrKindUnknownColumn
	ErrKindUnsupportedPredicate
	ErrKindMalformedJoin
)

// Sentinels, one per kind, so callers can use errors.Is(err, sql.ErrUnknownTable)
var (
	ErrNotASelect           = errors.New("query must start with SELECT")
	ErrMissingFrom          = errors.New("missing FROM clause")
	ErrUnknownTable         = errors.New("unknown table")
	ErrUnknownColumn        = errors.New("unknown column")
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	ErrMalformedJoin        = errors.New("malformed join")
)

var errKindSentinel = []error{
	ErrKindNotASelect:           ErrNotASelect,
	ErrKindMissingFrom:          ErrMissingFrom,
	ErrKindUnknownTable:         ErrUnknownTable,
	ErrKindUnknownColumn:        ErrUnknownColumn,
	ErrKindUnsupportedPredicate: ErrUnsupportedPredicate,
	ErrKindMalformedJoin:        ErrMalformedJoin,
}

// ParseError aborts parsing. Fragment is the offending piece of the
// normalized query text, Detail an optional human explanation.
type ParseError struct {
	Kind     int
	Fragment string
	Detail   string
}

func (self *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %q", errKindSentinel[self.Kind], self.Fragment)
	if self.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, self.Detail)
	}
	return msg
}

func (self *ParseError) Unwrap() error { return errKindSentinel[self.Kind] }

func (self *ParseError) KindName() string {
	switch self.Kind {
	case ErrKindNotASelect:
		return "NotASelect"
	case ErrKindMissingFrom:
		return "MissingFrom"
	case ErrKindUnknownTable:
		return "UnknownTable"
	case ErrKindUnknownColumn:
		return "UnknownColumn"
	case ErrKindUnsupportedPredicate:
		return "UnsupportedPredicate"
	case ErrKindMalformedJoin:
		return "MalformedJoin"
	default:
		panic("unreachable")
	}
}

func newParseError(kind int, fragment string, detail string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:     kind,
		Fragment: fragment,
		Detail:   fmt.Sprintf(detail, args...),
	}
}
