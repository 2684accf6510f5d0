package cerrors

// The compiler's failure taxonomy. Every stage reports a *Error carrying a
// Kind, so callers can branch on the class of failure without string
// matching, and a Name identifying the table/column/function/construct that
// triggered it. Errors flow up unchanged; there is no recovery or retry
// inside the compiler.

import (
	"errors"
	"fmt"
)

const (
	EmptyQuery = iota
	SyntaxError
	UnknownTable
	UnknownColumn
	UnknownFunction
	PlanError
	UnsupportedConstruct
	UnsupportedCast
	InvalidSelfParameter
	MissingReturnType
	UnsupportedType
	NameCollision
	TableNotFound
	NoSinkDefined
)

func kindName(k int) string {
	switch k {
	case EmptyQuery:
		return "empty-query"
	case SyntaxError:
		return "syntax-error"
	case UnknownTable:
		return "unknown-table"
	case UnknownColumn:
		return "unknown-column"
	case UnknownFunction:
		return "unknown-function"
	case PlanError:
		return "plan-error"
	case UnsupportedConstruct:
		return "unsupported-construct"
	case UnsupportedCast:
		return "unsupported-cast"
	case InvalidSelfParameter:
		return "invalid-self-parameter"
	case MissingReturnType:
		return "missing-return-type"
	case UnsupportedType:
		return "unsupported-type"
	case NameCollision:
		return "name-collision"
	case TableNotFound:
		return "table-not-found"
	case NoSinkDefined:
		return "no-sink-defined"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind int
	Name string // table/column/function/construct name, if any
	Msg  string
}

func (self *Error) Error() string {
	return fmt.Sprintf("%s: %s", kindName(self.Kind), self.Msg)
}

func New(kind int, name string, f string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Name: name,
		Msg:  fmt.Sprintf(f, args...),
	}
}

// KindOf unwraps err looking for a taxonomy error and returns its Kind.
func KindOf(err error) (int, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return -1, false
}

func IsKind(err error, kind int) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
