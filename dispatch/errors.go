package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrNoMatch   = errors.New("no implementation for argument types")
	ErrAmbiguous = errors.New("ambiguous dispatch")
	ErrDuplicate = errors.New("duplicate registration")
	ErrArity     = errors.New("wrong number of dispatch arguments")
)

// Error reports a failed lookup together with the argument types.
type Error struct {
	Table      string
	Types      []reflect.Type
	Candidates []string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s%s: %v", e.Table, typesString(e.Types), e.Err)
	if len(e.Candidates) > 0 {
		msg += " (candidates: " + strings.Join(e.Candidates, ", ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NoMatch builds the error a handler returns when it declines a combination
// of argument types.
func NoMatch(table string, args ...interface{}) *Error {
	types := make([]reflect.Type, len(args))
	for i, arg := range args {
		types[i] = TypeOf(arg)
	}
	return &Error{Table: table, Types: types, Err: ErrNoMatch}
}

// IsDispatchError reports whether err comes from a failed lookup.
func IsDispatchError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
