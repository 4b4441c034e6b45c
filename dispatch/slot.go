package dispatch

import (
	"fmt"
	"reflect"
	"strings"
)

// NoneType is the runtime type of absent arguments. A nil argument dispatches
// as NoneType and only matches None or Any slots.
type NoneType struct{}

var noneType = reflect.TypeOf(NoneType{})

type rank int

const (
	rankExact  rank = iota // slot names exactly this type
	rankMember             // type came from a OneOf set
	rankIface              // interface type, matched by implementers
	rankAny                // wildcard
)

// Slot is one position of a registration pattern.
type Slot struct {
	types []reflect.Type
	set   bool
	any   bool
}

// Any matches every argument, absent ones included.
var Any = Slot{any: true}

// None matches absent arguments only.
var None = Slot{types: []reflect.Type{noneType}}

// Type matches arguments whose dynamic type is T. When T is an interface type
// the slot matches every type implementing it.
func Type[T any]() Slot {
	return Slot{types: []reflect.Type{reflect.TypeFor[T]()}}
}

// OneOf matches any of the given slots. Registration expands it into one
// entry per member.
func OneOf(slots ...Slot) Slot {
	out := Slot{set: true}
	for _, s := range slots {
		if s.any {
			panic("dispatch: Any inside OneOf")
		}
		out.types = append(out.types, s.types...)
	}
	return out
}

// TypeOf returns the dispatch type of an argument.
func TypeOf(arg interface{}) reflect.Type {
	if arg == nil {
		return noneType
	}
	return reflect.TypeOf(arg)
}

type match struct {
	typ  reflect.Type // nil for wildcards
	rank rank
}

func (m match) accepts(t reflect.Type) bool {
	switch m.rank {
	case rankAny:
		return true
	case rankIface:
		return t != noneType && t.Implements(m.typ)
	}
	return t == m.typ
}

func (m match) String() string {
	switch {
	case m.rank == rankAny:
		return "_"
	case m.typ == noneType:
		return "None"
	}
	return m.typ.String()
}

// expand turns a pattern into the cartesian product of its slots.
func expand(slots []Slot) [][]match {
	out := [][]match{{}}
	for _, s := range slots {
		var opts []match
		if s.any {
			opts = []match{{rank: rankAny}}
		} else {
			for _, t := range s.types {
				r := rankExact
				if t.Kind() == reflect.Interface {
					r = rankIface
				} else if s.set {
					r = rankMember
				}
				opts = append(opts, match{typ: t, rank: r})
			}
		}
		next := make([][]match, 0, len(out)*len(opts))
		for _, prefix := range out {
			for _, m := range opts {
				p := make([]match, len(prefix), len(prefix)+1)
				copy(p, prefix)
				next = append(next, append(p, m))
			}
		}
		out = next
	}
	return out
}

func patternString(p []match) string {
	parts := make([]string, len(p))
	for i, m := range p {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// patternKey identifies a pattern by type and rank, so an exact slot and a
// set member of the same type are distinct registrations.
func patternKey(p []match) string {
	parts := make([]string, len(p))
	for i, m := range p {
		parts[i] = fmt.Sprintf("%d:%s", m.rank, m)
	}
	return strings.Join(parts, ",")
}

func typesString(types []reflect.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		if t == noneType {
			parts[i] = "None"
		} else {
			parts[i] = t.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
