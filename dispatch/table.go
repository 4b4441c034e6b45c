// Package dispatch implements multiple dispatch on the runtime types of a
// fixed number of arguments.
//
// A Builder collects registrations; Build returns an immutable Table. The
// table is the only shared state and is safe for concurrent Resolve calls.
//
// When several entries match, the most specific one wins: fewer wildcard
// slots first, then slot by slot from the left, exact types before members
// of a OneOf set, set members before interface types.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
)

// Entry describes one registered handler.
type Entry struct {
	Name    string
	Pattern string
}

type entry[H any] struct {
	name    string
	handler H
	pattern []match
	anys    int
}

func (e *entry[H]) info() Entry {
	return Entry{Name: e.name, Pattern: patternString(e.pattern)}
}

func (e *entry[H]) accepts(types []reflect.Type) bool {
	for i, m := range e.pattern {
		if !m.accepts(types[i]) {
			return false
		}
	}
	return true
}

// compare returns -1 when a is more specific than b, 1 when less, 0 on a tie.
func compare[H any](a, b *entry[H]) int {
	if a.anys != b.anys {
		if a.anys < b.anys {
			return -1
		}
		return 1
	}
	for i := range a.pattern {
		ra, rb := a.pattern[i].rank, b.pattern[i].rank
		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
	}
	return 0
}

type Option func(*options)

type options struct {
	metrics *Metrics
	logger  *slog.Logger
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Builder accumulates registrations for a table. The first registration
// error is kept and reported by Build.
type Builder[H any] struct {
	name    string
	arity   int
	entries []*entry[H]
	seen    map[string]string
	opts    options
	err     error
}

func NewBuilder[H any](name string, arity int, opts ...Option) *Builder[H] {
	b := &Builder[H]{
		name:  name,
		arity: arity,
		seen:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Register adds a handler for every type combination the slots describe.
func (b *Builder[H]) Register(name string, handler H, slots ...Slot) {
	if b.err != nil {
		return
	}
	if len(slots) != b.arity {
		b.err = fmt.Errorf("%s: register %s with %d slots, want %d: %w",
			b.name, name, len(slots), b.arity, ErrArity)
		return
	}
	for _, pattern := range expand(slots) {
		key := patternKey(pattern)
		if prev, ok := b.seen[key]; ok {
			b.err = fmt.Errorf("%s: register %s%s already taken by %s: %w",
				b.name, name, patternString(pattern), prev, ErrDuplicate)
			return
		}
		b.seen[key] = name
		anys := 0
		for _, m := range pattern {
			if m.rank == rankAny {
				anys++
			}
		}
		b.entries = append(b.entries, &entry[H]{
			name:    name,
			handler: handler,
			pattern: pattern,
			anys:    anys,
		})
	}
}

// Build freezes the registrations. The builder must not be used afterwards.
func (b *Builder[H]) Build() (*Table[H], error) {
	if b.err != nil {
		return nil, b.err
	}
	logger := b.opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	entries := make([]*entry[H], len(b.entries))
	copy(entries, b.entries)
	logger.Debug("dispatch table built", "table", b.name, "entries", len(entries))
	return &Table[H]{
		name:    b.name,
		arity:   b.arity,
		entries: entries,
		metrics: b.opts.metrics,
		logger:  logger,
	}, nil
}

// Table is an immutable dispatch table.
type Table[H any] struct {
	name    string
	arity   int
	entries []*entry[H]
	metrics *Metrics
	logger  *slog.Logger
}

func (t *Table[H]) Name() string {
	return t.name
}

func (t *Table[H]) Arity() int {
	return t.arity
}

func (t *Table[H]) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.info()
	}
	return out
}

// Resolve returns the most specific handler for the arguments' types.
func (t *Table[H]) Resolve(args ...interface{}) (H, Entry, error) {
	types := make([]reflect.Type, len(args))
	for i, arg := range args {
		types[i] = TypeOf(arg)
	}
	return t.ResolveTypes(types...)
}

func (t *Table[H]) ResolveTypes(types ...reflect.Type) (H, Entry, error) {
	var zero H
	if len(types) != t.arity {
		return zero, Entry{}, &Error{Table: t.name, Types: types, Err: ErrArity}
	}
	var best *entry[H]
	var tied []*entry[H]
	for _, e := range t.entries {
		if !e.accepts(types) {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		switch compare(e, best) {
		case -1:
			best = e
			tied = tied[:0]
		case 0:
			tied = append(tied, e)
		}
	}
	if best == nil {
		t.metrics.observe(t.name, outcomeMiss)
		return zero, Entry{}, &Error{Table: t.name, Types: types, Err: ErrNoMatch}
	}
	if len(tied) > 0 {
		t.metrics.observe(t.name, outcomeAmbiguous)
		candidates := []string{best.name + patternString(best.pattern)}
		for _, e := range tied {
			candidates = append(candidates, e.name+patternString(e.pattern))
		}
		return zero, Entry{}, &Error{Table: t.name, Types: types, Candidates: candidates, Err: ErrAmbiguous}
	}
	t.metrics.observe(t.name, outcomeHit)
	if t.logger.Enabled(context.Background(), slog.LevelDebug) {
		t.logger.Debug("dispatch resolved",
			"table", t.name, "types", typesString(types), "handler", best.name)
	}
	return best.handler, best.info(), nil
}
