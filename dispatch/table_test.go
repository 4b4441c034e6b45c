package dispatch

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape interface{ sides() int }

type square struct{}
type triangle struct{}
type circle struct{}

func (square) sides() int   { return 4 }
func (triangle) sides() int { return 3 }

type handler func() string

func named(name string) handler {
	return func() string { return name }
}

func build(t *testing.T, register func(b *Builder[handler]), opts ...Option) *Table[handler] {
	t.Helper()
	b := NewBuilder[handler]("test", 2, opts...)
	register(b)
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func resolveName(t *testing.T, table *Table[handler], args ...interface{}) string {
	t.Helper()
	h, _, err := table.Resolve(args...)
	require.NoError(t, err)
	return h()
}

func TestResolveSpecificity(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("any-any", named("any-any"), Any, Any)
		b.Register("square-any", named("square-any"), Type[square](), Any)
		b.Register("shape-none", named("shape-none"), Type[shape](), None)
		b.Register("set-none", named("set-none"), OneOf(Type[square](), Type[circle]()), None)
		b.Register("square-none", named("square-none"), Type[square](), None)
	})

	tests := []struct {
		name     string
		args     []interface{}
		expected string
	}{
		{"exact beats set and interface", []interface{}{square{}, nil}, "square-none"},
		{"set member beats wildcard", []interface{}{circle{}, nil}, "set-none"},
		{"interface beats wildcard", []interface{}{triangle{}, nil}, "shape-none"},
		{"fewer wildcards first", []interface{}{square{}, triangle{}}, "square-any"},
		{"wildcard fallback", []interface{}{circle{}, circle{}}, "any-any"},
		{"wildcard matches none", []interface{}{nil, nil}, "any-any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveName(t, table, tt.args...))
		})
	}
}

func TestResolveLeftToRight(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("exact-iface", named("exact-iface"), Type[square](), Type[shape]())
		b.Register("iface-exact", named("iface-exact"), Type[shape](), Type[square]())
	})
	assert.Equal(t, "exact-iface", resolveName(t, table, square{}, square{}))
	assert.Equal(t, "iface-exact", resolveName(t, table, triangle{}, square{}))
}

func TestResolveNoMatch(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("square-none", named("square-none"), Type[square](), None)
	})
	_, _, err := table.Resolve(circle{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatch))
	assert.True(t, IsDispatchError(err))
	assert.Contains(t, err.Error(), "dispatch.circle")

	_, _, err = table.Resolve(square{})
	assert.True(t, errors.Is(err, ErrArity))
}

func TestResolveAmbiguous(t *testing.T) {
	type both struct{ square }
	type other interface{ sides() int }
	table := build(t, func(b *Builder[handler]) {
		b.Register("shape", named("shape"), Type[shape](), None)
		b.Register("other", named("other"), Type[other](), None)
	})
	_, _, err := table.Resolve(both{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguous))
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Len(t, de.Candidates, 2)
}

func TestRegisterErrors(t *testing.T) {
	b := NewBuilder[handler]("test", 2)
	b.Register("one", named("one"), Type[square]())
	_, err := b.Build()
	assert.True(t, errors.Is(err, ErrArity))

	b = NewBuilder[handler]("test", 2)
	b.Register("one", named("one"), Type[square](), None)
	b.Register("two", named("two"), Type[square](), None)
	_, err = b.Build()
	assert.True(t, errors.Is(err, ErrDuplicate))

	b = NewBuilder[handler]("test", 2)
	b.Register("one", named("one"), OneOf(Type[square](), Type[triangle]()), None)
	b.Register("two", named("two"), OneOf(Type[circle](), Type[square]()), None)
	_, err = b.Build()
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestExactAndSetMemberCoexist(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("set-exact", named("set-exact"), OneOf(Type[square](), Type[circle]()), Type[triangle]())
		b.Register("exact-set", named("exact-set"), Type[square](), OneOf(Type[triangle](), Type[circle]()))
		b.Register("set-none", named("set-none"), OneOf(Type[square](), Type[circle]()), None)
		b.Register("square-none", named("square-none"), Type[square](), None)
	})
	assert.Len(t, table.Entries(), 7)
	// Ranks are compared left to right.
	assert.Equal(t, "exact-set", resolveName(t, table, square{}, triangle{}))
	assert.Equal(t, "set-exact", resolveName(t, table, circle{}, triangle{}))
	assert.Equal(t, "square-none", resolveName(t, table, square{}, nil))
	assert.Equal(t, "set-none", resolveName(t, table, circle{}, nil))
}

func TestOneOfExpansion(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("grid", named("grid"),
			OneOf(Type[square](), Type[circle]()),
			OneOf(Type[triangle](), None))
	})
	entries := table.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, "grid", e.Name)
	}
	assert.Equal(t, "(dispatch.square, dispatch.triangle)", entries[0].Pattern)
	assert.Equal(t, "(dispatch.circle, None)", entries[3].Pattern)
	assert.Equal(t, "grid", resolveName(t, table, circle{}, triangle{}))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	again, err := NewMetrics(reg)
	require.NoError(t, err)

	table := build(t, func(b *Builder[handler]) {
		b.Register("square-none", named("square-none"), Type[square](), None)
	}, WithMetrics(m))
	_, _, _ = table.Resolve(square{}, nil)
	_, _, _ = table.Resolve(square{}, nil)
	_, _, _ = table.Resolve(circle{}, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(again.Resolutions("test", outcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions("test", outcomeMiss)))
}

func TestConcurrentResolve(t *testing.T) {
	table := build(t, func(b *Builder[handler]) {
		b.Register("square-none", named("square-none"), Type[square](), None)
		b.Register("shape-any", named("shape-any"), Type[shape](), Any)
	})
	var wg sync.WaitGroup
	results := make([]string, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, _, err := table.Resolve(square{}, nil)
			if err == nil {
				results[i] = h()
			}
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, "square-none", r)
	}
}
