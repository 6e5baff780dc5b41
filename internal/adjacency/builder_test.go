package adjacency

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jurisdiction-cli/internal/geometry"
	"github.com/sells-group/jurisdiction-cli/internal/geometry/geomtest"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

func juris(names ...string) []jurisdiction.Jurisdiction {
	out := make([]jurisdiction.Jurisdiction, len(names))
	for i, n := range names {
		out[i] = jurisdiction.Jurisdiction{Name: n, Geometry: geometry.Handle(n)}
	}
	return out
}

func fakeWith(names ...string) *geomtest.Provider {
	p := geomtest.New()
	for _, n := range names {
		p.WithShape(geometry.Handle(n), geomtest.Shape{})
	}
	return p
}

func TestBuild_CanonicalSortedPairs(t *testing.T) {
	p := fakeWith("Texas", "Oklahoma", "Arkansas", "Maine").
		WithBorder("Texas", "Oklahoma", 1100).
		WithBorder("Arkansas", "Texas", 0).
		WithBorder("Oklahoma", "Arkansas", 300)

	res, err := NewBuilder(p).Build(context.Background(), juris("Texas", "Oklahoma", "Arkansas", "Maine"))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Evaluated)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, []jurisdiction.BorderPair{
		{A: "Arkansas", B: "Oklahoma"},
		{A: "Arkansas", B: "Texas"},
		{A: "Oklahoma", B: "Texas"},
	}, res.Pairs)
}

func TestBuild_NoDuplicatePairs(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F"}
	p := fakeWith(names...)
	for i := range names {
		for k := range names {
			if i != k {
				p.WithBorder(geometry.Handle(names[i]), geometry.Handle(names[k]), 10)
			}
		}
	}

	res, err := NewBuilder(p, WithConcurrency(3)).Build(context.Background(), juris(names...))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, pair := range res.Pairs {
		assert.Less(t, pair.A, pair.B)
		rev := pair.B + "\x00" + pair.A
		assert.False(t, seen[pair.Key()] || seen[rev], "duplicate pair %v", pair)
		seen[pair.Key()] = true
	}
	assert.Len(t, res.Pairs, 15)
}

func TestBuild_IdenticalGeometryNeverPairs(t *testing.T) {
	// Two records pointing at the same shape intersect but are fully
	// overlapping, so they do not border.
	js := []jurisdiction.Jurisdiction{
		{Name: "Twin A", Geometry: "shared"},
		{Name: "Twin B", Geometry: "shared"},
	}
	p := fakeWith("shared")

	hit, err := p.TouchesOrIntersects(context.Background(), "shared", "shared")
	require.NoError(t, err)
	assert.True(t, hit)

	res, err := NewBuilder(p).Build(context.Background(), js)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	for _, pair := range res.Pairs {
		assert.NotEqual(t, pair.A, pair.B)
	}
}

func TestBuild_ContainmentExcluded(t *testing.T) {
	p := fakeWith("Outer", "Inner", "Side").
		WithContainment("Outer", "Inner").
		WithBorder("Outer", "Side", 40)

	res, err := NewBuilder(p).Build(context.Background(), juris("Outer", "Inner", "Side"))
	require.NoError(t, err)
	assert.Equal(t, []jurisdiction.BorderPair{{A: "Outer", B: "Side"}}, res.Pairs)
}

func TestBuild_IdenticalDistinctHandlesExcluded(t *testing.T) {
	p := fakeWith("A", "B").WithIdentical("A", "B")

	res, err := NewBuilder(p).Build(context.Background(), juris("A", "B"))
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
}

func TestBuild_PredicateFailureSkipsPair(t *testing.T) {
	p := fakeWith("A", "B", "C").
		WithBorder("A", "B", 10).
		WithBorder("B", "C", 10).
		WithFailure("B", "C", fmt.Errorf("TopologyException"))

	res, err := NewBuilder(p).Build(context.Background(), juris("A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []jurisdiction.BorderPair{{A: "A", B: "B"}}, res.Pairs)
}

func TestBuild_EmptyAndSingle(t *testing.T) {
	p := fakeWith("Solo")

	res, err := NewBuilder(p).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)

	res, err = NewBuilder(p).Build(context.Background(), juris("Solo"))
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Equal(t, 0, res.Evaluated)
}

func TestBuild_CancelledContext(t *testing.T) {
	p := fakeWith("A", "B").WithBorder("A", "B", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(p).Build(ctx, juris("A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_DeterministicAcrossConcurrency(t *testing.T) {
	names := []string{"N1", "N2", "N3", "N4", "N5", "N6", "N7", "N8"}
	p := fakeWith(names...)
	for i := 0; i+1 < len(names); i++ {
		p.WithBorder(geometry.Handle(names[i]), geometry.Handle(names[i+1]), float64(i))
	}

	serial, err := NewBuilder(p, WithConcurrency(1)).Build(context.Background(), juris(names...))
	require.NoError(t, err)
	parallel, err := NewBuilder(p, WithConcurrency(8)).Build(context.Background(), juris(names...))
	require.NoError(t, err)

	assert.Equal(t, serial.Pairs, parallel.Pairs)
}

func TestNeighbors(t *testing.T) {
	got := Neighbors([]jurisdiction.BorderPair{
		{A: "Oklahoma", B: "Texas"},
		{A: "Arkansas", B: "Texas"},
		{A: "Arkansas", B: "Oklahoma"},
	})

	assert.Equal(t, []string{"Arkansas", "Oklahoma"}, got["Texas"])
	assert.Equal(t, []string{"Oklahoma", "Texas"}, got["Arkansas"])
	assert.Equal(t, []string{"Arkansas", "Texas"}, got["Oklahoma"])
}
