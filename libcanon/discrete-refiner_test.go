package libcanon

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/fine-structures/canon/canon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeGraph(t *testing.T) *Graph {
	t.Helper()
	var edges [][2]int
	for v := 0; v < 8; v++ {
		for bit := 1; bit < 8; bit <<= 1 {
			if u := v ^ bit; u > v {
				edges = append(edges, [2]int{v, u})
			}
		}
	}
	g, err := NewGraphFromEdges(8, edges...)
	require.NoError(t, err)
	return g
}

func petersenGraph(t *testing.T) *Graph {
	t.Helper()
	var edges [][2]int
	for i := 0; i < 5; i++ {
		edges = append(edges,
			[2]int{i, (i + 1) % 5},
			[2]int{i, i + 5},
			[2]int{5 + i, 5 + (i+2)%5},
		)
	}
	g, err := NewGraphFromEdges(10, edges...)
	require.NoError(t, err)
	return g
}

// rookGraph returns the n×n rook's graph: cells of an n×n board, adjacent when they share a row or column.
func rookGraph(t *testing.T, n int) *Graph {
	t.Helper()
	var edges [][2]int
	for u := 0; u < n*n; u++ {
		for v := u + 1; v < n*n; v++ {
			if u/n == v/n || u%n == v%n {
				edges = append(edges, [2]int{u, v})
			}
		}
	}
	g, err := NewGraphFromEdges(n*n, edges...)
	require.NoError(t, err)
	return g
}

// requireBestInvariant checks that moving the best labeling by any automorphism leaves its certificate unchanged.
func requireBestInvariant(t *testing.T, g *Graph, res *Result) {
	t.Helper()
	best := res.Best()
	for _, gen := range res.AutomorphismGroup().Generators() {
		require.Equal(t, res.Certificate(), certificate(g, mul(best, gen)), "generator %v", gen)
	}
}

func refine(t *testing.T, g canon.Refinable) *Result {
	t.Helper()
	res, err := NewDiscreteRefiner(RefinerOpts{}).Refine(g)
	require.NoError(t, err)
	return res
}

func TestRefineFixtures(t *testing.T) {
	triangle, err := NewGraphFromEdges(3, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 0})
	require.NoError(t, err)

	for _, test := range []struct {
		name  string
		g     *Graph
		aut   string
		order int64
	}{
		{"single", NewGraph(1), "0", 1},
		{"path3", pathGraph(t, 3), "0,2|1", 2},
		{"path5", pathGraph(t, 5), "0,4|1,3|2", 2},
		{"triangle", triangle, "0,1,2", 6},
		{"hexagon", cycleGraph(t, 6), "0,1,2,3,4,5", 12},
		{"cube", cubeGraph(t), "0,1,2,3,4,5,6,7", 48},
		{"petersen", petersenGraph(t), "0,1,2,3,4,5,6,7,8,9", 120},
		{"rook4x4", rookGraph(t, 4), "0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15", 1152},
		{"edgeless", NewGraph(4), "0,1,2,3", 24},
	} {
		t.Run(test.name, func(t *testing.T) {
			res := refine(t, test.g)
			assert.Equal(t, test.aut, res.AutomorphismPartition().String())
			assert.Equal(t, test.order, res.GroupOrder())
			assert.True(t, res.Complete())

			// every automorphism found preserves connectivity
			for _, p := range res.AutomorphismGroup().Generators() {
				assert.True(t, isAutomorphism(test.g, p), "%v", p)
			}

			// the certificate is that of the best labeling
			assert.Equal(t, certificate(test.g, res.Best()), res.Certificate())
			assert.Equal(t, halfMatrixString(res.Certificate()), res.HalfMatrixString())

			requireBestInvariant(t, test.g, res)
		})
	}
}

func TestRefineEmptyGraph(t *testing.T) {
	res := refine(t, NewGraph(0))
	assert.EqualValues(t, 1, res.GroupOrder())
	assert.Equal(t, "", res.AutomorphismPartition().String())
	assert.True(t, res.IsCanonical())
}

func TestRefineNil(t *testing.T) {
	_, err := NewDiscreteRefiner(RefinerOpts{}).Refine(nil)
	assert.Error(t, err)
}

func TestRefineFrom(t *testing.T) {
	dr := NewDiscreteRefiner(RefinerOpts{})
	g := pathGraph(t, 3)

	res, err := dr.RefineFrom(g, canon.MustParsePartition("1|0,2"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.GroupOrder())

	res, err = dr.RefineFrom(g, canon.MustParsePartition("0|1,2"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.GroupOrder())
	assert.Equal(t, "0|1|2", res.AutomorphismPartition().String())

	_, err = dr.RefineFrom(g, canon.MustParsePartition("0|1"))
	assert.Error(t, err)
}

func TestRefineWithGroup(t *testing.T) {
	g := cubeGraph(t)
	seed := mustGroup(t, 8, canon.Permutation{1, 3, 5, 7, 0, 2, 4, 6})

	res, err := NewDiscreteRefiner(RefinerOpts{}).RefineWithGroup(g, seed)
	require.NoError(t, err)
	assert.EqualValues(t, 48, res.GroupOrder())
	assert.EqualValues(t, 6, seed.Order())

	_, err = NewDiscreteRefiner(RefinerOpts{}).RefineWithGroup(g, NewPermutationGroup(3))
	assert.Error(t, err)
}

func TestRefineMaxLeaves(t *testing.T) {
	res, err := NewDiscreteRefiner(RefinerOpts{MaxLeaves: 1}).Refine(cubeGraph(t))
	require.NoError(t, err)
	assert.False(t, res.Complete())
	assert.Equal(t, 1, res.LeavesVisited())
	assert.EqualValues(t, 1, res.GroupOrder())
}

func TestRefineFirstLeaf(t *testing.T) {
	res := refine(t, pathGraph(t, 3))

	// individualizing 0 first gives the labeling 0, 2, 1
	assert.Equal(t, canon.Permutation{0, 2, 1}, res.First())
	assert.False(t, res.FirstIsIdentity())
	assert.Equal(t, "011", res.FirstHalfMatrixString())
	assert.False(t, res.IsCanonical())

	// a graph relabeled by its best labeling is canonical as given
	g := relabelGraph(pathGraph(t, 3), res.Best())
	assert.True(t, refine(t, g).IsCanonical())
}

func TestRefineCanonicalKeepsColours(t *testing.T) {
	// a path whose end colours are out of order: the certificate of the identity is best, the colouring is not
	g := pathGraph(t, 3)
	require.NoError(t, g.SetColor(0, 8))
	require.NoError(t, g.SetColor(1, 6))
	require.NoError(t, g.SetColor(2, 6))

	res := refine(t, g)
	assert.Equal(t, canon.Permutation{2, 1, 0}, res.Best())
	assert.Equal(t, certificate(g, canon.Identity(3)), res.Certificate())
	assert.False(t, res.IsCanonical())

	h := relabelGraph(g, res.Best())
	resH := refine(t, h)
	assert.True(t, resH.IsCanonical())
	assert.True(t, resH.Best().IsIdentity())

	// a starting partition counts the same way as colours
	res, err := NewDiscreteRefiner(RefinerOpts{}).RefineFrom(pathGraph(t, 3), canon.MustParsePartition("1,2|0"))
	require.NoError(t, err)
	assert.False(t, res.IsCanonical())
}

func TestHalfMatrixStringLabels(t *testing.T) {
	assert.Equal(t, "0110", halfMatrixString([]int{0, 1, 1, 0}))
	assert.Equal(t, "1,11", halfMatrixString([]int{1, 11}))
	assert.Equal(t, "11,1", halfMatrixString([]int{11, 1}))
	assert.Equal(t, "", halfMatrixString(nil))

	g := pathGraph(t, 3)
	require.NoError(t, g.AddEdge(1, 2, 11))
	res := refine(t, g)
	assert.Equal(t, halfMatrixString(res.Certificate()), res.HalfMatrixString())
	assert.Equal(t, 2, strings.Count(res.HalfMatrixString(), ","))
	assert.Contains(t, res.HalfMatrixString(), "11")
}

// TestRefineAgainstBruteForce checks the group order and orbits of small random graphs
// against every permutation of their vertices.
func TestRefineAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 60; trial++ {
		n := 1 + rng.Intn(7)
		g := randomGraph(rng, n, 3)

		var autos []canon.Permutation
		forEachPermutation(n, func(p canon.Permutation) {
			if isAutomorphism(g, p) {
				autos = append(autos, p.Clone())
			}
		})

		res := refine(t, g)
		require.EqualValues(t, len(autos), res.GroupOrder(), "trial %d", trial)

		orbits := newUnionFind(n)
		for _, p := range autos {
			for i, pi := range p {
				orbits.union(i, pi)
			}
		}
		require.Equal(t, orbits.partition().String(), res.AutomorphismPartition().String(), "trial %d", trial)
	}
}

// TestRefineLabelInvariant checks that relabeled copies of a graph have the same certificate.
func TestRefineLabelInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 40; trial++ {
		n := 2 + rng.Intn(9)
		g := randomGraph(rng, n, 2)
		res := refine(t, g)

		for k := 0; k < 3; k++ {
			p := canon.Permutation(rng.Perm(n))
			h := relabelGraph(g, p)
			resH := refine(t, h)
			require.Equal(t, res.HalfMatrixString(), resH.HalfMatrixString(), "trial %d relabel %v", trial, p)
			require.Equal(t, res.GroupOrder(), resH.GroupOrder())
			requireBestInvariant(t, h, resH)
		}
	}
}

// randomGraph returns a graph on n vertices with random edges and up to numColors vertex colours.
func randomGraph(rng *rand.Rand, n, numColors int) *Graph {
	g := NewGraph(n)
	for i := 0; i < n; i++ {
		if numColors > 1 {
			g.SetColor(i, rng.Intn(numColors))
		}
		for j := i + 1; j < n; j++ {
			if rng.Intn(2) == 0 {
				g.AddEdge(i, j, 1)
			}
		}
	}
	return g
}

// relabelGraph returns h where vertex i of h is vertex p[i] of g.
func relabelGraph(g *Graph, p canon.Permutation) *Graph {
	h := NewGraph(g.n)
	for i := 0; i < g.n; i++ {
		if g.colors != nil {
			h.SetColor(i, g.colors[p[i]])
		}
		for j := i + 1; j < g.n; j++ {
			if label := g.Connectivity(p[i], p[j]); label != 0 {
				h.AddEdge(i, j, label)
			}
		}
	}
	return h
}

func isAutomorphism(g *Graph, p canon.Permutation) bool {
	for i := 0; i < g.n; i++ {
		if g.colors != nil && g.colors[i] != g.colors[p[i]] {
			return false
		}
		for j := i + 1; j < g.n; j++ {
			if g.Connectivity(i, j) != g.Connectivity(p[i], p[j]) {
				return false
			}
		}
	}
	return true
}

// forEachPermutation visits every permutation of n points (Heap's algorithm).
func forEachPermutation(n int, visit func(p canon.Permutation)) {
	p := canon.Identity(n)
	c := make([]int, n)
	visit(p)
	for i := 0; i < n; {
		if c[i] < i {
			if i%2 == 0 {
				p[0], p[i] = p[i], p[0]
			} else {
				p[c[i]], p[i] = p[i], p[c[i]]
			}
			visit(p)
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
}
