package libcanon

import (
	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// PermutationGroup is a permutation group on {0..n-1} held as a Sims table.
//
// For base b and level i, the table holds at most one element per point x that fixes b[0..i-1]
// and maps b[i] to x.  Those elements are the coset representatives (left transversal) of the
// stabilizer of b[0..i] within the stabilizer of b[0..i-1], so every group element factors
// uniquely as u_0 ∘ u_1 ∘ ... ∘ u_{n-1}.
type PermutationGroup struct {
	size  int
	base  canon.Permutation
	table []canon.Permutation // size*size slots; table[level*size + point], nil if absent
}

// NewPermutationGroup returns the trivial group on n points with the identity as its base.
func NewPermutationGroup(n int) *PermutationGroup {
	return NewPermutationGroupFromBase(canon.Identity(n))
}

// NewPermutationGroupFromBase returns the trivial group on len(base) points using the given base ordering.
func NewPermutationGroupFromBase(base canon.Permutation) *PermutationGroup {
	N := len(base)
	G := &PermutationGroup{
		size:  N,
		base:  base.Clone(),
		table: make([]canon.Permutation, N*N),
	}
	id := canon.Identity(N)
	for i := 0; i < N; i++ {
		G.table[i*N+G.base[i]] = id
	}
	return G
}

// NewPermutationGroupFromGenerators returns the group generated by the given permutations.
func NewPermutationGroupFromGenerators(n int, generators []canon.Permutation) (*PermutationGroup, error) {
	G := NewPermutationGroup(n)
	for _, g := range generators {
		if err := G.EnterChecked(g); err != nil {
			return nil, err
		}
	}
	return G, nil
}

// mul returns a followed by b; the sizes within a group always agree.
func mul(a, b canon.Permutation) canon.Permutation {
	out := make(canon.Permutation, len(a))
	for i, ai := range a {
		out[i] = b[ai]
	}
	return out
}

// Size returns the number of points the group acts on.
func (G *PermutationGroup) Size() int {
	return G.size
}

// Base returns a copy of the current base.
func (G *PermutationGroup) Base() canon.Permutation {
	return G.base.Clone()
}

// Order returns the number of elements of the group: the product of the transversal sizes.
func (G *PermutationGroup) Order() int64 {
	N := G.size
	total := int64(1)
	for i := 0; i < N; i++ {
		count := int64(0)
		for _, h := range G.table[i*N : (i+1)*N] {
			if h != nil {
				count++
			}
		}
		total *= count
	}
	return total
}

// Get returns the element at the given level that maps base[level] to point, if there is one.
func (G *PermutationGroup) Get(level, point int) (canon.Permutation, bool) {
	if level < 0 || level >= G.size || point < 0 || point >= G.size {
		return nil, false
	}
	h := G.table[level*G.size+point]
	return h, h != nil
}

// LeftTransversal returns the coset representatives held at the given level.
func (G *PermutationGroup) LeftTransversal(level int) []canon.Permutation {
	N := G.size
	var reps []canon.Permutation
	for _, h := range G.table[level*N : (level+1)*N] {
		if h != nil {
			reps = append(reps, h.Clone())
		}
	}
	return reps
}

// Test sifts p through the table.
// Returns Size() if p is a member of this group, otherwise the level at which sifting failed.
func (G *PermutationGroup) Test(p canon.Permutation) int {
	N := G.size
	for i := 0; i < N; i++ {
		x := p[G.base[i]]
		h := G.table[i*N+x]
		if h == nil {
			return i
		}
		p = mul(p, h.Invert())
	}
	return N
}

// EnterChecked is Enter() for permutations from outside the group's bookkeeping.
func (G *PermutationGroup) EnterChecked(g canon.Permutation) error {
	if len(g) != G.size {
		return errors.Wrapf(canon.ErrSizeMismatch, "group size %d, permutation size %d", G.size, len(g))
	}
	if err := g.Validate(); err != nil {
		return err
	}
	G.Enter(g)
	return nil
}

// Enter extends the group to include g, closing the table under products with existing representatives.
func (G *PermutationGroup) Enter(g canon.Permutation) {
	N := G.size
	i := G.Test(g)
	if i == N {
		return
	}

	// Sift g down to level i so that it fixes base[0..i-1], then record it.
	for j := 0; j < i; j++ {
		h := G.table[j*N+g[G.base[j]]]
		g = mul(g, h.Invert())
	}
	G.table[i*N+g[G.base[i]]] = g.Clone()

	// The table is closed once x∘u is a member for every x at a level at or above u's level.
	// g is the newest entry, so check it on both sides.
	for j := 0; j < N; j++ {
		for a := 0; a < N; a++ {
			h := G.table[j*N+a]
			if h == nil {
				continue
			}
			if j <= i {
				G.Enter(mul(h, g))
			}
			if j >= i {
				G.Enter(mul(g, h))
			}
		}
	}
}

// ChangeBase rebuilds the table for the same group using newBase as the base.
func (G *PermutationGroup) ChangeBase(newBase canon.Permutation) {
	firstDiff, _ := G.base.FirstIndexOfDifference(newBase)
	if firstDiff < 0 {
		return
	}

	N := G.size
	H := NewPermutationGroupFromBase(newBase)

	// The levels past the shared prefix generate the stabilizer of that prefix.
	for j := firstDiff; j < N; j++ {
		for a := 0; a < N; a++ {
			if g := G.table[j*N+a]; g != nil {
				H.Enter(g)
			}
		}
	}

	// Levels within the shared prefix carry over as-is.
	for j := 0; j < firstDiff; j++ {
		copy(H.table[j*N:(j+1)*N], G.table[j*N:(j+1)*N])
	}

	G.base = H.base
	G.table = H.table
}

// Apply hands each group element to bt until it reports it is finished.
func (G *PermutationGroup) Apply(bt canon.Backtracker) {
	G.backtrack(0, canon.Identity(G.size), bt)
}

func (G *PermutationGroup) backtrack(level int, g canon.Permutation, bt canon.Backtracker) {
	if bt.IsFinished() {
		return
	}
	N := G.size
	if level == N {
		bt.ApplyTo(g)
		return
	}
	for _, h := range G.table[level*N : (level+1)*N] {
		if h != nil {
			G.backtrack(level+1, mul(h, g), bt)
			if bt.IsFinished() {
				return
			}
		}
	}
}

// BacktrackFunc adapts a func (and optional stop predicate) to a canon.Backtracker.
type BacktrackFunc struct {
	Visit func(p canon.Permutation)
	Done  func() bool
}

func (bt *BacktrackFunc) ApplyTo(p canon.Permutation) {
	bt.Visit(p)
}

func (bt *BacktrackFunc) IsFinished() bool {
	return bt.Done != nil && bt.Done()
}

// All returns every element of the group.  Only suitable for small groups.
func (G *PermutationGroup) All() []canon.Permutation {
	all := make([]canon.Permutation, 0, G.Order())
	G.Apply(&BacktrackFunc{
		Visit: func(p canon.Permutation) {
			all = append(all, p.Clone())
		},
	})
	return all
}

// Transversal returns representatives of the cosets of subgroup in G, so |G| = |subgroup| * len(transversal).
// It returns nil if subgroup acts on a different number of points.
func (G *PermutationGroup) Transversal(subgroup *PermutationGroup) []canon.Permutation {
	if subgroup == nil || subgroup.size != G.size {
		return nil
	}
	m := G.Order() / subgroup.Order()
	var reps []canon.Permutation

	G.Apply(&BacktrackFunc{
		Visit: func(p canon.Permutation) {
			for _, f := range reps {
				if subgroup.Test(mul(p, f.Invert())) == subgroup.size {
					return
				}
			}
			reps = append(reps, p.Clone())
		},
		Done: func() bool {
			return int64(len(reps)) >= m
		},
	})
	return reps
}

// Generators returns the non-identity elements of the table, which together generate the group.
func (G *PermutationGroup) Generators() []canon.Permutation {
	var gens []canon.Permutation
	for _, h := range G.table {
		if h != nil && !h.IsIdentity() {
			gens = append(gens, h.Clone())
		}
	}
	return gens
}

// OrbitPartition returns the orbits of the group on {0..n-1}, each orbit a cell, cells ordered by least element.
func (G *PermutationGroup) OrbitPartition() *canon.Partition {
	return G.stabilizerOrbits(0).partition()
}

// OrbitAt returns the orbit of base[level] under the stabilizer of base[0..level-1].
func (G *PermutationGroup) OrbitAt(level int) []int {
	N := G.size
	var orbit []int
	for x, h := range G.table[level*N : (level+1)*N] {
		if h != nil {
			orbit = append(orbit, x)
		}
	}
	return orbit
}

// stabilizerOrbits returns the orbits of the pointwise stabilizer of base[0..level-1].
func (G *PermutationGroup) stabilizerOrbits(level int) *unionFind {
	N := G.size
	uf := newUnionFind(N)
	for _, h := range G.table[level*N:] {
		if h == nil {
			continue
		}
		for i, hi := range h {
			uf.union(i, hi)
		}
	}
	return uf
}

func (G *PermutationGroup) Clone() *PermutationGroup {
	dup := &PermutationGroup{
		size:  G.size,
		base:  G.base.Clone(),
		table: make([]canon.Permutation, len(G.table)),
	}
	copy(dup.table, G.table)
	return dup
}

// unionFind groups points into orbits.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union keeps the smaller point as the root so roots are cell minimums.
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}

func (uf *unionFind) partition() *canon.Partition {
	N := len(uf.parent)
	cellOf := make(map[int]int, N)
	var cells [][]int
	for i := 0; i < N; i++ {
		root := uf.find(i)
		idx, exists := cellOf[root]
		if !exists {
			idx = len(cells)
			cellOf[root] = idx
			cells = append(cells, nil)
		}
		cells[idx] = append(cells[idx], i)
	}
	return canon.NewPartitionFromCells(cells...)
}
