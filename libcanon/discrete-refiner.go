package libcanon

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// RefinerOpts configures a DiscreteRefiner.
type RefinerOpts struct {
	MaxLeaves int // if > 0, the search stops after this many discrete leaves and the Result is incomplete
}

// DiscreteRefiner finds the automorphism group and a canonical labeling of a Refinable by
// branch-and-bound search over the tree of individualize-and-refine partitions.
//
// A DiscreteRefiner holds no search state, so one instance can be shared across goroutines
// and molecules; each call returns its own Result.
type DiscreteRefiner struct {
	opts RefinerOpts
}

func NewDiscreteRefiner(opts RefinerOpts) *DiscreteRefiner {
	return &DiscreteRefiner{
		opts: opts,
	}
}

// Refine searches g starting from its initial partition.
func (dr *DiscreteRefiner) Refine(g canon.Refinable) (*Result, error) {
	if g == nil {
		return nil, canon.ErrNilGraph
	}
	return dr.refine(g, g.InitialPartition(), nil)
}

// RefineFrom searches g starting from the given partition instead of g's initial partition.
func (dr *DiscreteRefiner) RefineFrom(g canon.Refinable, start *canon.Partition) (*Result, error) {
	if g == nil {
		return nil, canon.ErrNilGraph
	}
	return dr.refine(g, start, nil)
}

// RefineWithGroup searches g seeded with already known automorphisms of g, which are used for pruning from the start.
func (dr *DiscreteRefiner) RefineWithGroup(g canon.Refinable, group *PermutationGroup) (*Result, error) {
	if g == nil {
		return nil, canon.ErrNilGraph
	}
	return dr.refine(g, g.InitialPartition(), group)
}

func (dr *DiscreteRefiner) refine(g canon.Refinable, start *canon.Partition, group *PermutationGroup) (*Result, error) {
	N := g.VertexCount()

	if start.NumElements() != N {
		return nil, errors.Wrapf(canon.ErrSizeMismatch, "partition has %d elements, graph has %d vertices", start.NumElements(), N)
	}
	if err := start.Validate(); err != nil {
		return nil, err
	}

	ctx := &searchContext{
		g:         g,
		n:         N,
		eq:        NewEquitableRefiner(g),
		maxLeaves: dr.opts.MaxLeaves,
	}
	if group != nil {
		if group.Size() != N {
			return nil, errors.Wrapf(canon.ErrSizeMismatch, "group size %d, graph has %d vertices", group.Size(), N)
		}
		ctx.group = group.Clone()
	} else {
		ctx.group = NewPermutationGroup(N)
	}
	if ctx.group.Order() > 1 {
		ctx.version = 1
	}

	if err := ctx.search(start, nil); err != nil {
		return nil, err
	}
	ctx.group.ChangeBase(canon.Identity(N))

	res := &Result{
		group:     ctx.group,
		first:     ctx.first,
		best:      ctx.best,
		firstCert: ctx.firstCert,
		bestCert:  ctx.bestCert,
		leaves:    ctx.leaves,
		complete:  !ctx.stopped,
	}
	res.canonical = keepsCells(start, ctx.best) && compareCertificates(certificate(g, canon.Identity(N)), ctx.bestCert) == 0

	klog.V(2).Infof("refined %d vertices: group order %d, %d leaves", N, res.group.Order(), res.leaves)
	return res, nil
}

// searchContext is the mutable state of one search, never shared between calls.
type searchContext struct {
	g         canon.Refinable
	n         int
	eq        *EquitableRefiner
	group     *PermutationGroup
	first     canon.Permutation
	best      canon.Permutation
	firstCert []int
	bestCert  []int
	leaves    int
	maxLeaves int
	stopped   bool
	version   int // incremented each time the group grows
}

// search refines P and then either records the leaf or branches on each vertex of the first non-singleton cell,
// skipping vertices in the same orbit as an explored one under the automorphisms that fix path.
func (ctx *searchContext) search(P *canon.Partition, path []int) error {
	P = ctx.eq.Refine(P)

	c := P.IndexOfFirstNonDiscreteCell()
	if c < 0 {
		return ctx.visitLeaf(P)
	}

	candidates := treeset.NewWithIntComparator()
	for _, v := range P.Cells()[c] {
		candidates.Add(v)
	}

	level := len(path)
	explored := make([]int, 0, candidates.Size())

	var orbits *unionFind
	version := 0

	for !candidates.Empty() && !ctx.stopped {
		v := candidates.Values()[0].(int)
		candidates.Remove(v)

		child, err := P.SplitBefore(c, v)
		if err != nil {
			return err
		}
		if err = ctx.search(child, append(path[:level:level], v)); err != nil {
			return err
		}
		explored = append(explored, v)

		if ctx.version == 0 {
			continue
		}
		if version != ctx.version {
			ctx.group.ChangeBase(ctx.baseFor(path))
			orbits = ctx.group.stabilizerOrbits(level)
			version = ctx.version
		}
		for _, item := range candidates.Values() {
			u := item.(int)
			for _, w := range explored {
				if orbits.find(u) == orbits.find(w) {
					candidates.Remove(u)
					break
				}
			}
		}
	}
	return nil
}

// baseFor returns a base that starts with path, followed by the remaining points in ascending order.
func (ctx *searchContext) baseFor(path []int) canon.Permutation {
	base := make(canon.Permutation, 0, ctx.n)
	onPath := make([]bool, ctx.n)
	for _, v := range path {
		base = append(base, v)
		onPath[v] = true
	}
	for v := 0; v < ctx.n; v++ {
		if !onPath[v] {
			base = append(base, v)
		}
	}
	return base
}

func (ctx *searchContext) visitLeaf(P *canon.Partition) error {
	p, err := P.ToPermutation()
	if err != nil {
		return err
	}

	ctx.leaves++
	if ctx.maxLeaves > 0 && ctx.leaves >= ctx.maxLeaves {
		ctx.stopped = true
	}

	cert := certificate(ctx.g, p)
	if ctx.first == nil {
		ctx.first, ctx.firstCert = p, cert
		ctx.best, ctx.bestCert = p, cert
		return nil
	}

	if compareCertificates(cert, ctx.firstCert) == 0 {
		ctx.enterAutomorphism(ctx.first, p)
		return nil
	}

	switch diff := compareCertificates(cert, ctx.bestCert); {
	case diff == 0:
		ctx.enterAutomorphism(ctx.best, p)
	case diff > 0:
		ctx.best, ctx.bestCert = p, cert
	}
	return nil
}

// enterAutomorphism adds the map taking leaf labeling from to leaf labeling to, which preserves connectivity
// since both labelings have the same certificate.
func (ctx *searchContext) enterAutomorphism(from, to canon.Permutation) {
	gamma := mul(from.Invert(), to)
	if gamma.IsIdentity() || ctx.group.Test(gamma) == ctx.n {
		return
	}
	klog.V(3).Infof("automorphism %s", gamma.ToCycleString())
	ctx.group.Enter(gamma)
	ctx.version++
}

// keepsCells reports whether every vertex i lies in the same cell of P as p[i].
// A labeling that moves a vertex to another cell reorders the colours and so is not the identity's.
func keepsCells(P *canon.Partition, p canon.Permutation) bool {
	cellOf := make([]int, len(p))
	for c, cell := range P.Cells() {
		for _, v := range cell {
			cellOf[v] = c
		}
	}
	for i, v := range p {
		if cellOf[i] != cellOf[v] {
			return false
		}
	}
	return true
}

// certificate lists Connectivity(p[i], p[j]) for all i < j, row by row.
func certificate(g canon.Refinable, p canon.Permutation) []int {
	N := len(p)
	cert := make([]int, 0, N*(N-1)/2)
	for i := 0; i < N; i++ {
		for j := i + 1; j < N; j++ {
			cert = append(cert, g.Connectivity(p[i], p[j]))
		}
	}
	return cert
}

// compareCertificates orders certificates of equal length lexicographically.
func compareCertificates(a, b []int) int {
	for i, ai := range a {
		if d := ai - b[i]; d != 0 {
			return d
		}
	}
	return 0
}
