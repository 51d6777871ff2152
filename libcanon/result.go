package libcanon

import (
	"strconv"
	"strings"

	"github.com/fine-structures/canon/canon"
)

// Result is the outcome of one DiscreteRefiner search.  It is not modified after it is returned.
type Result struct {
	group     *PermutationGroup
	first     canon.Permutation
	best      canon.Permutation
	firstCert []int
	bestCert  []int
	canonical bool
	leaves    int
	complete  bool
}

// AutomorphismGroup returns a copy of the automorphism group found, with the identity as its base.
func (res *Result) AutomorphismGroup() *PermutationGroup {
	return res.group.Clone()
}

// GroupOrder returns the order of the automorphism group.
func (res *Result) GroupOrder() int64 {
	return res.group.Order()
}

// AutomorphismPartition returns the orbits of the automorphism group: each cell holds vertices that are
// equivalent under some automorphism.  Cells are ordered by least element.
func (res *Result) AutomorphismPartition() *canon.Partition {
	return res.group.OrbitPartition()
}

// IsCanonical reports whether the identity labeling is as good as the best labeling found,
// i.e. whether the graph's vertex order is already canonical.
func (res *Result) IsCanonical() bool {
	return res.canonical
}

// FirstIsIdentity reports whether the first discrete leaf reached was the identity labeling.
func (res *Result) FirstIsIdentity() bool {
	return res.first.IsIdentity()
}

// Best returns the canonical labeling: position i of the canonical form holds vertex Best()[i].
func (res *Result) Best() canon.Permutation {
	return res.best.Clone()
}

// First returns the labeling of the first discrete leaf reached.
func (res *Result) First() canon.Permutation {
	return res.first.Clone()
}

// Certificate returns the connectivity values of all pairs i < j under the best labeling.
// Two graphs refined with the same options are isomorphic iff their certificates and colourings agree.
func (res *Result) Certificate() []int {
	cert := make([]int, len(res.bestCert))
	copy(cert, res.bestCert)
	return cert
}

// HalfMatrixString is the certificate of the best labeling as a string of connectivity values.
func (res *Result) HalfMatrixString() string {
	return halfMatrixString(res.bestCert)
}

// FirstHalfMatrixString is the certificate of the first leaf's labeling as a string of connectivity values.
func (res *Result) FirstHalfMatrixString() string {
	return halfMatrixString(res.firstCert)
}

// LeavesVisited returns how many discrete leaves the search reached.
func (res *Result) LeavesVisited() int {
	return res.leaves
}

// Complete is false if the search was cut short by RefinerOpts.MaxLeaves, in which case the group
// may be a proper subgroup of the automorphism group and Best() may not be canonical.
func (res *Result) Complete() bool {
	return res.complete
}

// halfMatrixString writes one digit per value, or comma separated values once any value needs more than one digit.
func halfMatrixString(cert []int) string {
	sep := false
	for _, c := range cert {
		if c > 9 {
			sep = true
			break
		}
	}

	var b strings.Builder
	b.Grow(len(cert))
	for i, c := range cert {
		if sep && i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}
