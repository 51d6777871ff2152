package libcanon

import (
	"testing"

	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGroup(t *testing.T, n int, gens ...canon.Permutation) *PermutationGroup {
	t.Helper()
	G, err := NewPermutationGroupFromGenerators(n, gens)
	require.NoError(t, err)
	return G
}

func symmetricGroup(t *testing.T, n int) *PermutationGroup {
	swap := canon.Identity(n)
	swap[0], swap[1] = 1, 0
	cycle := make(canon.Permutation, n)
	for i := range cycle {
		cycle[i] = (i + 1) % n
	}
	return mustGroup(t, n, swap, cycle)
}

func dihedralGroup(t *testing.T, n int) *PermutationGroup {
	rotate := make(canon.Permutation, n)
	flip := make(canon.Permutation, n)
	for i := 0; i < n; i++ {
		rotate[i] = (i + 1) % n
		flip[i] = (n - i) % n
	}
	return mustGroup(t, n, rotate, flip)
}

func TestGroupOrders(t *testing.T) {
	assert.EqualValues(t, 1, NewPermutationGroup(5).Order())
	assert.EqualValues(t, 1, NewPermutationGroup(0).Order())
	assert.EqualValues(t, 8, dihedralGroup(t, 4).Order())
	assert.EqualValues(t, 12, dihedralGroup(t, 6).Order())
	assert.EqualValues(t, 24, symmetricGroup(t, 4).Order())
	assert.EqualValues(t, 120, symmetricGroup(t, 5).Order())
	assert.EqualValues(t, 5040, symmetricGroup(t, 7).Order())

	// (0 1)(2 3) and (2 3) generate a group of order 4
	G := mustGroup(t, 4, canon.Permutation{1, 0, 3, 2}, canon.Permutation{0, 1, 3, 2})
	assert.EqualValues(t, 4, G.Order())
}

func TestGroupAllAreDistinctMembers(t *testing.T) {
	G := symmetricGroup(t, 5)
	all := G.All()
	require.Len(t, all, 120)

	seen := make(map[string]bool)
	for _, p := range all {
		require.NoError(t, p.Validate())
		assert.Equal(t, G.Size(), G.Test(p))
		seen[p.String()] = true
	}
	assert.Len(t, seen, 120)
}

func TestGroupTestAndEnter(t *testing.T) {
	G := dihedralGroup(t, 4)

	// a transposition of adjacent corners is not a symmetry of the square
	swap := canon.Permutation{1, 0, 2, 3}
	assert.Less(t, G.Test(swap), G.Size())
	assert.Equal(t, G.Size(), G.Test(canon.Permutation{3, 2, 1, 0}))

	G.Enter(swap)
	assert.EqualValues(t, 24, G.Order())
	assert.Equal(t, G.Size(), G.Test(swap))

	// re-entering a member changes nothing
	G.Enter(canon.Permutation{2, 3, 0, 1})
	assert.EqualValues(t, 24, G.Order())
}

func TestGroupEnterChecked(t *testing.T) {
	G := NewPermutationGroup(3)
	assert.True(t, errors.Is(G.EnterChecked(canon.Identity(4)), canon.ErrSizeMismatch))
	assert.True(t, errors.Is(G.EnterChecked(canon.Permutation{0, 0, 1}), canon.ErrBadPermutation))
	require.NoError(t, G.EnterChecked(canon.Permutation{1, 2, 0}))
	assert.EqualValues(t, 3, G.Order())
}

func TestGroupSimsTable(t *testing.T) {
	G := symmetricGroup(t, 4)

	reps := G.LeftTransversal(0)
	assert.Len(t, reps, 4)
	for level := 1; level < 4; level++ {
		assert.Len(t, G.LeftTransversal(level), 4-level)
	}

	h, found := G.Get(0, 2)
	require.True(t, found)
	assert.Equal(t, 2, h[0])

	h, found = G.Get(1, 0)
	assert.False(t, found)
	assert.Nil(t, h)

	_, found = G.Get(4, 0)
	assert.False(t, found)

	// level i elements fix base[0..i-1]
	for level := 1; level < 4; level++ {
		for _, rep := range G.LeftTransversal(level) {
			for j := 0; j < level; j++ {
				assert.Equal(t, j, rep[j])
			}
		}
	}

	assert.Equal(t, []int{1, 2, 3}, G.OrbitAt(1))
}

func TestGroupChangeBase(t *testing.T) {
	G := dihedralGroup(t, 6)
	members := G.All()

	newBase := canon.Permutation{3, 5, 0, 1, 2, 4}
	G.ChangeBase(newBase)
	assert.Equal(t, newBase, G.Base())
	assert.EqualValues(t, 12, G.Order())
	for _, p := range members {
		assert.Equal(t, G.Size(), G.Test(p))
	}

	// the stabilizer of point 3 in the hexagon's group is the reflection through it
	assert.Len(t, G.LeftTransversal(1), 2)
	assert.Equal(t, []int{1, 5}, G.OrbitAt(1))

	G.ChangeBase(canon.Identity(6))
	assert.EqualValues(t, 12, G.Order())
}

func TestGroupTransversal(t *testing.T) {
	S4 := symmetricGroup(t, 4)
	D4 := dihedralGroup(t, 4)

	reps := S4.Transversal(D4)
	require.Len(t, reps, 3)
	for i := range reps {
		for j := i + 1; j < len(reps); j++ {
			q, err := reps[i].Multiply(reps[j].Invert())
			require.NoError(t, err)
			assert.Less(t, D4.Test(q), D4.Size(), "reps %v and %v share a coset", reps[i], reps[j])
		}
	}

	// a group on other points is no subgroup
	assert.Nil(t, S4.Transversal(symmetricGroup(t, 5)))
	assert.Nil(t, S4.Transversal(NewPermutationGroup(3)))
	assert.Nil(t, S4.Transversal(nil))
}

func TestGroupApplyStops(t *testing.T) {
	G := symmetricGroup(t, 6)
	count := 0
	G.Apply(&BacktrackFunc{
		Visit: func(p canon.Permutation) {
			count++
		},
		Done: func() bool {
			return count >= 5
		},
	})
	assert.Equal(t, 5, count)
}

func TestGroupOrbitPartition(t *testing.T) {
	G := mustGroup(t, 6, canon.Permutation{1, 0, 2, 3, 4, 5}, canon.Permutation{0, 1, 3, 5, 4, 2})
	assert.Equal(t, "0,1|2,3,5|4", G.OrbitPartition().String())
	assert.Len(t, G.Generators(), 3)
}

func TestGroupClone(t *testing.T) {
	G := dihedralGroup(t, 4)
	dup := G.Clone()
	dup.Enter(canon.Permutation{1, 0, 2, 3})
	assert.EqualValues(t, 8, G.Order())
	assert.EqualValues(t, 24, dup.Order())
}
