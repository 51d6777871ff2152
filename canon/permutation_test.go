package canon

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutationBasics(t *testing.T) {
	p, err := NewPermutation(1, 2, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, 4, p.Size())
	assert.Equal(t, 2, p.Get(1))
	assert.False(t, p.IsIdentity())
	assert.True(t, Identity(4).IsIdentity())
	assert.Equal(t, "[1,2,0,3]", p.String())
	assert.Equal(t, "(0,1,2)(3)", p.ToCycleString())
	assert.Equal(t, []int{0, 1, 2}, p.Orbit(0))
	assert.Equal(t, []int{3}, p.Orbit(3))

	_, err = p.At(4)
	assert.True(t, errors.Is(err, ErrVertexIndex))
	v, err := p.At(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPermutationRejectsNonBijection(t *testing.T) {
	for _, values := range [][]int{
		{0, 0, 1},
		{0, 3, 1},
		{-1, 0},
	} {
		_, err := NewPermutation(values...)
		assert.True(t, errors.Is(err, ErrBadPermutation), "%v", values)
	}
}

func TestPermutationMultiply(t *testing.T) {
	a := Permutation{1, 2, 0}
	b := Permutation{0, 2, 1}

	ab, err := a.Multiply(b)
	require.NoError(t, err)

	// a then b
	for i := range a {
		assert.Equal(t, b[a[i]], ab[i])
	}
	assert.Equal(t, Permutation{2, 1, 0}, ab)

	_, err = a.Multiply(Identity(4))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestPermutationInvert(t *testing.T) {
	p := Permutation{3, 0, 4, 1, 2}
	inv := p.Invert()

	pinv, err := p.Multiply(inv)
	require.NoError(t, err)
	assert.True(t, pinv.IsIdentity())

	invp, err := inv.Multiply(p)
	require.NoError(t, err)
	assert.True(t, invp.IsIdentity())
}

func TestPermutationFirstIndexOfDifference(t *testing.T) {
	p := Permutation{0, 1, 2, 3}

	idx, err := p.FirstIndexOfDifference(Permutation{0, 1, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = p.FirstIndexOfDifference(p.Clone())
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	_, err = p.FirstIndexOfDifference(Identity(3))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestPermutationCloneAndSetTo(t *testing.T) {
	p := Permutation{2, 0, 1}
	dup := p.Clone()
	dup.Set(0, 0)
	dup.Set(1, 2)
	dup.Set(2, 1)
	assert.Equal(t, Permutation{2, 0, 1}, p)
	assert.True(t, p.Equal(Permutation{2, 0, 1}))
	assert.False(t, p.Equal(dup))

	require.NoError(t, p.SetTo(dup))
	assert.True(t, p.Equal(dup))
	assert.True(t, errors.Is(p.SetTo(Identity(2)), ErrSizeMismatch))
}
