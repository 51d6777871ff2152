package canon

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Permutation is a bijection on {0..n-1}, mapping i -> p[i].
//
// A Permutation owns its backing slice; constructors copy and Clone() before retaining one.
type Permutation []int

// Identity returns the identity permutation of size n.
func Identity(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// NewPermutation copies the given values into a new Permutation, checking that they are a bijection on {0..n-1}.
func NewPermutation(values ...int) (Permutation, error) {
	p := make(Permutation, len(values))
	copy(p, values)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate returns ErrBadPermutation if p is not a bijection on {0..n-1}.
func (p Permutation) Validate() error {
	N := len(p)
	seen := make([]bool, N)
	for i, v := range p {
		if v < 0 || v >= N {
			return errors.Wrapf(ErrBadPermutation, "value %d at index %d is out of range [0,%d)", v, i, N)
		}
		if seen[v] {
			return errors.Wrapf(ErrBadPermutation, "value %d appears more than once", v)
		}
		seen[v] = true
	}
	return nil
}

func (p Permutation) Size() int {
	return len(p)
}

// Get returns the image of i.
func (p Permutation) Get(i int) int {
	return p[i]
}

// At is the bounds-checked form of Get.
func (p Permutation) At(i int) (int, error) {
	if i < 0 || i >= len(p) {
		return 0, errors.Wrapf(ErrVertexIndex, "index %d, size %d", i, len(p))
	}
	return p[i], nil
}

// Set assigns the image of i.  The caller is responsible for restoring bijectivity.
func (p Permutation) Set(i, v int) {
	p[i] = v
}

// SetTo overwrites p with the values of src.
func (p Permutation) SetTo(src Permutation) error {
	if len(p) != len(src) {
		return errors.Wrapf(ErrSizeMismatch, "%d vs %d", len(p), len(src))
	}
	copy(p, src)
	return nil
}

func (p Permutation) Clone() Permutation {
	if p == nil {
		return nil
	}
	dup := make(Permutation, len(p))
	copy(dup, p)
	return dup
}

func (p Permutation) Equal(other Permutation) bool {
	if len(p) != len(other) {
		return false
	}
	for i, v := range p {
		if other[i] != v {
			return false
		}
	}
	return true
}

// Multiply returns p followed by other: result[i] = other[p[i]].
func (p Permutation) Multiply(other Permutation) (Permutation, error) {
	if len(p) != len(other) {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d vs %d", len(p), len(other))
	}
	return p.compose(other), nil
}

// compose is Multiply for callers that already guarantee equal sizes.
func (p Permutation) compose(other Permutation) Permutation {
	out := make(Permutation, len(p))
	for i, v := range p {
		out[i] = other[v]
	}
	return out
}

// Invert returns the unique q such that q[p[i]] = i.
func (p Permutation) Invert() Permutation {
	inv := make(Permutation, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv
}

// Orbit returns the cycle containing i in order of application: i, p(i), p(p(i)), ...
func (p Permutation) Orbit(i int) []int {
	orbit := []int{i}
	for j := p[i]; j != i; j = p[j] {
		orbit = append(orbit, j)
	}
	return orbit
}

func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if i != v {
			return false
		}
	}
	return true
}

// FirstIndexOfDifference returns the smallest index where p and other disagree, or -1 if they are equal.
func (p Permutation) FirstIndexOfDifference(other Permutation) (int, error) {
	if len(p) != len(other) {
		return -1, errors.Wrapf(ErrSizeMismatch, "%d vs %d", len(p), len(other))
	}
	for i, v := range p {
		if other[i] != v {
			return i, nil
		}
	}
	return -1, nil
}

// ToCycleString renders p in disjoint cycle notation, including fixed points, e.g. "(0)(1,2)(3,4,5)".
func (p Permutation) ToCycleString() string {
	var b strings.Builder
	b.Grow(4 * len(p))

	visited := make([]bool, len(p))
	for i := range p {
		if visited[i] {
			continue
		}
		b.WriteByte('(')
		for k, j := range p.Orbit(i) {
			if k > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(j))
			visited[j] = true
		}
		b.WriteByte(')')
	}
	return b.String()
}

func (p Permutation) String() string {
	var b strings.Builder
	b.Grow(3*len(p) + 2)
	b.WriteByte('[')
	for i, v := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(']')
	return b.String()
}
