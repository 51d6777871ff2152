package canon

import (
	"strconv"
	"strings"
)

// Invariant is a refinement key: two vertices in the same cell with unequal invariants relative to some block can't be equivalent.
type Invariant interface {
	// Compare returns <0, 0, or >0 as this invariant orders before, equal to, or after other.
	Compare(other Invariant) int

	String() string
}

// IntInvariant is a neighbour count.
type IntInvariant int

func (inv IntInvariant) Compare(other Invariant) int {
	switch o := other.(type) {
	case IntInvariant:
		return int(inv) - int(o)
	case IntListInvariant:
		return IntListInvariant{int(inv)}.Compare(o)
	}
	return 0
}

func (inv IntInvariant) String() string {
	return strconv.Itoa(int(inv))
}

// IntListInvariant is a vector of counts (e.g. neighbours per bond order), ordered lexicographically.
type IntListInvariant []int

func (inv IntListInvariant) Compare(other Invariant) int {
	var o IntListInvariant
	switch ot := other.(type) {
	case IntListInvariant:
		o = ot
	case IntInvariant:
		o = IntListInvariant{int(ot)}
	default:
		return 0
	}

	N := len(inv)
	if len(o) < N {
		N = len(o)
	}
	for i := 0; i < N; i++ {
		if d := inv[i] - o[i]; d != 0 {
			return d
		}
	}
	return len(inv) - len(o)
}

func (inv IntListInvariant) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range inv {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(']')
	return b.String()
}

// InvariantComparator adapts Invariant.Compare to the untyped comparator form used by container libraries.
func InvariantComparator(a, b interface{}) int {
	return a.(Invariant).Compare(b.(Invariant))
}
