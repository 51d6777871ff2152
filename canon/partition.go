package canon

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Cell is a block of a Partition: distinct vertex indices in ascending order.
type Cell []int

// Contains reports whether v is in this cell.
func (c Cell) Contains(v int) bool {
	idx := sort.SearchInts(c, v)
	return idx < len(c) && c[idx] == v
}

func (c Cell) Clone() Cell {
	dup := make(Cell, len(c))
	copy(dup, c)
	return dup
}

func (c Cell) Min() int {
	return c[0]
}

// insert places v in sorted position; no-op if already present.
func (c Cell) insert(v int) Cell {
	idx := sort.SearchInts(c, v)
	if idx < len(c) && c[idx] == v {
		return c
	}
	c = append(c, 0)
	copy(c[idx+1:], c[idx:])
	c[idx] = v
	return c
}

func (c Cell) remove(v int) Cell {
	idx := sort.SearchInts(c, v)
	if idx == len(c) || c[idx] != v {
		return c
	}
	out := make(Cell, 0, len(c)-1)
	out = append(out, c[:idx]...)
	return append(out, c[idx+1:]...)
}

// Partition is an ordered sequence of disjoint, non-empty cells.
//
// Once complete (see Validate), the union of its cells is exactly {0..n-1}.
// A discrete partition (all cells singletons) corresponds to a Permutation.
type Partition struct {
	cells []Cell
}

// NewPartition returns an empty partition, ready for AddCell().
func NewPartition() *Partition {
	return &Partition{}
}

// UnitPartition returns the single cell partition {0..n-1}.
func UnitPartition(n int) *Partition {
	P := &Partition{}
	if n > 0 {
		cell := make(Cell, n)
		for i := range cell {
			cell[i] = i
		}
		P.cells = append(P.cells, cell)
	}
	return P
}

// NewPartitionFromCells builds a partition from the given cells (each is copied and sorted).
func NewPartitionFromCells(cells ...[]int) *Partition {
	P := &Partition{
		cells: make([]Cell, 0, len(cells)),
	}
	for _, cell := range cells {
		P.AddCell(cell...)
	}
	return P
}

// AddCell appends a new cell containing the given vertices.
func (P *Partition) AddCell(vertices ...int) {
	cell := make(Cell, len(vertices))
	copy(cell, vertices)
	sort.Ints(cell)
	P.cells = append(P.cells, cell)
}

func (P *Partition) AddSingletonCell(v int) {
	P.cells = append(P.cells, Cell{v})
}

// AddToCell inserts v into the cell at the given index.
func (P *Partition) AddToCell(cellIdx, v int) error {
	if err := P.checkCell(cellIdx); err != nil {
		return err
	}
	P.cells[cellIdx] = P.cells[cellIdx].insert(v)
	return nil
}

// Size returns the number of cells.
func (P *Partition) Size() int {
	return len(P.cells)
}

// NumElements returns the total number of vertices over all cells.
func (P *Partition) NumElements() int {
	N := 0
	for _, cell := range P.cells {
		N += len(cell)
	}
	return N
}

func (P *Partition) checkCell(cellIdx int) error {
	if cellIdx < 0 || cellIdx >= len(P.cells) {
		return errors.Wrapf(ErrCellIndex, "cell %d, partition size %d", cellIdx, len(P.cells))
	}
	return nil
}

// GetCell returns the cell at the given index.  The returned cell is shared with P and must not be modified.
func (P *Partition) GetCell(cellIdx int) (Cell, error) {
	if err := P.checkCell(cellIdx); err != nil {
		return nil, err
	}
	return P.cells[cellIdx], nil
}

// Cells returns the cells of P in order, shared with P.
func (P *Partition) Cells() []Cell {
	return P.cells
}

func (P *Partition) GetFirstInCell(cellIdx int) (int, error) {
	if err := P.checkCell(cellIdx); err != nil {
		return 0, err
	}
	return P.cells[cellIdx][0], nil
}

// CopyBlock returns an independent copy of the cell at the given index.
func (P *Partition) CopyBlock(cellIdx int) (Cell, error) {
	if err := P.checkCell(cellIdx); err != nil {
		return nil, err
	}
	return P.cells[cellIdx].Clone(), nil
}

// SplitBefore returns a copy of P with element moved out of cell cellIdx into a new singleton cell placed immediately before it.
func (P *Partition) SplitBefore(cellIdx, element int) (*Partition, error) {
	return P.split(cellIdx, element, 0)
}

// SplitAfter is SplitBefore but places the new singleton cell immediately after the remainder.
func (P *Partition) SplitAfter(cellIdx, element int) (*Partition, error) {
	return P.split(cellIdx, element, 1)
}

func (P *Partition) split(cellIdx, element, offset int) (*Partition, error) {
	if err := P.checkCell(cellIdx); err != nil {
		return nil, err
	}
	cell := P.cells[cellIdx]
	if !cell.Contains(element) {
		return nil, errors.Wrapf(ErrVertexIndex, "vertex %d is not in cell %d", element, cellIdx)
	}
	if len(cell) == 1 {
		return nil, errors.Wrapf(ErrEmptyCell, "splitting vertex %d would empty cell %d", element, cellIdx)
	}

	split := &Partition{
		cells: make([]Cell, 0, len(P.cells)+1),
	}
	for i, Ci := range P.cells {
		if i != cellIdx {
			split.cells = append(split.cells, Ci.Clone())
			continue
		}
		rest := Ci.remove(element)
		if offset == 0 {
			split.cells = append(split.cells, Cell{element}, rest)
		} else {
			split.cells = append(split.cells, rest, Cell{element})
		}
	}
	return split, nil
}

// IsDiscrete is true iff every cell has exactly one element.
func (P *Partition) IsDiscrete() bool {
	for _, cell := range P.cells {
		if len(cell) != 1 {
			return false
		}
	}
	return true
}

func (P *Partition) IsDiscreteCell(cellIdx int) bool {
	return len(P.cells[cellIdx]) == 1
}

// IndexOfFirstNonDiscreteCell returns the index of the first cell with more than one element, or -1 if P is discrete.
func (P *Partition) IndexOfFirstNonDiscreteCell() int {
	for i, cell := range P.cells {
		if len(cell) > 1 {
			return i
		}
	}
	return -1
}

// Order sorts cells by their minimum element.
func (P *Partition) Order() {
	sort.SliceStable(P.cells, func(i, j int) bool {
		return P.cells[i][0] < P.cells[j][0]
	})
}

// InOrder reports if cells are already sorted by their minimum element.
func (P *Partition) InOrder() bool {
	for i := 1; i < len(P.cells); i++ {
		if P.cells[i-1][0] > P.cells[i][0] {
			return false
		}
	}
	return true
}

// ToPermutation returns p where p[i] is the sole element of cell i.
func (P *Partition) ToPermutation() (Permutation, error) {
	p := make(Permutation, len(P.cells))
	for i, cell := range P.cells {
		if len(cell) != 1 {
			return nil, errors.Wrapf(ErrNotDiscrete, "cell %d has %d elements", i, len(cell))
		}
		p[i] = cell[0]
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the cells are non-empty, pairwise disjoint, and cover exactly {0..n-1}.
func (P *Partition) Validate() error {
	N := P.NumElements()
	seen := make([]bool, N)
	for i, cell := range P.cells {
		if len(cell) == 0 {
			return errors.Wrapf(ErrEmptyCell, "cell %d", i)
		}
		for _, v := range cell {
			if v < 0 || v >= N {
				return errors.Wrapf(ErrBadPartition, "vertex %d in cell %d is out of range [0,%d)", v, i, N)
			}
			if seen[v] {
				return errors.Wrapf(ErrBadPartition, "vertex %d appears more than once", v)
			}
			seen[v] = true
		}
	}
	return nil
}

func (P *Partition) Clone() *Partition {
	dup := &Partition{
		cells: make([]Cell, len(P.cells)),
	}
	for i, cell := range P.cells {
		dup.cells[i] = cell.Clone()
	}
	return dup
}

func (P *Partition) Equal(other *Partition) bool {
	if len(P.cells) != len(other.cells) {
		return false
	}
	for i, cell := range P.cells {
		oc := other.cells[i]
		if len(cell) != len(oc) {
			return false
		}
		for j, v := range cell {
			if oc[j] != v {
				return false
			}
		}
	}
	return true
}

// CellOf returns a lookup table mapping each vertex to the index of its cell.
func (P *Partition) CellOf() []int {
	cellOf := make([]int, P.NumElements())
	for i, cell := range P.cells {
		for _, v := range cell {
			cellOf[v] = i
		}
	}
	return cellOf
}

// String writes P as ascending comma separated cells joined by '|', e.g. "0,1|2,3".
func (P *Partition) String() string {
	var b strings.Builder
	b.Grow(3 * P.NumElements())
	for i, cell := range P.cells {
		if i > 0 {
			b.WriteByte('|')
		}
		for j, v := range cell {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
	}
	return b.String()
}

// ReplaceCell swaps in the given cells in place of the cell at cellIdx.
func (P *Partition) ReplaceCell(cellIdx int, with ...Cell) {
	N := len(P.cells)
	tail := make([]Cell, N-cellIdx-1)
	copy(tail, P.cells[cellIdx+1:])
	P.cells = append(append(P.cells[:cellIdx], with...), tail...)
}
