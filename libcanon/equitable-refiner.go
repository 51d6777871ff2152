package libcanon

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/fine-structures/canon/canon"
)

// EquitableRefiner brings a partition to the coarsest equitable partition finer than it:
// within every cell, all vertices have the same invariant relative to every cell.
//
// This is colour refinement only; it never individualizes a vertex.
type EquitableRefiner struct {
	g canon.Refinable
}

func NewEquitableRefiner(g canon.Refinable) *EquitableRefiner {
	return &EquitableRefiner{
		g: g,
	}
}

// Refine returns the equitable refinement of coarse, leaving coarse unchanged.
//
// A cell that splits is replaced in place by its fragments ordered by ascending invariant,
// so the result depends only on the graph's structure and the order of coarse's cells.
func (r *EquitableRefiner) Refine(coarse *canon.Partition) *canon.Partition {
	P := coarse.Clone()

	blocks := linkedlistqueue.New()
	for _, cell := range P.Cells() {
		blocks.Enqueue(cell.Clone())
	}

	for !blocks.Empty() {
		item, _ := blocks.Dequeue()
		block := item.(canon.Cell)

		for ci := 0; ci < P.Size(); {
			cell := P.Cells()[ci]
			if len(cell) == 1 {
				ci++
				continue
			}
			fragments := r.splitCell(block, cell)
			if len(fragments) == 1 {
				ci++
				continue
			}
			P.ReplaceCell(ci, fragments...)
			for _, frag := range fragments {
				blocks.Enqueue(frag.Clone())
			}
			ci += len(fragments)
		}
	}

	return P
}

// splitCell groups the vertices of cell by their invariant relative to block.
func (r *EquitableRefiner) splitCell(block, cell canon.Cell) []canon.Cell {
	byInvariant := treemap.NewWith(canon.InvariantComparator)
	for _, v := range cell {
		inv := r.g.NeighboursInBlock(block, v)
		if found, exists := byInvariant.Get(inv); exists {
			byInvariant.Put(inv, append(found.(canon.Cell), v))
		} else {
			byInvariant.Put(inv, canon.Cell{v})
		}
	}

	if byInvariant.Size() == 1 {
		return []canon.Cell{cell}
	}

	fragments := make([]canon.Cell, 0, byInvariant.Size())
	it := byInvariant.Iterator()
	for it.Next() {
		fragments = append(fragments, it.Value().(canon.Cell))
	}
	return fragments
}
