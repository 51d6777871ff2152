package libcanon

import (
	"sort"

	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// Graph is an undirected graph on vertices 0..n-1 with positive integer edge labels and optional vertex colours.
//
// Graph implements canon.Refinable and is what the atom and bond views of a Molecule reduce to.
type Graph struct {
	n        int
	labels   []int // n*n symmetric matrix of edge labels, 0 if not adjacent
	colors   []int // nil if all vertices share one colour
	maxLabel int
}

// NewGraph returns an edgeless, uncoloured graph on n vertices.
func NewGraph(n int) *Graph {
	return &Graph{
		n:      n,
		labels: make([]int, n*n),
	}
}

// NewGraphFromEdges returns an uncoloured graph on n vertices with each given edge labelled 1.
func NewGraphFromEdges(n int, edges ...[2]int) (*Graph, error) {
	g := NewGraph(n)
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1], 1); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) checkVertex(v int) error {
	if v < 0 || v >= g.n {
		return errors.Wrapf(canon.ErrVertexIndex, "vertex %d, vertex count %d", v, g.n)
	}
	return nil
}

// AddEdge sets the label of edge i-j.  Labels must be positive and loops are not allowed.
func (g *Graph) AddEdge(i, j, label int) error {
	if err := g.checkVertex(i); err != nil {
		return err
	}
	if err := g.checkVertex(j); err != nil {
		return err
	}
	if i == j {
		return errors.Wrapf(canon.ErrBadBond, "loop at vertex %d", i)
	}
	if label <= 0 {
		return errors.Wrapf(canon.ErrBadBond, "edge %d-%d has label %d", i, j, label)
	}
	g.labels[i*g.n+j] = label
	g.labels[j*g.n+i] = label
	if label > g.maxLabel {
		g.maxLabel = label
	}
	return nil
}

// SetColor assigns a colour to v.  Cells of the initial partition are ordered by ascending colour.
func (g *Graph) SetColor(v, color int) error {
	if err := g.checkVertex(v); err != nil {
		return err
	}
	if g.colors == nil {
		g.colors = make([]int, g.n)
	}
	g.colors[v] = color
	return nil
}

// NumEdges returns the number of adjacent vertex pairs.
func (g *Graph) NumEdges() int {
	count := 0
	for i := 0; i < g.n; i++ {
		for j := i + 1; j < g.n; j++ {
			if g.labels[i*g.n+j] != 0 {
				count++
			}
		}
	}
	return count
}

func (g *Graph) VertexCount() int {
	return g.n
}

func (g *Graph) Connectivity(i, j int) int {
	return g.labels[i*g.n+j]
}

func (g *Graph) InitialPartition() *canon.Partition {
	if g.colors == nil {
		return canon.UnitPartition(g.n)
	}

	byColor := make(map[int][]int)
	for v, color := range g.colors {
		byColor[color] = append(byColor[color], v)
	}
	colors := make([]int, 0, len(byColor))
	for color := range byColor {
		colors = append(colors, color)
	}
	sort.Ints(colors)

	P := canon.NewPartition()
	for _, color := range colors {
		P.AddCell(byColor[color]...)
	}
	return P
}

// NeighboursInBlock counts v's neighbours in block, per edge label when labels other than 1 are present.
func (g *Graph) NeighboursInBlock(block canon.Cell, v int) canon.Invariant {
	row := g.labels[v*g.n : (v+1)*g.n]
	if g.maxLabel <= 1 {
		count := 0
		for _, u := range block {
			if row[u] != 0 {
				count++
			}
		}
		return canon.IntInvariant(count)
	}

	counts := make(canon.IntListInvariant, g.maxLabel)
	for _, u := range block {
		if label := row[u]; label != 0 {
			counts[label-1]++
		}
	}
	return counts
}
