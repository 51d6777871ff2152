package canon

import (
	"io"
)

// Refinable is a read-only view over a caller's graph, giving the refiners what they need to canonize it.
//
// Implementations must not change while a refine is in progress.
type Refinable interface {

	// VertexCount returns the number of vertices (n), indexed 0..n-1.
	VertexCount() int

	// Connectivity returns the edge label between i and j (e.g. a bond order), or 0 if they are not adjacent.
	Connectivity(i, j int) int

	// InitialPartition returns the vertex colouring to start refinement from.
	// Cells must be ordered by colour so that the order is independent of vertex numbering.
	InitialPartition() *Partition

	// NeighboursInBlock returns the invariant of the given vertex relative to block (e.g. how many of its neighbours are in block).
	NeighboursInBlock(block Cell, vertex int) Invariant
}

// Backtracker is handed each element of a permutation group during enumeration.
type Backtracker interface {

	// ApplyTo is called with each group element in turn.  p must be copied if retained.
	ApplyTo(p Permutation)

	// IsFinished is checked before each element; returning true ends the enumeration.
	IsFinished() bool
}

// MolInfo summarizes a molecule graph and its symmetry.
type MolInfo struct {
	NumAtoms   int   // vertex count
	NumBonds   int   // edge count
	NumClasses int   // number of cells in the atom automorphism partition (0 if not yet canonized)
	GroupOrder int64 // order of the automorphism group (0 if not yet canonized)
}

// MolState is a molecule graph that can be canonized, printed, and catalogued.
type MolState interface {

	// AtomCount returns the number of atoms.
	AtomCount() int

	// Canonize computes the canonical labeling and symmetry info of this molecule.
	Canonize() error

	// CanonicalKey returns a byte string equal for two molecules iff they are isomorphic.  Canonize() must be called first.
	CanonicalKey() []byte

	// GetInfo returns info about this molecule.
	GetInfo() MolInfo

	// MarshalExpr appends this molecule's expression form to the given buffer.
	MarshalExpr(out []byte) []byte

	WriteAsString(out io.Writer, opts PrintOpts)

	// MakeCopy returns a new independent copy of this instance.
	MakeCopy() MolState

	// Reclaim recycles this instance.  The caller asserts that no more references to it persist.
	Reclaim()
}

// OnMolHit is a channel used to return molecules meeting a set of selection criteria.
// Ownership of a MolState also travels through the channel.
type OnMolHit chan<- MolState

// MolAdder is a destination for molecules, rejecting ones equivalent to one already added.
type MolAdder interface {

	// TryAddMolecule adds X if no equivalent molecule has been added.
	// If true is returned, X was new and was added.
	TryAddMolecule(X MolState) (bool, error)
}

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a Catalog
type CatalogOpts struct {
	DbPathName string // omit for in-memory db
	ReadOnly   bool   // open in read-only mode
}

// Catalog wraps a database of canonical molecules.
type Catalog interface {
	MolAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumMolecules returns the number of unique molecules in this catalog with the given atom count.
	NumMolecules(forAtomCount int) int64

	// Select sends each molecule meeting the selection criteria to onHit.
	Select(sel MolSelector, onHit OnMolHit) error

	Close() error
}

// MolSelector is an operator that either selects a given molecule or not.
type MolSelector struct {
	Min MolInfo // lower select bounds
	Max MolInfo // upper select bounds
}

// PrintOpts specifies what is printed when printing a molecule
type PrintOpts struct {
	Label       string // Prefix label
	Expr        bool   // If set, prints the molecule expression
	Symmetry    bool   // If set, prints the automorphism partition and group order
	Labeling    bool   // If set, prints the canonical labeling (best permutation)
	Certificate bool   // If set, prints the half-matrix certificate
}

// DefaultPrintOpts prints the expression and its symmetry.
var DefaultPrintOpts = PrintOpts{
	Expr:     true,
	Symmetry: true,
}
