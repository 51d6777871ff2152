package libcanon

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// BondOrder is the type of a bond, and the edge label it contributes to a molecule's atom graph.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

const bondKinds = " -=#~"

// ParseBondOrder returns the BondOrder for one of "-", "=", "#", "~".
func ParseBondOrder(kind string) (BondOrder, error) {
	if len(kind) == 1 {
		if idx := strings.IndexByte(bondKinds, kind[0]); idx > 0 {
			return BondOrder(idx), nil
		}
	}
	return 0, errors.Wrapf(canon.ErrBadBond, "unknown bond kind %q", kind)
}

func (order BondOrder) IsValid() bool {
	return order >= Single && order <= Aromatic
}

func (order BondOrder) String() string {
	if !order.IsValid() {
		return "?"
	}
	return bondKinds[order : order+1]
}

type Atom struct {
	Symbol string // element symbol, e.g. "C"
}

type Bond struct {
	A, B  int // atom indices
	Order BondOrder
}

// AtomOpts configures the atom graph view of a Molecule.
type AtomOpts struct {
	IgnoreElements  bool // if set, all atoms start in one cell regardless of element
	IgnoreBondOrder bool // if set, every bond has connectivity 1
}

// BondOpts configures the bond graph view of a Molecule.
type BondOpts struct {
	IgnoreBondOrder bool // if set, all bonds start in one cell regardless of order
}

// Molecule is a set of atoms joined by bonds, the boundary type handed to the refiners.
//
// Molecule implements canon.MolState; Canonize() stores the results of refining its atom graph with Opts.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond
	Opts  AtomOpts // used by Canonize()

	canonized  bool
	canonical  bool
	labeling   canon.Permutation
	autPart    *canon.Partition
	groupOrder int64
	halfMatrix string
	key        []byte
}

// NewMolecule returns an empty molecule from the pool.
func NewMolecule() *Molecule {
	X := moleculePool.Get().(*Molecule)
	X.Init(nil)
	return X
}

var moleculePool = sync.Pool{
	New: func() interface{} {
		return new(Molecule)
	},
}

// Init resets X to a copy of src, or to an empty molecule if src is nil.
func (X *Molecule) Init(src *Molecule) {
	if X == src {
		return
	}

	X.Atoms = X.Atoms[:0]
	X.Bonds = X.Bonds[:0]
	X.Opts = AtomOpts{}
	X.onChanged()

	if src == nil {
		return
	}

	X.Atoms = append(X.Atoms, src.Atoms...)
	X.Bonds = append(X.Bonds, src.Bonds...)
	X.Opts = src.Opts
	if src.canonized {
		X.canonized = true
		X.canonical = src.canonical
		X.labeling = src.labeling.Clone()
		X.autPart = src.autPart.Clone()
		X.groupOrder = src.groupOrder
		X.halfMatrix = src.halfMatrix
		X.key = append(X.key[:0], src.key...)
	}
}

// onChanged drops canonization results once the structure changes.
func (X *Molecule) onChanged() {
	X.canonized = false
	X.canonical = false
	X.labeling = nil
	X.autPart = nil
	X.groupOrder = 0
	X.halfMatrix = ""
	X.key = X.key[:0]
}

// AddAtom appends an atom and returns its index.
func (X *Molecule) AddAtom(symbol string) int {
	X.Atoms = append(X.Atoms, Atom{Symbol: symbol})
	X.onChanged()
	return len(X.Atoms) - 1
}

// AddBond bonds atoms a and b.  A pair of atoms has at most one bond.
func (X *Molecule) AddBond(a, b int, order BondOrder) error {
	bond := Bond{A: a, B: b, Order: order}
	if err := X.checkBond(bond); err != nil {
		return err
	}
	for _, existing := range X.Bonds {
		if (existing.A == a && existing.B == b) || (existing.A == b && existing.B == a) {
			return errors.Wrapf(canon.ErrBadBond, "atoms %d and %d are already bonded", a, b)
		}
	}
	X.Bonds = append(X.Bonds, bond)
	X.onChanged()
	return nil
}

func (X *Molecule) checkBond(bond Bond) error {
	N := len(X.Atoms)
	if bond.A < 0 || bond.A >= N || bond.B < 0 || bond.B >= N {
		return errors.Wrapf(canon.ErrBadBond, "bond %d%v%d: atom count is %d", bond.A, bond.Order, bond.B, N)
	}
	if bond.A == bond.B {
		return errors.Wrapf(canon.ErrBadBond, "bond %d%v%d bonds an atom to itself", bond.A, bond.Order, bond.B)
	}
	if !bond.Order.IsValid() {
		return errors.Wrapf(canon.ErrBadBond, "bond %d-%d has order %d", bond.A, bond.B, int(bond.Order))
	}
	return nil
}

// Validate checks every bond for range, self-bonding, order, and duplicates.
func (X *Molecule) Validate() error {
	seen := make(map[[2]int]struct{}, len(X.Bonds))
	for _, bond := range X.Bonds {
		if err := X.checkBond(bond); err != nil {
			return err
		}
		pair := [2]int{bond.A, bond.B}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		if _, dupe := seen[pair]; dupe {
			return errors.Wrapf(canon.ErrBadBond, "atoms %d and %d are already bonded", pair[0], pair[1])
		}
		seen[pair] = struct{}{}
	}
	return nil
}

func (X *Molecule) AtomCount() int {
	return len(X.Atoms)
}

func (X *Molecule) BondCount() int {
	return len(X.Bonds)
}

// Canonize refines X's atom graph using X.Opts and stores the canonical labeling and symmetry.
func (X *Molecule) Canonize() error {
	if X.canonized {
		return nil
	}

	g, err := AtomRefinable(X, X.Opts)
	if err != nil {
		return err
	}
	res, err := defaultRefiner.Refine(g)
	if err != nil {
		return err
	}

	X.canonical = res.IsCanonical()
	X.labeling = res.Best()
	X.autPart = res.AutomorphismPartition()
	X.groupOrder = res.GroupOrder()
	X.halfMatrix = res.HalfMatrixString()
	X.key = X.appendCanonicalKey(X.key[:0])
	X.canonized = true
	return nil
}

var defaultRefiner = NewDiscreteRefiner(RefinerOpts{})

// appendCanonicalKey writes the atom count, the element symbols in canonical order, and the certificate.
func (X *Molecule) appendCanonicalKey(key []byte) []byte {
	key = strconv.AppendInt(key, int64(len(X.Atoms)), 10)
	key = append(key, ';')
	if !X.Opts.IgnoreElements {
		for i, v := range X.labeling {
			if i > 0 {
				key = append(key, ' ')
			}
			key = append(key, X.Atoms[v].Symbol...)
		}
	}
	key = append(key, ';')
	key = append(key, X.halfMatrix...)
	return key
}

// IsCanonized reports whether Canonize() results are current.
func (X *Molecule) IsCanonized() bool {
	return X.canonized
}

// CanonicalKey is equal for two molecules canonized with the same Opts iff they are isomorphic.
func (X *Molecule) CanonicalKey() []byte {
	return X.key
}

// IsCanonical reports whether X's atom order is already its canonical order.
func (X *Molecule) IsCanonical() bool {
	return X.canonical
}

// Labeling returns the canonical labeling: atom i of the canonical form is atom Labeling()[i] of X.
func (X *Molecule) Labeling() canon.Permutation {
	return X.labeling.Clone()
}

// AutPartition returns the classes of symmetry-equivalent atoms.
func (X *Molecule) AutPartition() *canon.Partition {
	if X.autPart == nil {
		return nil
	}
	return X.autPart.Clone()
}

// GroupOrder returns the order of X's automorphism group.
func (X *Molecule) GroupOrder() int64 {
	return X.groupOrder
}

// HalfMatrixString returns X's canonical certificate.
func (X *Molecule) HalfMatrixString() string {
	return X.halfMatrix
}

func (X *Molecule) GetInfo() canon.MolInfo {
	info := canon.MolInfo{
		NumAtoms:   len(X.Atoms),
		NumBonds:   len(X.Bonds),
		GroupOrder: X.groupOrder,
	}
	if X.autPart != nil {
		info.NumClasses = X.autPart.Size()
	}
	return info
}

// Relabel returns a new molecule where atom i is atom p[i] of X.
// Bonds are rewritten with the lower atom index first and sorted.
func (X *Molecule) Relabel(p canon.Permutation) (*Molecule, error) {
	if len(p) != len(X.Atoms) {
		return nil, errors.Wrapf(canon.ErrSizeMismatch, "labeling size %d, atom count %d", len(p), len(X.Atoms))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	Y := NewMolecule()
	Y.Opts = X.Opts
	for _, v := range p {
		Y.Atoms = append(Y.Atoms, X.Atoms[v])
	}

	inv := p.Invert()
	for _, bond := range X.Bonds {
		a, b := inv[bond.A], inv[bond.B]
		if a > b {
			a, b = b, a
		}
		Y.Bonds = append(Y.Bonds, Bond{A: a, B: b, Order: bond.Order})
	}
	sort.Slice(Y.Bonds, func(i, j int) bool {
		if Y.Bonds[i].A != Y.Bonds[j].A {
			return Y.Bonds[i].A < Y.Bonds[j].A
		}
		return Y.Bonds[i].B < Y.Bonds[j].B
	})
	return Y, nil
}

// Canonize returns the canonical form of mol under opts together with its canonical key.
// Isomorphic molecules yield the same key, and with bond orders considered, the same canonical form.
func Canonize(mol *Molecule, opts AtomOpts) (*Molecule, []byte, error) {
	X := NewMolecule()
	defer X.Reclaim()

	X.Atoms = append(X.Atoms, mol.Atoms...)
	X.Bonds = append(X.Bonds, mol.Bonds...)
	X.Opts = opts
	if err := X.Canonize(); err != nil {
		return nil, nil, err
	}

	Xc, err := X.Relabel(X.labeling)
	if err != nil {
		return nil, nil, err
	}
	key := append([]byte(nil), X.key...)
	return Xc, key, nil
}

// String returns X's expression, e.g. "C C O; 0-1, 1=2".
func (X *Molecule) String() string {
	return string(X.MarshalExpr(nil))
}

func (X *Molecule) MarshalExpr(out []byte) []byte {
	for i, atom := range X.Atoms {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, atom.Symbol...)
	}
	if len(X.Bonds) == 0 {
		return out
	}
	out = append(out, ';')
	for i, bond := range X.Bonds {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, ' ')
		out = strconv.AppendInt(out, int64(bond.A), 10)
		out = append(out, bond.Order.String()...)
		out = strconv.AppendInt(out, int64(bond.B), 10)
	}
	return out
}

// WriteAsString writes the fields selected by opts, tab separated.
func (X *Molecule) WriteAsString(out io.Writer, opts canon.PrintOpts) {
	sep := ""
	if opts.Expr {
		fmt.Fprintf(out, "%q", X.String())
		sep = "\t"
	}
	if opts.Symmetry {
		autStr := ""
		if X.autPart != nil {
			autStr = X.autPart.String()
		}
		fmt.Fprintf(out, "%sorder=%d\taut=%s", sep, X.groupOrder, autStr)
		sep = "\t"
	}
	if opts.Labeling {
		fmt.Fprintf(out, "%slabeling=%v", sep, X.labeling)
		sep = "\t"
	}
	if opts.Certificate {
		fmt.Fprintf(out, "%scert=%s", sep, X.halfMatrix)
	}
}

func (X *Molecule) MakeCopy() canon.MolState {
	Y := NewMolecule()
	Y.Init(X)
	return Y
}

func (X *Molecule) Reclaim() {
	if X != nil {
		moleculePool.Put(X)
	}
}
