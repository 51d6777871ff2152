package libcanon

import (
	"github.com/fine-structures/canon/canon"
)

// AtomRefinable returns the atom graph of mol: one vertex per atom, coloured by atomic number,
// with each bond's order as its connectivity.
func AtomRefinable(mol *Molecule, opts AtomOpts) (*Graph, error) {
	if mol == nil {
		return nil, canon.ErrNilGraph
	}
	if err := mol.Validate(); err != nil {
		return nil, err
	}

	g := NewGraph(len(mol.Atoms))
	if !opts.IgnoreElements {
		for i, atom := range mol.Atoms {
			Z, err := AtomicNumber(atom.Symbol)
			if err != nil {
				return nil, err
			}
			g.SetColor(i, Z)
		}
	}

	for _, bond := range mol.Bonds {
		label := int(bond.Order)
		if opts.IgnoreBondOrder {
			label = 1
		}
		if err := g.AddEdge(bond.A, bond.B, label); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BondRefinable returns the bond graph of mol: one vertex per bond, coloured by bond order,
// where two bonds are connected (1) iff they share an atom.
func BondRefinable(mol *Molecule, opts BondOpts) (*Graph, error) {
	if mol == nil {
		return nil, canon.ErrNilGraph
	}
	if err := mol.Validate(); err != nil {
		return nil, err
	}

	Nb := len(mol.Bonds)
	g := NewGraph(Nb)
	for i, bi := range mol.Bonds {
		if !opts.IgnoreBondOrder {
			g.SetColor(i, int(bi.Order))
		}
		for j := i + 1; j < Nb; j++ {
			bj := mol.Bonds[j]
			if bi.A == bj.A || bi.A == bj.B || bi.B == bj.A || bi.B == bj.B {
				if err := g.AddEdge(i, j, 1); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

// AtomRefiner refines the atom graphs of molecules.
type AtomRefiner struct {
	Opts    AtomOpts
	refiner *DiscreteRefiner
}

func NewAtomRefiner(opts AtomOpts) *AtomRefiner {
	return &AtomRefiner{
		Opts:    opts,
		refiner: defaultRefiner,
	}
}

func (ar *AtomRefiner) Refine(mol *Molecule) (*Result, error) {
	g, err := AtomRefinable(mol, ar.Opts)
	if err != nil {
		return nil, err
	}
	return ar.refiner.Refine(g)
}

// AutomorphismPartition returns the classes of symmetry-equivalent atoms of mol.
func (ar *AtomRefiner) AutomorphismPartition(mol *Molecule) (*canon.Partition, error) {
	res, err := ar.Refine(mol)
	if err != nil {
		return nil, err
	}
	return res.AutomorphismPartition(), nil
}

func (ar *AtomRefiner) AutomorphismGroup(mol *Molecule) (*PermutationGroup, error) {
	res, err := ar.Refine(mol)
	if err != nil {
		return nil, err
	}
	return res.AutomorphismGroup(), nil
}

// IsCanonical reports whether mol's atom order is already canonical.
func (ar *AtomRefiner) IsCanonical(mol *Molecule) (bool, error) {
	res, err := ar.Refine(mol)
	if err != nil {
		return false, err
	}
	return res.IsCanonical(), nil
}

// BondRefiner refines the bond graphs of molecules.
type BondRefiner struct {
	Opts    BondOpts
	refiner *DiscreteRefiner
}

func NewBondRefiner(opts BondOpts) *BondRefiner {
	return &BondRefiner{
		Opts:    opts,
		refiner: defaultRefiner,
	}
}

func (br *BondRefiner) Refine(mol *Molecule) (*Result, error) {
	g, err := BondRefinable(mol, br.Opts)
	if err != nil {
		return nil, err
	}
	return br.refiner.Refine(g)
}

// AutomorphismPartition returns the classes of symmetry-equivalent bonds of mol, by bond index.
func (br *BondRefiner) AutomorphismPartition(mol *Molecule) (*canon.Partition, error) {
	res, err := br.Refine(mol)
	if err != nil {
		return nil, err
	}
	return res.AutomorphismPartition(), nil
}

func (br *BondRefiner) AutomorphismGroup(mol *Molecule) (*PermutationGroup, error) {
	res, err := br.Refine(mol)
	if err != nil {
		return nil, err
	}
	return res.AutomorphismGroup(), nil
}

func (br *BondRefiner) IsCanonical(mol *Molecule) (bool, error) {
	res, err := br.Refine(mol)
	if err != nil {
		return false, err
	}
	return res.IsCanonical(), nil
}
