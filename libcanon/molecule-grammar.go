package libcanon

import (
	"github.com/alecthomas/participle/v2"
	"github.com/fine-structures/canon/canon"
	"github.com/pkg/errors"
)

// MoleculeExpr is the grammar of a molecule expression: element symbols, then bond runs.
//
//	"C C C O; 0-1=2, 1-3"
//
// A run "0-1=2" is the bonds 0-1 (single) and 1=2 (double).  '#' is triple and '~' is aromatic.
type MoleculeExpr struct {
	Atoms []string   `parser:"@Ident*"`
	Runs  []*BondRun `parser:"( \";\" ( @@ ( \",\" @@ )* )? )?"`
}

type BondRun struct {
	Start int        `parser:"@Int"`
	Bonds []*BondDst `parser:"@@+"`
}

type BondDst struct {
	Kind string `parser:"@( \"-\" | \"=\" | \"#\" | \"~\" )"`
	End  int    `parser:"@Int"`
}

var parseMoleculeExpr = participle.MustBuild[MoleculeExpr]()

// ParseMolecule reads the form written by Molecule.String().
func ParseMolecule(expr string) (*Molecule, error) {
	X := NewMolecule()
	if err := X.InitFromString(expr); err != nil {
		X.Reclaim()
		return nil, err
	}
	return X, nil
}

// MustParseMolecule is ParseMolecule for literals known to be well-formed.
func MustParseMolecule(expr string) *Molecule {
	X, err := ParseMolecule(expr)
	if err != nil {
		panic(err)
	}
	return X
}

// InitFromString resets X and assigns it from the given molecule expression.
func (X *Molecule) InitFromString(expr string) error {
	X.Init(nil)

	Xexpr, err := parseMoleculeExpr.ParseString("", expr)
	if err != nil {
		return errors.Wrapf(canon.ErrParse, "molecule %q: %v", expr, err)
	}

	for _, sym := range Xexpr.Atoms {
		X.AddAtom(sym)
	}

	for _, run := range Xexpr.Runs {
		from := run.Start
		for _, dst := range run.Bonds {
			order, err := ParseBondOrder(dst.Kind)
			if err != nil {
				return err
			}
			if err = X.AddBond(from, dst.End, order); err != nil {
				return errors.Wrapf(err, "molecule %q", expr)
			}
			from = dst.End
		}
	}

	return nil
}
